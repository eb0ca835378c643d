package engine

import "github.com/ubuettemeier/a4988motion/internal/hal"

// HALAdapter adapts internal/hal's richer GPIOProvider (shared with
// whatever other peripherals are wired to the same board) to the
// engine's narrow GPIO interface, so the motion core can be driven by
// go-rpio, gpiocdev, or the mock backend without depending on any of
// them directly.
type HALAdapter struct {
	Provider hal.GPIOProvider
}

// NewHALAdapter wraps a hal.GPIOProvider for use by an Engine.
func NewHALAdapter(p hal.GPIOProvider) *HALAdapter {
	return &HALAdapter{Provider: p}
}

func (a *HALAdapter) ConfigureOutput(pin int) error {
	return a.Provider.SetMode(pin, hal.Output)
}

func (a *HALAdapter) ConfigureInput(pin int) error {
	return a.Provider.SetMode(pin, hal.Input)
}

func (a *HALAdapter) ConfigurePullup(pin int, mode PullMode) error {
	var hp hal.PullMode
	switch mode {
	case PullUp:
		hp = hal.PullUp
	case PullDown:
		hp = hal.PullDown
	default:
		hp = hal.PullNone
	}
	return a.Provider.SetPull(pin, hp)
}

func (a *HALAdapter) Write(pin int, level bool) error {
	return a.Provider.DigitalWrite(pin, level)
}
