package engine

import "fmt"

// PullMode selects an input pin's pull resistor.
type PullMode int

const (
	PullNone PullMode = iota
	PullUp
	PullDown
)

// GPIO is the minimal hardware surface the motion core requires (spec
// §6): configure a pin as output/input, optionally with a pull resistor,
// and write a level to an output pin. The engine never interprets pin
// numbers beyond passing them through; it never touches registers or a
// specific board's pinout directly, so it can run against any backend
// that satisfies this interface (go-rpio, the Linux gpiocdev character
// device, or a test fake).
type GPIO interface {
	ConfigureOutput(pin int) error
	ConfigureInput(pin int) error
	ConfigurePullup(pin int, mode PullMode) error
	Write(pin int, level bool) error
}

// ErrGPIO wraps a failure reported by the GPIO backend. The engine
// treats it as fatal to the job in progress on the affected motor (spec
// §4.8) but never to the process or to other motors.
type ErrGPIO struct {
	Pin int
	Op  string
	Err error
}

func (e *ErrGPIO) Error() string {
	return fmt.Sprintf("gpio %s on pin %d: %v", e.Op, e.Pin, e.Err)
}

func (e *ErrGPIO) Unwrap() error { return e.Err }
