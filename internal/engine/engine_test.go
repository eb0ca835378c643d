package engine

import (
	"sync"
	"time"
)

// fakeGPIO is a minimal in-memory GPIO backend for tests: it records
// every pin's configured mode/pull and its last written level.
type fakeGPIO struct {
	mu     sync.Mutex
	levels map[int]bool
	pulses map[int]int // step-pin high-edge count, keyed by pin
	failOn map[int]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		levels: make(map[int]bool),
		pulses: make(map[int]int),
		failOn: make(map[int]bool),
	}
}

func (g *fakeGPIO) ConfigureOutput(pin int) error { return nil }
func (g *fakeGPIO) ConfigureInput(pin int) error  { return nil }
func (g *fakeGPIO) ConfigurePullup(pin int, mode PullMode) error { return nil }

func (g *fakeGPIO) Write(pin int, level bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOn[pin] {
		return errFakeGPIOWrite
	}
	if level && !g.levels[pin] {
		g.pulses[pin]++
	}
	g.levels[pin] = level
	return nil
}

func (g *fakeGPIO) risingEdges(pin int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pulses[pin]
}

type fakeGPIOErr string

func (e fakeGPIOErr) Error() string { return string(e) }

const errFakeGPIOWrite = fakeGPIOErr("simulated gpio failure")

// fakeClock is a manually-advanced Clock for deterministic scheduler
// tests: real tests never sleep, they move the clock forward themselves
// between tick() calls.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
