package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config tunes the scheduler thread (spec §4.5, §5).
type Config struct {
	// RTPriority is the SCHED_FIFO priority requested for the scheduler
	// thread. 0 disables the elevation attempt entirely.
	RTPriority int
	// PinCore, when >= 0, pins the scheduler thread to that CPU core to
	// reduce jitter. -1 disables pinning.
	PinCore int
	// IdleSleep is how long the scheduler sleeps when every motor is idle.
	IdleSleep mSleep
}

// mSleep exists only so Config's zero value (IdleSleep: 0) is visibly
// "use the default" rather than "never sleep"; see DefaultConfig.
type mSleep = int64 // milliseconds

// DefaultConfig returns the settings the original driver used: priority
// 95, pinned to no particular core, 1ms idle sleep.
func DefaultConfig() Config {
	return Config{
		RTPriority: 95,
		PinCore:    -1,
		IdleSleep:  1,
	}
}

// Clock is the monotonic timestamp source spec §2 calls for. The idle
// sleep is not part of it: the scheduler loop waits on time.After
// directly. The default uses time.Now; a fake implementation lets tests
// drive the state machine deterministically without real delays.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine is the process-wide motion-engine context (spec §9: re-architected
// from the C sources' module-level globals into an explicit value with an
// init/shutdown lifecycle). All control-surface operations are methods on
// an *Engine.
type Engine struct {
	gpio   GPIO
	cfg    Config
	logger *zap.Logger
	clock  Clock

	mu       sync.RWMutex
	motors   map[uuid.UUID]*Motor
	order    []uuid.UUID // stable round-robin iteration order
	diagrams map[uuid.UUID]*Diagram

	stopCh      chan struct{}
	doneCh      chan struct{}
	mu2         sync.Mutex // guards start/stop of the scheduler thread itself
	running     bool
	schedPolicy atomic.Value // string, set once the scheduler thread starts
}

// Motors returns a snapshot of every motor currently registered with the
// engine, in round-robin scan order. Safe to call from any goroutine;
// intended for internal/metrics to poll without reaching into engine
// internals.
func (e *Engine) Motors() []*Motor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Motor, 0, len(e.order))
	for _, id := range e.order {
		if m := e.motors[id]; m != nil {
			out = append(out, m)
		}
	}
	return out
}

// SchedulingPolicy returns the scheduling policy the scheduler thread
// observed for itself after its elevation attempt ("SCHED_FIFO",
// "SCHED_RR", "SCHED_OTHER", "unknown" if the Linux query fails,
// "unsupported" off Linux, or "" before Init runs). Surfaced by
// internal/health (spec.md §9, grounded on the original driver's
// printSchedulingPolicy()).
func (e *Engine) SchedulingPolicy() string {
	v, _ := e.schedPolicy.Load().(string)
	return v
}

// New creates an engine context bound to the given GPIO backend. Call
// Init to start its scheduler thread.
func New(gpio GPIO, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gpio:     gpio,
		cfg:      cfg,
		logger:   logger,
		clock:    realClock{},
		motors:   make(map[uuid.UUID]*Motor),
		diagrams: make(map[uuid.UUID]*Diagram),
	}
}

// WithClock overrides the engine's time source. Intended for tests that
// need to drive the state machine without real sleeps.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// Init starts the scheduler thread. Calling Init on an already-running
// engine is a no-op (spec §9, grounded on the original's `is_init` guard).
func (e *Engine) Init() error {
	e.mu2.Lock()
	defer e.mu2.Unlock()
	if e.running {
		return nil
	}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.running = true
	go e.run(e.stopCh, e.doneCh)
	return nil
}

// Shutdown signals the scheduler thread to stop and waits for it to exit.
func (e *Engine) Shutdown() error {
	e.mu2.Lock()
	if !e.running {
		e.mu2.Unlock()
		return nil
	}
	stopCh, doneCh := e.stopCh, e.doneCh
	e.running = false
	e.mu2.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}
