// Package engine implements the motion core: the per-motor state machine,
// trapezoidal acceleration/deceleration kinematics, the motion-diagram
// waypoint interpreter, and the single real-time scheduling thread that
// drives them all. Nothing in this package touches GPIO registers
// directly; it talks to hardware only through the GPIO interface defined
// in gpio.go.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Direction is the rotation sense written to a motor's direction pin.
type Direction uint8

const (
	CW  Direction = 0
	CCW Direction = 1
)

func (d Direction) String() string {
	if d == CCW {
		return "CCW"
	}
	return "CW"
}

// Mode is the motor's current state-machine state (spec §4.1).
type Mode int

const (
	Idle Mode = iota
	StartRun
	SpeedUp
	RunSpeedUp
	Run
	SpeedDown
	RunSpeedDown
	StartMd
	RunMd
	RunSpeedMd
	JobReady
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "Idle"
	case StartRun:
		return "StartRun"
	case SpeedUp:
		return "SpeedUp"
	case RunSpeedUp:
		return "RunSpeedUp"
	case Run:
		return "Run"
	case SpeedDown:
		return "SpeedDown"
	case RunSpeedDown:
		return "RunSpeedDown"
	case StartMd:
		return "StartMd"
	case RunMd:
		return "RunMd"
	case RunSpeedMd:
		return "RunSpeedMd"
	case JobReady:
		return "JobReady"
	default:
		return "Unknown"
	}
}

// Pins holds the three GPIO line numbers a motor is wired to.
type Pins struct {
	Enable int
	Dir    int
	Step   int
}

// Motor is one physical A4988-driven stepper motor. Exactly one Engine
// owns a Motor for its whole lifetime; the scheduler thread and
// control-surface callers both touch it, so every field below is either
// guarded by mu or, for the handful of counters readers poll from other
// goroutines, kept in an atomic.
//
// mu guards everything the control surface can change (mode, target
// parameters, direction, the motion-diagram cursor) and everything the
// scheduler tick reads to decide what to do next. The tick's own hot
// path (the timing comparison in stepper.go) only takes mu once per
// invocation, so lock contention with a control-surface call is brief
// and bounded.
type Motor struct {
	id uuid.UUID

	mu sync.Mutex

	pins        Pins
	stepsPerRev uint32 // S
	phiStep     float64 // 2*pi/S, 0 when S==0

	direction   Direction
	chipEnabled bool
	endless     bool
	active      bool

	mode Mode

	steptime       int     // target constant-phase step period, microseconds
	omega          float64 // target angular velocity, rad/s, derived from steptime
	alphaUp        float64 // rad/s^2, 0 disables ramp-up
	alphaDown      float64 // rad/s^2, 0 disables ramp-down

	numSteps int64 // <0 unconfigured, 0 endless, >0 bounded job
	numRest  uint64

	currentSteptime  int     // microseconds, next pulse interval
	currentOmega     float64 // signed, rad/s, used during motion-diagram playback
	latencyCarry     int64   // signed slack carried into the next tick's threshold

	start    time.Time // timestamp of the previous pulse
	stop     time.Time // timestamp of the last sample
	runStart time.Time // job origin, set at StartRun/StartMd

	currentMP int // index into diagram.waypoints, -1 when not attached to an active diagram
	diagram   *Diagram

	// Cross-thread-read counters: written only by the scheduler tick,
	// read from arbitrary goroutines via their accessor methods below.
	// atomics give readers a torn-read-free snapshot without making the
	// scheduler's hot path take a lock for every pulse.
	currentStepcount atomic.Uint64
	realStepcount    atomic.Int64
	maxLatency       atomic.Int64
	runtime          atomic.Int64
}

// ID returns the motor's stable identifier, usable as a map key or log field.
func (m *Motor) ID() uuid.UUID { return m.id }

// Mode returns the motor's current state-machine state.
func (m *Motor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Active reports whether a job is in progress.
func (m *Motor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Direction returns the motor's currently configured rotation sense.
func (m *Motor) Direction() Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.direction
}

// CurrentStepcount returns the number of pulses emitted since the
// current job's StartRun/StartMd transition.
func (m *Motor) CurrentStepcount() uint64 { return m.currentStepcount.Load() }

// RealStepcount returns the signed position: +1 per CW pulse, -1 per CCW.
func (m *Motor) RealStepcount() int64 { return m.realStepcount.Load() }

// MaxLatency returns the worst observed positive scheduling slack, in microseconds.
func (m *Motor) MaxLatency() int64 { return m.maxLatency.Load() }

// Runtime returns the elapsed time since the current job started, in microseconds.
func (m *Motor) Runtime() int64 { return m.runtime.Load() }

// Waypoint is one (omega, t) point of a motion diagram plus the segment
// derived from the previous waypoint (spec glossary: MovePoint).
type Waypoint struct {
	Omega float64 // rad/s, signed
	T     float64 // seconds, non-decreasing along the diagram
	Phi   float64 // cumulative signed angle, radians

	SumSteps uint64 // cumulative unsigned step count through this waypoint

	DeltaOmega float64
	DeltaT     float64
	DeltaPhi   float64
	Alpha      float64 // 0 when DeltaT == 0
	Steps      int     // round(|DeltaPhi| / phiStep)

	CurrentStep int // playback counter within this segment, 0..Steps

	synthetic bool // true for the t=0 origin point and for inserted zero-crossings
}

// Diagram is an ordered velocity/time profile attached to one motor
// (spec glossary: MotionDiagram).
type Diagram struct {
	id uuid.UUID

	mu sync.Mutex

	motor *Motor // nil once the owning motor is killed or was never attached

	waypoints []Waypoint // waypoints[0] is the synthetic origin (t=0, omega=0)

	maxOmega, minOmega float64
	maxT               float64
	phiAll             float64 // cumulative signed angle across the whole diagram

	dataIncorrect int // 0 when valid; first offending waypoint index+1 otherwise

	driving bool // true while this diagram is actively driving its motor
}

// ID returns the diagram's stable identifier.
func (d *Diagram) ID() uuid.UUID { return d.id }

// Valid reports whether every insertion so far has been time-monotone.
func (d *Diagram) Valid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataIncorrect == 0
}

// WaypointCount returns the number of waypoints in the diagram, including
// the synthetic origin and any inserted zero-crossings.
func (d *Diagram) WaypointCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waypoints)
}
