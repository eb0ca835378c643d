package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// tick advances one motor by a single state-machine step (spec §4.1). It
// is called once per scheduler pass for every non-idle motor; each call
// does at most one GPIO pulse. Grounded on the original driver's
// mot_run() switch, restructured as one dispatch function per Mode so
// each state's transition rule sits next to the others it can lead to.
func (e *Engine) tick(m *Motor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case Idle:
		return
	case StartRun:
		e.enterStartRun(m)
	case SpeedUp:
		e.enterSpeedUp(m)
	case RunSpeedUp:
		e.runRamped(m, true)
	case Run:
		e.runRamped(m, false)
	case SpeedDown:
		e.enterSpeedDown(m)
	case RunSpeedDown:
		e.runDecel(m)
	case StartMd:
		e.enterStartMd(m)
	case RunMd:
		e.enterRunMd(m)
	case RunSpeedMd:
		e.runMd(m)
	case JobReady:
		e.finishJob(m)
	}
}

// enterStartRun resets the job's counters and chooses whether the first
// phase is an acceleration ramp or an immediate cruise (spec §4.1
// StartRun row). runStart is set here, resolving the Open Question in
// DESIGN.md: the job clock starts the instant the motor leaves Idle, not
// when it was configured.
func (e *Engine) enterStartRun(m *Motor) {
	now := e.clock.Now()

	m.currentStepcount.Store(0)
	m.maxLatency.Store(0)
	m.runtime.Store(0)
	m.latencyCarry = 0
	m.start = now
	m.stop = now
	m.runStart = now
	m.active = true
	m.currentOmega = 0

	if m.numSteps > 0 {
		m.numRest = uint64(m.numSteps)
	} else {
		m.numRest = 0
	}

	if m.alphaUp > 0 && m.omega > 0 {
		m.mode = SpeedUp
		return
	}
	m.currentSteptime = m.steptime
	m.currentOmega = m.omega
	m.mode = Run
}

// enterSpeedUp computes the next step's period along the acceleration
// ramp (spec §4.3 "Acceleration from rest") and hands off to RunSpeedUp
// to wait for its due time.
func (e *Engine) enterSpeedUp(m *Motor) {
	omegaNew, deltaUs, reached := accelStep(m.currentStepcount.Load(), m.phiStep, m.alphaUp, m.currentOmega, m.omega)
	if reached {
		m.currentSteptime = m.steptime
		m.currentOmega = m.omega
	} else {
		m.currentSteptime = deltaUs
		m.currentOmega = omegaNew
	}
	m.mode = RunSpeedUp
}

// runRamped is shared by RunSpeedUp and Run: both wait for the current
// period to elapse, emit a pulse, consume one step of the job's
// remaining budget, and either fall into deceleration, finish, or loop
// back (to SpeedUp to recompute the next ramp period, or stay in Run
// for a flat cruise).
func (e *Engine) runRamped(m *Motor, ramping bool) {
	if !e.maybeEmitPulse(m, m.direction) {
		return
	}
	e.consumeStep(m)
	if m.mode == JobReady {
		return
	}

	if !m.endless && m.alphaDown > 0 {
		brake := brakingDistanceSteps(m.currentSteptime, m.stepsPerRev, m.phiStep, m.alphaDown)
		if float64(m.numRest) <= brake {
			m.mode = SpeedDown
			return
		}
	}

	if ramping {
		m.mode = SpeedUp
	} else {
		m.mode = Run
	}
}

// consumeStep decrements the remaining-step budget after a pulse and
// flags job completion once it reaches zero. Endless jobs (numSteps==0)
// never decrement; they run until Stop/FastStop changes their mode
// directly from the control surface.
func (e *Engine) consumeStep(m *Motor) {
	if m.endless {
		return
	}
	if m.numRest > 0 {
		m.numRest--
	}
	if m.numRest == 0 {
		m.mode = JobReady
	}
}

// enterSpeedDown computes the next decelerating period (spec §4.3
// "Deceleration to rest").
func (e *Engine) enterSpeedDown(m *Motor) {
	m.currentSteptime = decelStep(m.numRest, m.phiStep, m.alphaDown)
	m.mode = RunSpeedDown
}

// runDecel waits for the decelerating period to elapse, emits the pulse,
// and either finishes the job or loops back to compute the next period.
func (e *Engine) runDecel(m *Motor) {
	if !e.maybeEmitPulse(m, m.direction) {
		return
	}
	if m.numRest > 0 {
		m.numRest--
	}
	if m.numRest == 0 {
		m.mode = JobReady
	} else {
		m.mode = SpeedDown
	}
}

// enterStartMd advances the motion-diagram cursor to the next segment
// with a non-zero duration, skipping degenerate (duplicate-time)
// waypoints, and finishes the job once the diagram is exhausted (spec
// §4.7).
func (e *Engine) enterStartMd(m *Motor) {
	d := m.diagram
	if d == nil {
		m.mode = JobReady
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := m.currentMP + 1
	for idx < len(d.waypoints) && d.waypoints[idx].DeltaT == 0 {
		idx++
	}
	if idx >= len(d.waypoints) {
		m.mode = JobReady
		return
	}

	m.currentMP = idx
	d.waypoints[idx].CurrentStep = 0
	m.mode = RunMd
}

// enterRunMd computes the current segment's next signed step period
// (spec §4.3 "Motion-diagram step") and hands off to RunSpeedMd to wait
// for its due time.
func (e *Engine) enterRunMd(m *Motor) {
	d := m.diagram
	if d == nil {
		m.mode = JobReady
		return
	}

	d.mu.Lock()
	wp := d.waypoints[m.currentMP]
	d.mu.Unlock()

	omegaNew, deltaUs := mdSegmentStep(m.currentOmega, wp.Omega, wp.Alpha, m.phiStep)
	m.currentOmega = omegaNew
	m.currentSteptime = deltaUs
	m.mode = RunSpeedMd
}

// runMd waits for the segment's computed period, emits the pulse with
// direction derived from the sign of the current angular velocity
// (unlike Run/SpeedDown, motion-diagram playback has no fixed direction
// register), advances the segment's step cursor, and either stays in the
// segment or moves on to find the next one.
func (e *Engine) runMd(m *Motor) {
	d := m.diagram
	if d == nil {
		m.mode = JobReady
		return
	}

	dir := dirFromOmega(m.currentOmega)
	if !e.maybeEmitPulse(m, dir) {
		return
	}

	d.mu.Lock()
	wp := &d.waypoints[m.currentMP]
	wp.CurrentStep++
	done := wp.CurrentStep >= wp.Steps
	d.mu.Unlock()

	if done {
		m.mode = StartMd
	} else {
		m.mode = RunMd
	}
}

// finishJob runs once when a motor reaches JobReady: it logs the
// completion summary (spec §9, grounded on the original driver's
// JobReady log line), releases the diagram if one was driving, and
// returns the motor to Idle.
func (e *Engine) finishJob(m *Motor) {
	e.logger.Info("motor job complete",
		zap.String("motor", m.id.String()),
		zap.Uint64("steps", m.currentStepcount.Load()),
		zap.Int64("position", m.realStepcount.Load()),
		zap.Int64("max_latency_us", m.maxLatency.Load()),
		zap.Int64("runtime_us", m.runtime.Load()),
	)

	if d := m.diagram; d != nil {
		d.mu.Lock()
		d.driving = false
		d.mu.Unlock()
	}
	m.diagram = nil
	m.currentMP = -1
	m.active = false
	m.mode = Idle
}

// dirFromOmega maps a signed angular velocity to a rotation sense for
// motion-diagram playback: non-negative is CW, matching the Direction
// zero value.
func dirFromOmega(omega float64) Direction {
	if omega < 0 {
		return CCW
	}
	return CW
}

// maybeEmitPulse is the timing dispatch shared by every running state
// (spec §4.4): it samples the clock, compares the elapsed time against
// the current period minus any carried slack, and emits a pulse once
// that threshold is reached. On emission it carries the (always
// non-negative) overshoot forward as latencyCarry and tracks the worst
// overshoot seen in maxLatency. Returns whether a pulse was emitted.
func (e *Engine) maybeEmitPulse(m *Motor, dir Direction) bool {
	now := e.clock.Now()
	elapsed := now.Sub(m.start).Microseconds()

	threshold := int64(m.currentSteptime) - m.latencyCarry
	if threshold < 0 {
		threshold = 0
	}
	if elapsed < threshold {
		m.stop = now
		return false
	}

	if err := e.emitPulse(m, dir); err != nil {
		e.logger.Error("pulse emission failed, ending job",
			zap.String("motor", m.id.String()), zap.Error(err))
		m.mode = JobReady
		return false
	}

	slack := elapsed - threshold
	m.latencyCarry = slack
	if slack > m.maxLatency.Load() {
		m.maxLatency.Store(slack)
	}
	m.start = now
	m.stop = now
	m.runtime.Store(now.Sub(m.runStart).Microseconds())
	return true
}

// emitPulse drives the direction pin (only when it changed) and the
// step pulse sequence itself: low, high, a brief hold, low (spec §4.2).
// Counters are only updated after every write in the sequence succeeds.
func (e *Engine) emitPulse(m *Motor, dir Direction) error {
	if dir != m.direction {
		if err := e.gpio.Write(m.pins.Dir, dir == CCW); err != nil {
			return &ErrGPIO{Pin: m.pins.Dir, Op: "write direction", Err: err}
		}
		m.direction = dir
	}

	if err := e.gpio.Write(m.pins.Step, false); err != nil {
		return &ErrGPIO{Pin: m.pins.Step, Op: "write step low", Err: err}
	}
	if err := e.gpio.Write(m.pins.Step, true); err != nil {
		return &ErrGPIO{Pin: m.pins.Step, Op: "write step high", Err: err}
	}
	stepPulseHold()
	if err := e.gpio.Write(m.pins.Step, false); err != nil {
		return &ErrGPIO{Pin: m.pins.Step, Op: "write step low", Err: err}
	}

	m.currentStepcount.Add(1)
	if dir == CW {
		m.realStepcount.Add(1)
	} else {
		m.realStepcount.Add(-1)
	}
	return nil
}

// stepPulseSink exists only to keep stepPulseHold's busy-loop from being
// optimized away.
var stepPulseSink uint64

// stepPulseHold busy-spins for a handful of iterations to hold the step
// pin high long enough for the A4988 to latch it (spec §4.2, grounded on
// the original driver's inline no-op loop between the rising and falling
// edge; a sleep would be far coarser than the driver's microsecond-scale
// pulse width).
func stepPulseHold() {
	var x uint64
	for i := 0; i < 4; i++ {
		x++
	}
	atomic.StoreUint64(&stepPulseSink, x)
}
