package engine

import (
	"math"

	"github.com/google/uuid"
)

// NewMotor registers a new motor bound to the given pins, configures its
// three output lines through the GPIO backend (spec §6) and drives the
// enable pin inactive. The motor starts Idle, disabled, with no job
// configured.
func (e *Engine) NewMotor(pins Pins, stepsPerRev uint32) (*Motor, error) {
	if stepsPerRev == 0 {
		return nil, &ErrConfiguration{Reason: "stepsPerRev must be > 0"}
	}
	if pins.Enable == pins.Dir || pins.Dir == pins.Step || pins.Enable == pins.Step {
		return nil, &ErrConfiguration{Reason: "enable, dir and step pins must be distinct"}
	}

	if err := e.gpio.ConfigureOutput(pins.Enable); err != nil {
		return nil, &ErrGPIO{Pin: pins.Enable, Op: "configure output", Err: err}
	}
	if err := e.gpio.ConfigureOutput(pins.Dir); err != nil {
		return nil, &ErrGPIO{Pin: pins.Dir, Op: "configure output", Err: err}
	}
	if err := e.gpio.ConfigureOutput(pins.Step); err != nil {
		return nil, &ErrGPIO{Pin: pins.Step, Op: "configure output", Err: err}
	}
	if err := e.gpio.Write(pins.Enable, true); err != nil {
		return nil, &ErrGPIO{Pin: pins.Enable, Op: "disable", Err: err}
	}

	m := &Motor{
		id:          newID(),
		pins:        pins,
		stepsPerRev: stepsPerRev,
		phiStep:     phiStepOf(stepsPerRev),
		mode:        Idle,
		currentMP:   -1,
		numSteps:    -1,
	}

	e.mu.Lock()
	e.motors[m.id] = m
	e.order = append(e.order, m.id)
	e.mu.Unlock()

	return m, nil
}

// KillMotor removes a motor from the engine's collection and clears any
// diagram back-reference pointing at it (spec §4.8). Rejected while a
// job is active.
func (e *Engine) KillMotor(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}

	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active {
		return &ErrState{Reason: "motor has an active job"}
	}

	e.mu.Lock()
	delete(e.motors, m.id)
	for i, id := range e.order {
		if id == m.id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	e.clearMotorRef(m)
	return nil
}

// KillAllMotors removes every motor that has no active job.
func (e *Engine) KillAllMotors() {
	e.mu.RLock()
	ids := make([]uuid.UUID, len(e.order))
	copy(ids, e.order)
	e.mu.RUnlock()

	for _, id := range ids {
		e.mu.RLock()
		m := e.motors[id]
		e.mu.RUnlock()
		if m != nil {
			_ = e.KillMotor(m)
		}
	}
}

// CountMotors returns the number of live motors.
func (e *Engine) CountMotors() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.order)
}

// SetParams configures a bounded or endless constant-target job (spec
// §6). numSteps == 0 means endless; numSteps > 0 is the pulse count for
// a bounded job. Rejected unless the motor is Idle.
func (e *Engine) SetParams(m *Motor, steptime int, alphaUp, alphaDown float64, numSteps int64, dir Direction) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	if steptime <= 0 {
		return &ErrConfiguration{Reason: "steptime must be > 0"}
	}
	if numSteps < 0 {
		return &ErrConfiguration{Reason: "numSteps must be >= 0 (0 means endless)"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return &ErrState{Reason: "motor is not idle"}
	}

	m.steptime = steptime
	m.omega = omegaFromSteptime(steptime, m.stepsPerRev)
	m.alphaUp = alphaUp
	m.alphaDown = alphaDown
	m.numSteps = numSteps
	m.endless = numSteps == 0
	m.direction = dir
	return nil
}

// SetSteptime overrides the target constant-phase period directly
// (microseconds). Rejected unless the motor is Idle.
func (e *Engine) SetSteptime(m *Motor, steptime int) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	if steptime <= 0 {
		return &ErrConfiguration{Reason: "steptime must be > 0"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return &ErrState{Reason: "motor is not idle"}
	}
	m.steptime = steptime
	m.omega = omegaFromSteptime(steptime, m.stepsPerRev)
	return nil
}

// SetRPM sets the target speed in revolutions per minute (spec §6).
func (e *Engine) SetRPM(m *Motor, rpm float64) error {
	if rpm <= 0 {
		return &ErrConfiguration{Reason: "rpm must be > 0"}
	}
	return e.SetSteptime(m, steptimeFromRPM(rpm, stepsPerRevOf(m)))
}

// SetHz sets the target speed in revolutions per second (omega = 2*pi*hz,
// so SetHz(f) and SetRPM(60*f) give the same steptime).
func (e *Engine) SetHz(m *Motor, hz float64) error {
	if hz <= 0 {
		return &ErrConfiguration{Reason: "hz must be > 0"}
	}
	return e.SetSteptime(m, steptimeFromOmega(2*math.Pi*hz, stepsPerRevOf(m)))
}

func stepsPerRevOf(m *Motor) uint32 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepsPerRev
}

// Enable drives the motor's enable pin active (A4988 enable is active-low).
func (e *Engine) Enable(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	if err := e.gpio.Write(m.pins.Enable, false); err != nil {
		return &ErrGPIO{Pin: m.pins.Enable, Op: "enable", Err: err}
	}
	m.mu.Lock()
	m.chipEnabled = true
	m.mu.Unlock()
	return nil
}

// Disable drives the motor's enable pin inactive, cutting coil current.
func (e *Engine) Disable(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	if err := e.gpio.Write(m.pins.Enable, true); err != nil {
		return &ErrGPIO{Pin: m.pins.Enable, Op: "disable", Err: err}
	}
	m.mu.Lock()
	m.chipEnabled = false
	m.mu.Unlock()
	return nil
}

// SetDirection sets the motor's rotation sense for the next job. Rejected
// unless the motor is Idle.
func (e *Engine) SetDirection(m *Motor, dir Direction) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return &ErrState{Reason: "motor is not idle"}
	}
	m.direction = dir
	return nil
}

// SingleStep emits exactly one pulse outside of the scheduler's job
// machinery (spec §6). Allowed only while Idle.
func (e *Engine) SingleStep(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return &ErrState{Reason: "motor is not idle"}
	}
	if err := e.emitPulse(m, m.direction); err != nil {
		return err
	}
	return nil
}

// Start begins a constant-target job configured by SetParams (spec §4.1
// Idle -> StartRun). Rejected unless the motor is Idle and has a
// configured target.
func (e *Engine) Start(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return &ErrState{Reason: "motor is not idle"}
	}
	if m.numSteps < 0 {
		return &ErrConfiguration{Reason: "motor has no configured job; call SetParams first"}
	}
	m.mode = StartRun
	return nil
}

// StartMotionDiagram attaches d to m and begins playback (spec §4.1 Idle
// -> StartMd). Rejected unless the motor is Idle, the diagram passed
// Valid() (no data_incorrect waypoints), and it belongs to this motor.
func (e *Engine) StartMotionDiagram(m *Motor, d *Diagram) error {
	if m == nil || d == nil {
		return &ErrConfiguration{Reason: "nil motor or diagram"}
	}

	d.mu.Lock()
	ownerOK := d.motor == m
	dataOK := d.dataIncorrect == 0
	d.mu.Unlock()
	if !ownerOK {
		return &ErrConfiguration{Reason: "diagram does not belong to this motor"}
	}
	if !dataOK {
		return &ErrData{Reason: "diagram failed time-monotonicity validation"}
	}

	m.mu.Lock()
	if m.mode != Idle {
		m.mu.Unlock()
		return &ErrState{Reason: "motor is not idle"}
	}
	now := e.clock.Now()
	m.diagram = d
	m.currentMP = 0
	m.currentStepcount.Store(0)
	m.maxLatency.Store(0)
	m.runtime.Store(0)
	m.latencyCarry = 0
	m.start = now
	m.stop = now
	m.runStart = now
	m.active = true
	m.currentOmega = 0 // the synthetic origin waypoint has omega 0
	m.mode = StartMd
	m.mu.Unlock()

	d.mu.Lock()
	d.driving = true
	d.mu.Unlock()
	return nil
}

// Stop requests a graceful end to the current job (spec §4.1 "any
// non-idle state"): if deceleration is configured, the motor ramps down
// over the braking distance computed from its current speed; otherwise
// it ends immediately, same as FastStop.
func (e *Engine) Stop(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Idle {
		return &ErrState{Reason: "motor has no active job"}
	}

	if m.alphaDown <= 0 {
		m.mode = JobReady
		return nil
	}

	brake := brakingDistanceSteps(m.currentSteptime, m.stepsPerRev, m.phiStep, m.alphaDown)
	m.numRest = uint64(math.Ceil(brake))
	if m.numRest == 0 {
		m.mode = JobReady
		return nil
	}
	m.mode = SpeedDown
	return nil
}

// FastStop ends the current job immediately, with no deceleration ramp
// (spec §4.1 "any non-idle state" -> JobReady).
func (e *Engine) FastStop(m *Motor) error {
	if m == nil {
		return &ErrConfiguration{Reason: "nil motor"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == Idle {
		return &ErrState{Reason: "motor has no active job"}
	}
	m.mode = JobReady
	return nil
}
