package engine

import "math"

// insertWaypoint is the shared body behind AddByOmega/AddByHz/AddByRPM:
// normalize to (omega, t), validate monotone time, insert a synthetic
// zero-crossing waypoint when the sign of omega flips, then append and
// update the diagram's running aggregates (spec §4.6).
func (d *Diagram) insertWaypoint(omega, t float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dataIncorrect != 0 {
		return &ErrData{Reason: "diagram already marked data_incorrect"}
	}

	last := d.waypoints[len(d.waypoints)-1]

	if t < last.T {
		d.dataIncorrect = len(d.waypoints) + 1
		return &ErrData{Reason: "waypoint time decreases relative to the previous waypoint"}
	}

	if signOf(last.Omega) != 0 && signOf(omega) != 0 && signOf(last.Omega) != signOf(omega) {
		denom := math.Abs(omega - last.Omega)
		if denom > 0 {
			t0 := last.T + math.Abs(last.Omega)*(t-last.T)/denom
			d.appendWaypoint(t0, 0, true)
			last = d.waypoints[len(d.waypoints)-1]
		}
	}

	d.appendWaypoint(t, omega, false)
	return nil
}

// appendWaypoint fills in the derived segment fields relative to the
// current last waypoint and updates the diagram aggregates. Caller holds d.mu.
func (d *Diagram) appendWaypoint(t, omega float64, synthetic bool) {
	prev := d.waypoints[len(d.waypoints)-1]

	wp := Waypoint{
		Omega:     omega,
		T:         t,
		synthetic: synthetic,
	}
	wp.DeltaOmega = omega - prev.Omega
	wp.DeltaT = t - prev.T
	wp.DeltaPhi = (prev.Omega + omega) / 2 * wp.DeltaT
	if wp.DeltaT != 0 {
		wp.Alpha = wp.DeltaOmega / wp.DeltaT
	}
	wp.Phi = prev.Phi + wp.DeltaPhi

	phiStep := phiStep(d.motor)
	if phiStep > 0 {
		wp.Steps = int(math.Round(math.Abs(wp.DeltaPhi) / phiStep))
	}
	wp.SumSteps = prev.SumSteps + uint64(wp.Steps)

	d.waypoints = append(d.waypoints, wp)
	d.phiAll = wp.Phi
	if wp.Omega > d.maxOmega {
		d.maxOmega = wp.Omega
	}
	if wp.Omega < d.minOmega {
		d.minOmega = wp.Omega
	}
	if wp.T > d.maxT {
		d.maxT = wp.T
	}
}

// phiStep returns the owning motor's step angle, or 0 if the diagram's
// motor has since been cleared (spec §9: diagrams outlive kill_motor via
// a cleared, non-owning back-reference).
func phiStep(m *Motor) float64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phiStep
}

func signOf(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// AddByOmega appends a waypoint given directly in rad/s and seconds.
func (e *Engine) AddByOmega(d *Diagram, omega, t float64) error {
	return d.insertWaypoint(omega, t)
}

// AddByHz appends a waypoint given in Hz (omega = 2*pi*f) and seconds.
func (e *Engine) AddByHz(d *Diagram, hz, t float64) error {
	return d.insertWaypoint(2*math.Pi*hz, t)
}

// AddByRPM appends a waypoint given in rpm (omega = 2*pi*rpm/60) and seconds.
func (e *Engine) AddByRPM(d *Diagram, rpm, t float64) error {
	return d.insertWaypoint(2*math.Pi*rpm/60, t)
}

// AddBySteps appends a waypoint given as a frequency in Hz and a
// cumulative step count; the waypoint's time is derived from the step
// delta and the average of the previous and new angular velocity (spec
// §4.6): deltaT = |2*deltaPhi / (omegaPrev + omegaNew)|, 0 when the delta
// is 0.
func (e *Engine) AddBySteps(d *Diagram, hz float64, cumulativeSteps int64) error {
	omega := 2 * math.Pi * hz

	d.mu.Lock()
	last := d.waypoints[len(d.waypoints)-1]
	ps := phiStep(d.motor)
	d.mu.Unlock()

	if ps <= 0 {
		return &ErrData{Reason: "motor has zero steps-per-revolution"}
	}

	deltaSteps := float64(cumulativeSteps) - float64(last.SumSteps)
	deltaPhi := deltaSteps * ps

	var deltaT float64
	denom := last.Omega + omega
	if deltaPhi != 0 && denom != 0 {
		deltaT = math.Abs(2 * deltaPhi / denom)
	}

	return d.insertWaypoint(omega, last.T+deltaT)
}

// NewDiagram creates an empty motion diagram attached to m, seeded with
// the synthetic (t=0, omega=0) origin waypoint (spec §3).
func (e *Engine) NewDiagram(m *Motor) (*Diagram, error) {
	if m == nil {
		return nil, &ErrConfiguration{Reason: "nil motor"}
	}
	d := &Diagram{
		id:    newID(),
		motor: m,
		waypoints: []Waypoint{{
			Omega:     0,
			T:         0,
			synthetic: true,
		}},
	}
	e.mu.Lock()
	e.diagrams[d.id] = d
	e.mu.Unlock()
	return d, nil
}

// KillDiagram destroys a diagram. Rejected while the diagram is actively
// driving its motor (spec §4.8).
func (e *Engine) KillDiagram(d *Diagram) error {
	d.mu.Lock()
	driving := d.driving
	d.mu.Unlock()
	if driving {
		return &ErrState{Reason: "diagram is actively driving its motor"}
	}

	e.mu.Lock()
	delete(e.diagrams, d.id)
	e.mu.Unlock()
	return nil
}

// KillAllDiagrams destroys every non-driving diagram.
func (e *Engine) KillAllDiagrams() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, d := range e.diagrams {
		d.mu.Lock()
		driving := d.driving
		d.mu.Unlock()
		if !driving {
			delete(e.diagrams, id)
		}
	}
}

// CountDiagrams returns the number of live diagrams.
func (e *Engine) CountDiagrams() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.diagrams)
}

// CountWaypoints returns the number of waypoints in d, including the
// synthetic origin and any inserted zero-crossings.
func (e *Engine) CountWaypoints(d *Diagram) int {
	return d.WaypointCount()
}

// clearMotorRef detaches any diagram still pointing at m, called from
// KillMotor (spec §4.8: "any diagram referring to the motor has its
// back-reference cleared so future start_md on that diagram fails cleanly").
func (e *Engine) clearMotorRef(m *Motor) {
	e.mu.RLock()
	diagrams := make([]*Diagram, 0, len(e.diagrams))
	for _, d := range e.diagrams {
		diagrams = append(diagrams, d)
	}
	e.mu.RUnlock()

	for _, d := range diagrams {
		d.mu.Lock()
		if d.motor == m {
			d.motor = nil
		}
		d.mu.Unlock()
	}
}
