package engine

import "math"

// phiStepOf returns 2*pi/S, or 0 when S is 0 (spec §7: numeric errors
// from a zero steps-per-revolution return 0 rather than faulting; callers
// treat 0 as "no constraint").
func phiStepOf(stepsPerRev uint32) float64 {
	if stepsPerRev == 0 {
		return 0
	}
	return 2 * math.Pi / float64(stepsPerRev)
}

// omegaFromSteptime converts a step period in microseconds to a target
// angular velocity in rad/s: omega = 2*pi*1e6 / (steptime * S).
func omegaFromSteptime(steptimeUs int, stepsPerRev uint32) float64 {
	if steptimeUs <= 0 || stepsPerRev == 0 {
		return 0
	}
	return 2 * math.Pi * 1e6 / (float64(steptimeUs) * float64(stepsPerRev))
}

// steptimeFromOmega is the inverse of omegaFromSteptime.
func steptimeFromOmega(omega float64, stepsPerRev uint32) int {
	if omega == 0 || stepsPerRev == 0 {
		return 0
	}
	return int(2 * math.Pi * 1e6 / (omega * float64(stepsPerRev)))
}

// steptimeFromRPM: steptime[us] = 1e6*60 / (S * rpm) (spec §6).
func steptimeFromRPM(rpm float64, stepsPerRev uint32) int {
	if rpm == 0 || stepsPerRev == 0 {
		return 0
	}
	return int(1e6 * 60 / (float64(stepsPerRev) * rpm))
}

// accelStep computes the next step's period while ramping up from rest
// (spec §4.3 "Acceleration from rest"). n is the number of steps already
// taken this ramp (so phi0 = n*phiStep is the angle already covered).
// Returns the new target angular velocity, the next period in
// microseconds, and whether the target omega has been reached (in which
// case omegaNew is omegaTarget, deltaUs is 0, and the caller uses its own
// steptime as the period).
func accelStep(n uint64, phiStep, alphaUp, omegaCurrent, omegaTarget float64) (omegaNew float64, deltaUs int, reachedTarget bool) {
	if phiStep <= 0 || alphaUp <= 0 {
		return omegaTarget, 0, true
	}
	phi0 := float64(n) * phiStep
	omegaNew = math.Sqrt(2 * alphaUp * (phi0 + phiStep))
	if omegaNew >= omegaTarget {
		return omegaTarget, 0, true
	}
	denom := omegaNew + omegaCurrent
	if denom <= 0 {
		return omegaNew, 0, false
	}
	dt := 2 * phiStep / denom
	return omegaNew, int(dt * 1e6), false
}

// decelStep computes the next step's period while ramping down to rest
// (spec §4.3 "Deceleration to rest"). numRest is the steps remaining
// before the job ends.
func decelStep(numRest uint64, phiStep, alphaDown float64) (deltaUs int) {
	if phiStep <= 0 || alphaDown <= 0 || numRest == 0 {
		return 0
	}
	phi1 := float64(numRest) * phiStep
	phi0 := phi1 - phiStep
	if phi0 < 0 {
		phi0 = 0
	}
	dt := math.Sqrt(2*phi1/alphaDown) - math.Sqrt(2*phi0/alphaDown)
	if dt < 0 {
		dt = 0
	}
	return int(dt * 1e6)
}

// brakingDistanceSteps returns the number of steps required to decelerate
// to rest from the given current steptime, using alphaDown (spec §4.3
// "Braking distance").
func brakingDistanceSteps(currentSteptimeUs int, stepsPerRev uint32, phiStep, alphaDown float64) float64 {
	if phiStep <= 0 || alphaDown <= 0 {
		return 0
	}
	omega := omegaFromSteptime(currentSteptimeUs, stepsPerRev)
	phiBrake := (omega * omega) / (2 * alphaDown)
	return phiBrake / phiStep
}

// mdSegmentStep computes the next step's signed angular velocity and
// period for a motion-diagram segment with acceleration alphaSeg (spec
// §4.3 "Motion-diagram step"). omegaCurrent is the motor's signed current
// angular velocity. Returns the new signed omega and the period in
// microseconds (always non-negative).
func mdSegmentStep(omegaCurrent, omegaSeg, alphaSeg, phiStep float64) (omegaNew float64, deltaUs int) {
	if phiStep <= 0 {
		return omegaSeg, 0
	}
	if alphaSeg == 0 {
		if omegaSeg == 0 {
			return 0, 0
		}
		dt := phiStep / math.Abs(omegaSeg)
		return omegaSeg, int(dt * 1e6)
	}

	var k float64
	switch {
	case omegaCurrent > 0, omegaCurrent == 0 && alphaSeg >= 0:
		k = 1
	default:
		k = -1
	}

	radicand := omegaCurrent*omegaCurrent + 2*alphaSeg*k*phiStep
	if radicand < 0 {
		radicand = 0
	}
	omegaNew = k * math.Sqrt(radicand)

	denom := omegaCurrent + omegaNew
	if denom == 0 {
		return omegaNew, 0
	}
	dt := (2 * k * phiStep) / denom
	return omegaNew, int(math.Abs(dt) * 1e6)
}
