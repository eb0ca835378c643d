package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhiStepOf(t *testing.T) {
	assert.Equal(t, 0.0, phiStepOf(0))
	assert.InDelta(t, 2*math.Pi/200, phiStepOf(200), 1e-12)
}

func TestSteptimeOmegaRoundTrip(t *testing.T) {
	const S = 200
	for _, steptime := range []int{500, 1000, 2500, 10000} {
		omega := omegaFromSteptime(steptime, S)
		got := steptimeFromOmega(omega, S)
		assert.InDelta(t, steptime, got, 1, "steptime=%d", steptime)
	}
}

func TestSteptimeFromRPM(t *testing.T) {
	// 1 rev/s == 60 rpm; with S=200 steps/rev that's steptime = 1e6/200 = 5000us.
	got := steptimeFromRPM(60, 200)
	assert.Equal(t, 5000, got)
}

func TestAccelStepReachesTarget(t *testing.T) {
	phiStep := phiStepOf(200)
	omegaTarget := omegaFromSteptime(1000, 200)

	var omega float64
	var n uint64
	reached := false
	for i := 0; i < 100000 && !reached; i++ {
		var deltaUs int
		omega, deltaUs, reached = accelStep(n, phiStep, 50, omega, omegaTarget)
		n++
		if !reached {
			require.Greater(t, deltaUs, 0)
		}
	}
	require.True(t, reached, "acceleration ramp never reached target speed")
	assert.Equal(t, omegaTarget, omega)
}

func TestAccelStepDisabledWhenAlphaZero(t *testing.T) {
	omegaNew, deltaUs, reached := accelStep(0, phiStepOf(200), 0, 0, 10)
	assert.True(t, reached)
	assert.Equal(t, 0, deltaUs)
	assert.Equal(t, 10.0, omegaNew)
}

func TestDecelStepToZero(t *testing.T) {
	phiStep := phiStepOf(200)
	numRest := uint64(50)
	for numRest > 0 {
		deltaUs := decelStep(numRest, phiStep, 50)
		require.GreaterOrEqual(t, deltaUs, 0)
		numRest--
	}
	assert.Equal(t, 0, decelStep(0, phiStep, 50))
}

func TestBrakingDistanceStepsIncreasesWithSpeed(t *testing.T) {
	phiStep := phiStepOf(200)
	slow := brakingDistanceSteps(5000, 200, phiStep, 50)
	fast := brakingDistanceSteps(500, 200, phiStep, 50)
	assert.Greater(t, fast, slow)
}

func TestMdSegmentStepZeroAlphaConstantSpeed(t *testing.T) {
	phiStep := phiStepOf(200)
	omegaNew, deltaUs := mdSegmentStep(10, 10, 0, phiStep)
	assert.Equal(t, 10.0, omegaNew)
	assert.InDelta(t, float64(phiStep/10*1e6), float64(deltaUs), 1)
}

func TestMdSegmentStepSignSelection(t *testing.T) {
	phiStep := phiStepOf(200)

	// Positive current velocity: k must stay +1 even under negative segment accel.
	omegaNew, _ := mdSegmentStep(5, 0, -20, phiStep)
	assert.GreaterOrEqual(t, omegaNew, 0.0)

	// Negative current velocity: k must stay -1.
	omegaNew, _ = mdSegmentStep(-5, 0, 20, phiStep)
	assert.LessOrEqual(t, omegaNew, 0.0)

	// At rest, follow the segment's own acceleration sign.
	omegaNew, _ = mdSegmentStep(0, 0, 20, phiStep)
	assert.GreaterOrEqual(t, omegaNew, 0.0)
	omegaNew, _ = mdSegmentStep(0, 0, -20, phiStep)
	assert.LessOrEqual(t, omegaNew, 0.0)
}
