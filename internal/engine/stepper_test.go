package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTickTestEngine(t *testing.T) (*Engine, *fakeGPIO, *fakeClock) {
	t.Helper()
	gpio := newFakeGPIO()
	clock := newFakeClock()
	e := New(gpio, Config{RTPriority: 0}, nil).WithClock(clock)
	return e, gpio, clock
}

func TestConstantSpeedBoundedJobEmitsExactStepsThenIdles(t *testing.T) {
	e, gpio, clock := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 1000, 0, 0, 3, CW))
	require.NoError(t, e.Start(m))

	e.tick(m) // StartRun -> Run (no ramp configured)
	assert.Equal(t, Run, m.Mode())

	for i := 0; i < 3; i++ {
		clock.Advance(1000 * time.Microsecond)
		e.tick(m)
	}
	assert.Equal(t, JobReady, m.Mode())
	assert.Equal(t, 3, gpio.risingEdges(3))
	assert.Equal(t, uint64(3), m.CurrentStepcount())
	assert.Equal(t, int64(3), m.RealStepcount())

	e.tick(m) // finalize JobReady -> Idle
	assert.Equal(t, Idle, m.Mode())
	assert.False(t, m.Active())
}

func TestConstantSpeedRespectsPeriodBeforeClockAdvance(t *testing.T) {
	e, gpio, _ := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 1000, 0, 0, 0, CW)) // endless
	require.NoError(t, e.Start(m))
	e.tick(m) // StartRun -> Run

	e.tick(m) // no time elapsed yet: must not emit
	assert.Equal(t, 0, gpio.risingEdges(3))
	assert.Equal(t, Run, m.Mode())
}

func TestRampedBoundedJobAcceleratesCruisesDeceleratesAndStops(t *testing.T) {
	e, gpio, clock := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 500, 200, 200, 400, CW))
	require.NoError(t, e.Start(m))

	seenModes := map[Mode]bool{}
	for i := 0; i < 20000 && m.Mode() != Idle; i++ {
		e.tick(m)
		seenModes[m.Mode()] = true
		clock.Advance(50 * time.Microsecond)
	}
	require.Equal(t, Idle, m.Mode(), "job never reached Idle within the iteration budget")

	assert.True(t, seenModes[SpeedUp] || seenModes[RunSpeedUp], "ramp-up states never observed")
	assert.True(t, seenModes[SpeedDown] || seenModes[RunSpeedDown], "ramp-down states never observed")
	assert.Equal(t, uint64(400), m.CurrentStepcount())
	assert.Equal(t, int64(400), m.RealStepcount())
	assert.Equal(t, 400, gpio.risingEdges(3))
}

func TestMotionDiagramPlaybackEndsIdleAndTracksSign(t *testing.T) {
	e, _, clock := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	d, err := e.NewDiagram(m)
	require.NoError(t, err)
	require.NoError(t, e.AddByOmega(d, 20, 1))
	require.NoError(t, e.AddByOmega(d, 20, 2))
	require.NoError(t, e.AddByOmega(d, 0, 3))

	require.NoError(t, e.StartMotionDiagram(m, d))

	for i := 0; i < 500000 && m.Mode() != Idle; i++ {
		e.tick(m)
		clock.Advance(50 * time.Microsecond)
	}
	require.Equal(t, Idle, m.Mode(), "motion-diagram job never reached Idle within the iteration budget")
	assert.GreaterOrEqual(t, m.RealStepcount(), int64(0))

	d.mu.Lock()
	driving := d.driving
	d.mu.Unlock()
	assert.False(t, driving)
}

func TestGPIOFailureEndsJobWithoutCrashingScheduler(t *testing.T) {
	e, gpio, clock := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 1000, 0, 0, 0, CW))
	require.NoError(t, e.Start(m))
	e.tick(m) // StartRun -> Run

	gpio.mu.Lock()
	gpio.failOn[3] = true
	gpio.mu.Unlock()

	clock.Advance(1000 * time.Microsecond)
	e.tick(m)
	assert.Equal(t, JobReady, m.Mode())

	e.tick(m)
	assert.Equal(t, Idle, m.Mode())
}

func TestStopWithoutDecelEndsImmediately(t *testing.T) {
	e, _, _ := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 1000, 0, 0, 0, CW))
	require.NoError(t, e.Start(m))
	e.tick(m)

	require.NoError(t, e.Stop(m))
	assert.Equal(t, JobReady, m.Mode())
}

func TestStopWithDecelRampsDown(t *testing.T) {
	e, _, clock := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 500, 0, 200, 0, CW)) // endless, decel configured
	require.NoError(t, e.Start(m))
	e.tick(m) // StartRun -> Run (no ramp-up requested)
	clock.Advance(500 * time.Microsecond)
	e.tick(m) // one cruise pulse, still Run

	require.NoError(t, e.Stop(m))
	assert.Equal(t, SpeedDown, m.Mode())

	for i := 0; i < 20000 && m.Mode() != Idle; i++ {
		e.tick(m)
		clock.Advance(50 * time.Microsecond)
	}
	assert.Equal(t, Idle, m.Mode())
}

func TestFastStopEndsImmediatelyRegardlessOfDecel(t *testing.T) {
	e, _, _ := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SetParams(m, 1000, 0, 200, 0, CW))
	require.NoError(t, e.Start(m))
	e.tick(m)

	require.NoError(t, e.FastStop(m))
	assert.Equal(t, JobReady, m.Mode())
}

func TestSingleStepOnlyWhileIdle(t *testing.T) {
	e, gpio, _ := newTickTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	require.NoError(t, e.SingleStep(m))
	assert.Equal(t, 1, gpio.risingEdges(3))

	require.NoError(t, e.SetParams(m, 1000, 0, 0, 0, CW))
	require.NoError(t, e.Start(m))
	e.tick(m)
	err = e.SingleStep(m)
	require.Error(t, err)
}
