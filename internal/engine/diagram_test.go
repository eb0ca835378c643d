package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(newFakeGPIO(), Config{RTPriority: 0, PinCore: -1, IdleSleep: 1}, nil)
}

func TestNewDiagramSeedsOrigin(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	d, err := e.NewDiagram(m)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CountWaypoints(d))
	assert.True(t, d.Valid())
}

func TestAddByOmegaMonotoneTime(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)
	d, err := e.NewDiagram(m)
	require.NoError(t, err)

	require.NoError(t, e.AddByOmega(d, 10, 1))
	require.NoError(t, e.AddByOmega(d, 20, 2))
	assert.Equal(t, 3, e.CountWaypoints(d))
	assert.True(t, d.Valid())
}

func TestAddByOmegaRejectsTimeGoingBackwards(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)
	d, err := e.NewDiagram(m)
	require.NoError(t, err)

	require.NoError(t, e.AddByOmega(d, 10, 2))
	err = e.AddByOmega(d, 10, 1)
	require.Error(t, err)
	assert.False(t, d.Valid())

	// Once marked data_incorrect, further insertions are rejected too.
	err = e.AddByOmega(d, 10, 5)
	require.Error(t, err)
}

func TestZeroCrossingInsertsSyntheticWaypoint(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)
	d, err := e.NewDiagram(m)
	require.NoError(t, err)

	require.NoError(t, e.AddByOmega(d, 10, 1))
	require.NoError(t, e.AddByOmega(d, -10, 3)) // crosses zero between t=1 and t=3

	// origin + 10@1 + synthetic zero-crossing + -10@3 = 4 waypoints.
	assert.Equal(t, 4, e.CountWaypoints(d))

	d.mu.Lock()
	mid := d.waypoints[2]
	d.mu.Unlock()
	assert.True(t, mid.synthetic)
	assert.Equal(t, 0.0, mid.Omega)
	assert.InDelta(t, 2.0, mid.T, 1e-9)
}

func TestAddByRPMAndHzAgreeWithAddByOmega(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	d1, _ := e.NewDiagram(m)
	require.NoError(t, e.AddByRPM(d1, 60, 1)) // 60rpm == 2*pi rad/s

	d2, _ := e.NewDiagram(m)
	require.NoError(t, e.AddByHz(d2, 1, 1)) // 1Hz == 2*pi rad/s

	d1.mu.Lock()
	omega1 := d1.waypoints[1].Omega
	d1.mu.Unlock()
	d2.mu.Lock()
	omega2 := d2.waypoints[1].Omega
	d2.mu.Unlock()
	assert.InDelta(t, omega1, omega2, 1e-9)
}

func TestKillDiagramRejectedWhileDriving(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)
	d, err := e.NewDiagram(m)
	require.NoError(t, err)
	require.NoError(t, e.AddByOmega(d, 10, 1))

	require.NoError(t, e.StartMotionDiagram(m, d))
	err = e.KillDiagram(d)
	require.Error(t, err)

	m.mu.Lock()
	m.mode = Idle
	m.mu.Unlock()
	d.mu.Lock()
	d.driving = false
	d.mu.Unlock()
	require.NoError(t, e.KillDiagram(d))
}

func TestClearMotorRefOnKillMotor(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.NewMotor(Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)
	d, err := e.NewDiagram(m)
	require.NoError(t, err)

	require.NoError(t, e.KillMotor(m))

	d.mu.Lock()
	motor := d.motor
	d.mu.Unlock()
	assert.Nil(t, motor)
}
