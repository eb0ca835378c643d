package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubuettemeier/a4988motion/internal/engine"
)

// nopGPIO satisfies engine.GPIO without touching real hardware; metrics
// only needs an Engine to register motors on, never to run its scheduler.
type nopGPIO struct{}

func (nopGPIO) ConfigureOutput(pin int) error                      { return nil }
func (nopGPIO) ConfigureInput(pin int) error                       { return nil }
func (nopGPIO) ConfigurePullup(pin int, mode engine.PullMode) error { return nil }
func (nopGPIO) Write(pin int, level bool) error                    { return nil }

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(nopGPIO{}, engine.Config{RTPriority: 0, PinCore: -1, IdleSleep: 1}, nil)
}

func TestNewMetricsWithNilEngine(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	assert.Empty(t, m.Motors())
}

func TestMotorsReflectsEngineRegistrations(t *testing.T) {
	eng := newTestEngine(t)
	mot, err := eng.NewMotor(engine.Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	m := NewMetrics(eng)
	snaps := m.Motors()
	require.Len(t, snaps, 1)
	assert.Equal(t, mot.ID().String(), snaps[0].ID)
	assert.Equal(t, "Idle", snaps[0].Mode)
	assert.False(t, snaps[0].Active)
}

func TestSnapshotIncludesSystemAndMotors(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.NewMotor(engine.Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	m := NewMetrics(eng)
	snap := m.Snapshot()

	system, ok := snap["system"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, system, "uptime_seconds")
	assert.Contains(t, system, "goroutines")

	motors, ok := snap["motors"].([]MotorSnapshot)
	require.True(t, ok)
	assert.Len(t, motors, 1)
}

func TestPrometheusFormatIncludesMotorGauges(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.NewMotor(engine.Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	m := NewMetrics(eng)
	out := m.PrometheusFormat()

	assert.Contains(t, out, "a4988motion_uptime_seconds")
	assert.Contains(t, out, "a4988motion_motor_stepcount")
	assert.Contains(t, out, "a4988motion_motor_position")
	assert.Contains(t, out, "a4988motion_motor_max_latency_us")
}

func TestRouterHealthzAndMotorsAndMetrics(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.NewMotor(engine.Pins{Enable: 1, Dir: 2, Step: 3}, 200)
	require.NoError(t, err)

	m := NewMetrics(eng)
	app := Router(m)

	for _, path := range []string{"/healthz", "/motors", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, "path %s", path)
	}
}
