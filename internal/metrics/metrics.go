// Package metrics exposes a read-only snapshot of the engine's per-motor
// counters, plus generic process stats, through an optional fiber debug
// router (SPEC_FULL.md §3, disabled by default).
package metrics

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ubuettemeier/a4988motion/internal/engine"
)

// MotorSnapshot is a point-in-time read of one motor's counters, safe to
// marshal to JSON or format as a Prometheus sample.
type MotorSnapshot struct {
	ID               string `json:"id"`
	Mode             string `json:"mode"`
	Direction        string `json:"direction"`
	Active           bool   `json:"active"`
	CurrentStepcount uint64 `json:"current_stepcount"`
	RealStepcount    int64  `json:"real_stepcount"`
	MaxLatencyUs     int64  `json:"max_latency_us"`
	RuntimeUs        int64  `json:"runtime_us"`
}

// Metrics holds process-wide system stats alongside a reference to the
// engine it snapshots motors from. Unlike the flow-graph teacher's
// Metrics (counters the caller incremented by hand), the motor counters
// here are always read fresh off the engine: there is nothing to
// increment, only to poll.
type Metrics struct {
	mu        sync.RWMutex
	startTime time.Time
	eng       *engine.Engine

	uptime         int64
	memoryUsed     uint64
	memoryTotal    uint64
	goroutineCount int
}

// NewMetrics creates a Metrics snapshot source bound to eng. eng may be
// nil, in which case Motors() always returns an empty slice (useful for
// tests of the HTTP surface alone).
func NewMetrics(eng *engine.Engine) *Metrics {
	return &Metrics{
		startTime: time.Now(),
		eng:       eng,
	}
}

// Refresh samples process-wide system stats. Cheap enough to call on
// every /metrics request.
func (m *Metrics) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uptime = int64(time.Since(m.startTime).Seconds())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryUsed = memStats.Alloc
	m.memoryTotal = memStats.Sys

	m.goroutineCount = runtime.NumGoroutine()
}

// Motors returns a snapshot of every motor currently registered with the
// bound engine.
func (m *Metrics) Motors() []MotorSnapshot {
	if m.eng == nil {
		return nil
	}
	motors := m.eng.Motors()
	out := make([]MotorSnapshot, 0, len(motors))
	for _, mot := range motors {
		out = append(out, MotorSnapshot{
			ID:               mot.ID().String(),
			Mode:             mot.Mode().String(),
			Direction:        mot.Direction().String(),
			Active:           mot.Active(),
			CurrentStepcount: mot.CurrentStepcount(),
			RealStepcount:    mot.RealStepcount(),
			MaxLatencyUs:     mot.MaxLatency(),
			RuntimeUs:        mot.Runtime(),
		})
	}
	return out
}

// Snapshot returns the full JSON-able payload served at /metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.Refresh()

	m.mu.RLock()
	system := map[string]interface{}{
		"uptime_seconds":     m.uptime,
		"memory_used_bytes":  m.memoryUsed,
		"memory_total_bytes": m.memoryTotal,
		"memory_used_mb":     m.memoryUsed / 1024 / 1024,
		"goroutines":         m.goroutineCount,
	}
	m.mu.RUnlock()

	return map[string]interface{}{
		"system": system,
		"motors": m.Motors(),
	}
}

// PrometheusFormat renders the snapshot in the Prometheus text exposition
// format: per-motor gauges for step count, position and worst latency
// (runtime is not exported), plus the uptime, memory-used and goroutine
// gauges.
func (m *Metrics) PrometheusFormat() string {
	m.Refresh()

	m.mu.RLock()
	uptime, memUsed, goroutines := m.uptime, m.memoryUsed, m.goroutineCount
	m.mu.RUnlock()

	var b strings.Builder
	b.WriteString("# HELP a4988motion_uptime_seconds Process uptime in seconds\n")
	b.WriteString("# TYPE a4988motion_uptime_seconds gauge\n")
	b.WriteString("a4988motion_uptime_seconds " + formatInt64(uptime) + "\n\n")

	b.WriteString("# HELP a4988motion_memory_used_bytes Memory used in bytes\n")
	b.WriteString("# TYPE a4988motion_memory_used_bytes gauge\n")
	b.WriteString("a4988motion_memory_used_bytes " + formatUint64(memUsed) + "\n\n")

	b.WriteString("# HELP a4988motion_goroutines Number of goroutines\n")
	b.WriteString("# TYPE a4988motion_goroutines gauge\n")
	b.WriteString("a4988motion_goroutines " + formatInt(goroutines) + "\n\n")

	motors := m.Motors()
	b.WriteString("# HELP a4988motion_motor_stepcount Pulses emitted in the current job\n")
	b.WriteString("# TYPE a4988motion_motor_stepcount gauge\n")
	for _, mot := range motors {
		fmt.Fprintf(&b, "a4988motion_motor_stepcount{motor=%q} %s\n", mot.ID, formatUint64(mot.CurrentStepcount))
	}
	b.WriteString("\n# HELP a4988motion_motor_position Signed step position\n")
	b.WriteString("# TYPE a4988motion_motor_position gauge\n")
	for _, mot := range motors {
		fmt.Fprintf(&b, "a4988motion_motor_position{motor=%q} %s\n", mot.ID, formatInt64(mot.RealStepcount))
	}
	b.WriteString("\n# HELP a4988motion_motor_max_latency_us Worst observed scheduling slack, microseconds\n")
	b.WriteString("# TYPE a4988motion_motor_max_latency_us gauge\n")
	for _, mot := range motors {
		fmt.Fprintf(&b, "a4988motion_motor_max_latency_us{motor=%q} %s\n", mot.ID, formatInt64(mot.MaxLatencyUs))
	}

	return b.String()
}

// Router builds the optional debug HTTP surface SPEC_FULL.md §3 calls
// for: /healthz, /motors, /metrics. Mounted by cmd/motiond only when
// debug.enabled is set, grounded on the teacher's fiber usage in
// internal/api.
func Router(m *Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/motors", func(c *fiber.Ctx) error {
		return c.JSON(m.Motors())
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		return c.SendString(m.PrometheusFormat())
	})

	return app
}

func formatInt64(n int64) string   { return fmt.Sprintf("%d", n) }
func formatUint64(n uint64) string { return fmt.Sprintf("%d", n) }
func formatInt(n int) string       { return fmt.Sprintf("%d", n) }
