package engine

import (
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// run is the scheduler thread body (spec §4.5). It is started once by
// Init and exits when stopCh is closed. Grounded on two sources: the
// teacher's internal/engine/scheduler.go (package name, the
// context.CancelFunc-driven Start/Stop shape — here a plain close(chan)
// since there is no cron beneath it anymore) and the original C driver's
// run_A4988 thread (elevate to SCHED_FIFO once, then round-robin the
// motor collection, sleeping 1ms only when every motor is idle).
func (e *Engine) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	// A dedicated OS thread is required before any scheduling-policy or
	// CPU-affinity syscall: Go's scheduler is otherwise free to move this
	// goroutine to a different thread between calls, silently discarding
	// the elevation. Grounded on internal/hal/gpio_gpiocdev.go's SoftPWM
	// goroutine, which does the same for the same reason.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.cfg.RTPriority > 0 {
		if err := elevateScheduling(e.cfg.RTPriority, e.cfg.PinCore); err != nil {
			e.logger.Warn("real-time scheduling elevation denied, continuing with default policy", zap.Error(err))
		} else {
			e.logger.Info("scheduler thread elevated to SCHED_FIFO", zap.Int("priority", e.cfg.RTPriority))
		}
	}
	policy := schedulingPolicyName()
	e.schedPolicy.Store(policy)
	e.logger.Info("scheduler thread running", zap.String("policy", policy))

	idleSleep := time.Duration(e.cfg.IdleSleep) * time.Millisecond
	if idleSleep <= 0 {
		idleSleep = time.Millisecond
	}

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		anyActive := e.scanOnce()

		if !anyActive {
			select {
			case <-stopCh:
				return
			case <-time.After(idleSleep):
			}
		}
	}
}

// scanOnce advances every non-idle motor by one tick and reports whether
// any motor was active. It copies the motor order under the read lock and
// looks each motor up under the read lock again, so a concurrent
// NewMotor/KillMotor never changes the slice being walked and a motor
// removed before its turn is skipped (spec §5: the "collection frozen"
// flag's guarantee, here provided by the RWMutex rather than a separate
// flag).
func (e *Engine) scanOnce() bool {
	e.mu.RLock()
	order := make([]uuid.UUID, len(e.order))
	copy(order, e.order)
	e.mu.RUnlock()

	anyActive := false
	for _, id := range order {
		e.mu.RLock()
		m := e.motors[id]
		e.mu.RUnlock()
		if m == nil {
			continue
		}

		m.mu.Lock()
		idle := m.mode == Idle
		m.mu.Unlock()
		if idle {
			continue
		}

		anyActive = true
		e.tick(m)
	}
	return anyActive
}
