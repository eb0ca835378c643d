//go:build linux
// +build linux

package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// elevateScheduling requests SCHED_FIFO at the given priority for the
// calling OS thread (must already be locked via runtime.LockOSThread),
// and optionally pins it to a single CPU core. Grounded on the original
// driver's sched_setscheduler(SCHED_FIFO, {95})/CPU_SET sequence; the
// request uses pid 0, meaning "the calling thread", matching the C code's
// sched_setscheduler(0, ...).
func elevateScheduling(priority, pinCore int) error {
	if priority <= 0 {
		return nil
	}

	param := &unix.SchedParam{Priority: int32(priority)}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, param); err != nil {
		return &ErrOS{Reason: fmt.Sprintf("sched_setscheduler(SCHED_FIFO, %d): %v", priority, err)}
	}

	if pinCore >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(pinCore)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return &ErrOS{Reason: fmt.Sprintf("sched_setaffinity(core %d): %v", pinCore, err)}
		}
	}

	return nil
}

// schedulingPolicyName reports the scheduling policy currently in effect
// for the calling thread, for diagnostics (spec §9, grounded on the
// original driver's printSchedulingPolicy()).
func schedulingPolicyName() string {
	policy, err := unix.SchedGetscheduler(0)
	if err != nil {
		return "unknown"
	}
	switch policy {
	case unix.SCHED_FIFO:
		return "SCHED_FIFO"
	case unix.SCHED_RR:
		return "SCHED_RR"
	default:
		return "SCHED_OTHER"
	}
}
