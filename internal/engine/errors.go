package engine

import "github.com/google/uuid"

func newID() uuid.UUID { return uuid.New() }

// The four error kinds from spec §7. Each is a distinct type so callers
// can distinguish them with errors.As; none of them ever mutate engine
// or motor state before returning.

// ErrConfiguration reports a request with missing or invalid static
// configuration (a nil handle, an invalid pin, a target that was never set).
type ErrConfiguration struct{ Reason string }

func (e *ErrConfiguration) Error() string { return "configuration error: " + e.Reason }

// ErrState reports a request that is invalid for the motor's/diagram's
// current state (start while not idle, kill while running).
type ErrState struct{ Reason string }

func (e *ErrState) Error() string { return "state error: " + e.Reason }

// ErrData reports a motion diagram that failed validation (spec §4.6/§4.8).
type ErrData struct{ Reason string }

func (e *ErrData) Error() string { return "data error: " + e.Reason }

// ErrOS reports a failure from the surrounding operating system: real-time
// scheduling elevation denied, or (wrapped) a GPIO I/O error. OS errors
// are logged and degrade gracefully; they are never fatal to the process.
type ErrOS struct{ Reason string }

func (e *ErrOS) Error() string { return "os error: " + e.Reason }
