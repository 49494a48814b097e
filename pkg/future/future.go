// Package future defines the future contract shared by every executor
// backend, together with a completable Promise implementation and the
// Wait/AsCompleted helpers built on top of the contract.
package future

import (
	"context"

	"github.com/pkg/errors"
)

// ErrCancelled is returned by Result and Err when a future was cancelled
// before it produced a value.
var ErrCancelled = errors.New("future cancelled")

// Future is the minimal contract an executor-produced handle must satisfy.
// Higher layers depend only on this interface, never on a concrete backend
// type, so the same engine can drive any pool.
type Future interface {
	// Done reports whether the future reached a terminal state
	// (result, error or cancellation).
	Done() bool

	// Cancel attempts to cancel the future. It returns true only if the
	// underlying work had not started yet and the cancellation took effect.
	Cancel() bool

	// Cancelled reports whether the future was cancelled.
	Cancelled() bool

	// Result blocks until the future is done or ctx expires. It returns
	// the value, the error the work produced, ErrCancelled if the future
	// was cancelled, or ctx.Err() on timeout.
	Result(ctx context.Context) (any, error)

	// Err blocks until the future is done or ctx expires and returns the
	// error outcome: nil on success, the task error on failure,
	// ErrCancelled on cancellation, ctx.Err() on timeout.
	Err(ctx context.Context) error

	// OnDone registers fn to be invoked exactly once after the future
	// completes, possibly from a different goroutine than the caller.
	// Registering on an already-done future invokes fn immediately.
	OnDone(fn func(Future))
}
