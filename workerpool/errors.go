package workerpool

import "fmt"

// Common errors returned by the worker pool.
var (
	// ErrAlreadyStarted is returned by Start when the pool has been started
	// before. A pool runs its workers once; build a new pool to run again.
	ErrAlreadyStarted = &PoolError{msg: "pool already started"}

	// ErrNotStarted is returned by Wait on a pool that was never started.
	ErrNotStarted = &PoolError{msg: "pool not started"}

	// ErrNilHandler is returned by New when no handler is given.
	ErrNilHandler = &PoolError{msg: "handler is nil"}

	// ErrNilQueue is returned by New when no queue is given.
	ErrNilQueue = &PoolError{msg: "queue is nil"}
)

// PoolError represents an error that occurred within the worker pool.
// It wraps underlying errors and provides context about pool operations.
type PoolError struct {
	msg string // Human-readable error message
	err error  // Underlying error (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("workerpool: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("workerpool: %s", e.msg)
}

// Unwrap returns the underlying error, allowing use with errors.Is and errors.As.
//
// Example:
//
//	if errors.Is(err, ErrValidation) {
//	    // the handler rejected an item and the pool stopped
//	}
func (e *PoolError) Unwrap() error {
	return e.err
}

// errInvalidConfig creates an error for invalid pool configuration.
// This is returned during pool creation when validation fails.
func errInvalidConfig(msg string) error {
	return &PoolError{msg: "invalid config: " + msg}
}

// errWorker creates an error for worker-related issues.
// Used to report which worker stopped the pool when StopOnError is set.
func errWorker(workerID int, err error) error {
	return &PoolError{
		msg: fmt.Sprintf("worker %d error", workerID),
		err: err,
	}
}
