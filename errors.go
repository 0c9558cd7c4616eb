package handoff

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by queues and lock sets.
var (
	// ErrQueueClosed is returned by Add when the queue has been completed.
	// Producers blocked in Add when Complete runs receive it as well.
	//
	// Example:
	//  q.Complete()
	//  if err := q.Add(item); errors.Is(err, handoff.ErrQueueClosed) {
	//      log.Println("queue no longer accepts work")
	//  }
	ErrQueueClosed = &Error{msg: "queue is closed"}

	// ErrQueueDrained is returned by Take once the queue is closed and empty.
	// Items still queued at Complete are always returned before it.
	ErrQueueDrained = &Error{msg: "queue is closed and drained"}

	// ErrTimeout is returned when a bounded wait expires before its condition
	// holds. It is the only retryable error; the wrapped cause is the context
	// error (context.DeadlineExceeded or context.Canceled).
	//
	// Example:
	//  err := q.AddTimeout(item, 50*time.Millisecond)
	//  if handoff.IsRetryable(err) {
	//      // back off and try again
	//  }
	ErrTimeout = &Error{msg: "operation timed out"}

	// ErrQueueFull is returned by the non-blocking TryAdd when Add would block.
	ErrQueueFull = &Error{msg: "queue is full"}

	// ErrQueueEmpty is returned by the non-blocking TryTake when Take would block.
	ErrQueueEmpty = &Error{msg: "queue is empty"}

	// ErrInvalidCapacity is returned when a queue is created with capacity <= 0.
	ErrInvalidCapacity = &Error{msg: "capacity must be positive"}

	// ErrSameQueue is returned by Transfer when source and destination are one queue.
	ErrSameQueue = &Error{msg: "source and destination are the same queue"}
)

// Error represents an error raised by a queue or lock set operation.
//
// Error supports errors.Is against the sentinel values above: an Error matches
// a sentinel when both carry the same message, regardless of the wrapped cause.
// errors.Unwrap returns the cause, so a timeout also matches the context error
// that produced it.
type Error struct {
	msg string // Human-readable error message
	err error  // Underlying error (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("handoff: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("handoff: %s", e.msg)
}

// Unwrap returns the underlying error, allowing use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is the sentinel this error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.err == nil && t.msg == e.msg
}

// IsRetryable reports whether err is a timeout that the caller may retry.
// Closed and drained errors are terminal for the call that received them.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// errTimeout wraps the context error that ended a wait.
func errTimeout(cause error) error {
	return &Error{msg: ErrTimeout.msg, err: cause}
}

// LockOrderViolation is the panic value raised when a multi-resource
// acquisition would break the canonical lock order: a handle owned by a
// different LockSet, or an ordering function that is not total over the
// requested handles. It signals a programming error and is never returned as
// an error.
type LockOrderViolation struct {
	Reason  string
	Handles []string
}

// Error implements the error interface so recovered values print usefully.
func (v *LockOrderViolation) Error() string {
	if len(v.Handles) == 0 {
		return "handoff: lock order violation: " + v.Reason
	}
	return fmt.Sprintf("handoff: lock order violation: %s [%s]", v.Reason, strings.Join(v.Handles, ", "))
}

func violation(reason string, handles ...*Handle) *LockOrderViolation {
	names := make([]string, 0, len(handles))
	for _, h := range handles {
		names = append(names, h.String())
	}
	return &LockOrderViolation{Reason: reason, Handles: names}
}
