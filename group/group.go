// Package group runs a set of goroutines as one unit: they share a context,
// their panics are recovered into errors, and Wait reports their failures
// according to an ErrorMode.
package group

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tahsin716/handoff"
)

// Group manages a collection of goroutines with structured concurrency
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	config Config

	// Error handling
	errors    []error
	errorsMux sync.Mutex
	failOnce  sync.Once

	// State tracking
	running   handoff.Counter
	completed handoff.Counter
	failed    handoff.Counter
}

// Stats provides information about goroutine execution
type Stats struct {
	Running   int64
	Completed int64
	Failed    int64
}

// New creates a new Group with the given options
func New(opts ...Option) *Group {
	return NewWithContext(context.Background(), opts...)
}

// NewWithContext creates a new Group with a parent context. Cancelling the
// parent cancels the context passed to every goroutine of the group.
func NewWithContext(ctx context.Context, opts ...Option) *Group {
	if ctx == nil {
		ctx = context.Background()
	}
	groupCtx, cancel := context.WithCancel(ctx)
	return newGroup(groupCtx, cancel, opts)
}

// WithTimeout creates a Group whose context is cancelled after d.
func WithTimeout(d time.Duration, opts ...Option) *Group {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	return newGroup(ctx, cancel, opts)
}

// WithDeadline creates a Group whose context expires at deadline.
func WithDeadline(deadline time.Time, opts ...Option) *Group {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	return newGroup(ctx, cancel, opts)
}

func newGroup(ctx context.Context, cancel context.CancelFunc, opts []Option) *Group {
	return &Group{
		ctx:    ctx,
		cancel: cancel,
		config: BuildConfig(opts),
	}
}

// Go runs fn in a new goroutine with panic recovery. A recovered panic is
// reported as a *PanicError.
func (g *Group) Go(fn func(context.Context) error) {
	g.running.Increment()
	g.wg.Add(1)

	go func() {
		defer func() {
			g.running.Decrement()
			g.completed.Increment()
			g.wg.Done()
		}()

		// Handle panics
		defer func() {
			if r := recover(); r != nil {
				g.failed.Increment()
				g.handleError(&PanicError{
					Value: r,
					Stack: string(debug.Stack()),
				})
			}
		}()

		if err := fn(g.ctx); err != nil {
			g.failed.Increment()
			g.handleError(err)
		}
	}()
}

// Wait waits for all goroutines to complete and returns their errors as
// selected by the error mode: the first error for FailFast, an
// *AggregateError for CollectAll, nil for IgnoreErrors.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.Stop()

	if g.config.errorMode == IgnoreErrors {
		return nil
	}

	g.errorsMux.Lock()
	defer g.errorsMux.Unlock()

	if len(g.errors) == 0 {
		return nil
	}
	if g.config.errorMode == FailFast {
		return g.errors[0]
	}
	collected := make([]error, len(g.errors))
	copy(collected, g.errors)
	return &AggregateError{Errors: collected}
}

// Stop cancels the group context, signaling all goroutines to stop
func (g *Group) Stop() {
	g.cancel()
}

// Context returns the context shared by the group's goroutines.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Stats returns current statistics about the group
func (g *Group) Stats() Stats {
	return Stats{
		Running:   g.running.Load(),
		Completed: g.completed.Load(),
		Failed:    g.failed.Load(),
	}
}

// handleError processes an error according to the error mode
func (g *Group) handleError(err error) {
	switch g.config.errorMode {
	case IgnoreErrors:
		return
	case FailFast:
		g.failOnce.Do(func() {
			g.errorsMux.Lock()
			g.errors = append(g.errors, err)
			g.errorsMux.Unlock()
			g.cancel()
		})
	case CollectAll:
		g.errorsMux.Lock()
		g.errors = append(g.errors, err)
		g.errorsMux.Unlock()
	}
}
