// Package workerpool runs a fixed set of workers over a handoff.BoundedQueue.
//
// Each worker takes items from the shared queue and passes them to a
// Handler; completed work is reported through atomic counters. Shutdown is
// cooperative: Shutdown completes the queue, workers drain what is left, and
// each worker exits when Take reports the queue drained.
//
//	q, _ := handoff.NewBoundedQueue[Job](128)
//	pool, err := workerpool.New(q, func(ctx context.Context, j Job) error {
//	    return j.Run(ctx)
//	}, workerpool.WithNumWorkers(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pool.Start(ctx)
//
//	for _, j := range jobs {
//	    q.Add(j)
//	}
//	err = pool.Shutdown(ctx) // returns once every queued job was handled
package workerpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tahsin716/handoff"
	"github.com/tahsin716/handoff/group"
)

// Handler processes one item taken from the queue.
type Handler[T any] func(ctx context.Context, item T) error

// PoolState represents pool lifecycle states
type PoolState uint32

const (
	poolStateIdle PoolState = iota
	poolStateRunning
	poolStateDraining
	poolStateStopped
)

func (s PoolState) String() string {
	switch s {
	case poolStateIdle:
		return "IDLE"
	case poolStateRunning:
		return "RUNNING"
	case poolStateDraining:
		return "DRAINING"
	case poolStateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Pool is a fixed-size worker pool consuming a shared bounded queue.
type Pool[T any] struct {
	id      string
	config  Config
	queue   *handoff.BoundedQueue[T]
	handler Handler[T]

	// Lifecycle management
	state   atomic.Value // PoolState
	group   *group.Group
	done    chan struct{}
	waitErr error

	workersMu    sync.Mutex
	workers      []*worker[T]
	nextWorkerID handoff.Counter

	// Metrics
	metrics poolMetrics
}

// poolMetrics tracks pool-wide statistics
type poolMetrics struct {
	processed handoff.Counter
	failed    handoff.Counter
	panicked  handoff.Counter
	inFlight  handoff.Counter

	// Latency tracking, in microseconds
	latencySum   handoff.Counter
	latencyCount handoff.Counter
	latencyMax   handoff.Counter
}

// New creates a pool whose workers take from queue and call handler.
// It returns an error if the configuration is invalid.
//
// Example:
//
//	pool, err := workerpool.New(q, handle,
//	    workerpool.WithNumWorkers(4),
//	    workerpool.WithStopOnError(true),
//	)
func New[T any](queue *handoff.BoundedQueue[T], handler Handler[T], opts ...Option) (*Pool[T], error) {
	if queue == nil {
		return nil, ErrNilQueue
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool[T]{
		id:      uuid.NewString(),
		config:  cfg,
		queue:   queue,
		handler: handler,
		done:    make(chan struct{}),
	}
	p.state.Store(poolStateIdle)
	return p, nil
}

// Start launches NumWorkers workers. Cancelling ctx stops them without
// draining the queue; use Shutdown for a draining stop.
//
// Returns ErrAlreadyStarted if Start was called before.
func (p *Pool[T]) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(poolStateIdle, poolStateRunning) {
		return ErrAlreadyStarted
	}

	mode := group.CollectAll
	if p.config.StopOnError {
		mode = group.FailFast
	}
	p.group = group.NewWithContext(ctx, group.WithErrorMode(mode))

	for i := 0; i < p.config.NumWorkers; i++ {
		p.group.Go(p.Work)
	}
	p.config.Logger.Printf("pool %s started with %d workers", p.id, p.config.NumWorkers)

	go func() {
		p.waitErr = p.group.Wait()
		p.state.Store(poolStateStopped)
		stats := p.Stats()
		p.config.Logger.Printf("pool %s stopped: processed=%d failed=%d panicked=%d",
			p.id, stats.Processed, stats.Failed, stats.Panicked)
		close(p.done)
	}()
	return nil
}

// Work runs one worker loop in the calling goroutine until the queue is
// drained or ctx ends. Start uses it for every worker; environments that
// schedule their own goroutines may call it directly. Such workers show up
// in Stats but are not awaited by Wait or Shutdown.
//
// Work returns nil on drain or cancellation. With StopOnError it returns the
// first handler error, wrapped with the worker ID.
func (p *Pool[T]) Work(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w := p.newWorker()
	return w.run(ctx)
}

// Shutdown completes the queue and waits until the workers have drained it
// and exited, or until ctx ends. It returns the error Wait would return, or
// ctx.Err() if ctx ends first. Shutdown on a pool that was never started
// completes the queue and returns nil.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.queue.Complete()

	if p.state.CompareAndSwap(poolStateIdle, poolStateStopped) {
		close(p.done)
		return nil
	}
	p.state.CompareAndSwap(poolStateRunning, poolStateDraining)

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.done:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every worker launched by Start has exited and returns
// their combined error. It does not complete the queue.
func (p *Pool[T]) Wait() error {
	if p.state.Load().(PoolState) == poolStateIdle {
		return ErrNotStarted
	}
	<-p.done
	return p.waitErr
}

// Done returns a channel closed once the pool has stopped.
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// ID returns the pool's unique identifier.
func (p *Pool[T]) ID() string {
	return p.id
}

// NumWorkers returns the number of workers launched by Start.
func (p *Pool[T]) NumWorkers() int {
	return p.config.NumWorkers
}

// IsShutdown returns true once every worker launched by Start has exited.
func (p *Pool[T]) IsShutdown() bool {
	return p.state.Load().(PoolState) == poolStateStopped
}

// process runs the handler on one item with panic recovery
func (p *Pool[T]) process(ctx context.Context, w *worker[T], item T) (err error) {
	p.metrics.inFlight.Increment()
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			p.metrics.panicked.Increment()
			w.failed.Increment()
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r)
			} else {
				p.config.Logger.Printf("pool %s: worker %d: panic recovered: %v\n%s", p.id, w.id, r, stack)
			}
			err = &group.PanicError{Value: r, Stack: string(stack)}
		}
		p.metrics.inFlight.Decrement()
		p.recordLatency(time.Since(startTime))
	}()

	if err = p.handler(ctx, item); err != nil {
		p.metrics.failed.Increment()
		w.failed.Increment()
		if p.config.ErrorHandler != nil {
			p.config.ErrorHandler(err)
		} else {
			p.config.Logger.Printf("pool %s: worker %d: %v", p.id, w.id, err)
		}
		return err
	}

	p.metrics.processed.Increment()
	w.processed.Increment()
	return nil
}

// recordLatency records handler execution latency
func (p *Pool[T]) recordLatency(duration time.Duration) {
	micros := duration.Microseconds()

	p.metrics.latencySum.Add(micros)
	p.metrics.latencyCount.Increment()

	for {
		current := p.metrics.latencyMax.Load()
		if micros <= current {
			break
		}
		if p.metrics.latencyMax.CompareAndSwap(current, micros) {
			break
		}
	}
}

// takeNext returns the next item, or ok=false when the worker should exit.
func (p *Pool[T]) takeNext(ctx context.Context) (item T, ok bool) {
	item, err := p.queue.TakeContext(ctx)
	if err != nil {
		// ErrQueueDrained ends the loop normally; ErrTimeout here can only
		// come from ctx ending.
		if !errors.Is(err, handoff.ErrQueueDrained) && !handoff.IsRetryable(err) {
			p.config.Logger.Printf("pool %s: unexpected take error: %v", p.id, err)
		}
		return item, false
	}
	return item, true
}
