package workerpool

import (
	"context"
	"sync/atomic"

	"github.com/tahsin716/handoff"
)

// WorkerState represents the current state of a worker
type WorkerState int32

const (
	// WorkerIdle is blocked in Take waiting for an item.
	WorkerIdle WorkerState = iota
	// WorkerRunning is executing the handler.
	WorkerRunning
	// WorkerStopped has left its loop.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "IDLE"
	case WorkerRunning:
		return "RUNNING"
	case WorkerStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// worker is one consumer loop of a Pool
type worker[T any] struct {
	id   int
	pool *Pool[T]

	state atomic.Int32 // WorkerState

	// Metrics
	processed handoff.Counter
	failed    handoff.Counter
}

// newWorker registers a worker with the pool
func (p *Pool[T]) newWorker() *worker[T] {
	w := &worker[T]{id: int(p.nextWorkerID.Increment()), pool: p}
	w.state.Store(int32(WorkerIdle))

	p.workersMu.Lock()
	p.workers = append(p.workers, w)
	p.workersMu.Unlock()
	return w
}

func (w *worker[T]) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *worker[T]) loadState() WorkerState {
	return WorkerState(w.state.Load())
}

// run is the main worker loop
func (w *worker[T]) run(ctx context.Context) error {
	p := w.pool

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.id)
	}
	defer func() {
		w.setState(WorkerStopped)
		if p.config.OnWorkerStop != nil {
			p.config.OnWorkerStop(w.id)
		}
	}()

	for {
		w.setState(WorkerIdle)
		item, ok := p.takeNext(ctx)
		if !ok {
			return nil
		}

		w.setState(WorkerRunning)
		if err := p.process(ctx, w, item); err != nil && p.config.StopOnError {
			return errWorker(w.id, err)
		}
	}
}
