package workerpool

import "time"

// Stats is a snapshot of pool activity. Counters are read independently and
// may be slightly inconsistent with each other while workers are running.
//
// Example:
//
//	stats := pool.Stats()
//	fmt.Printf("processed=%d failed=%d depth=%d/%d\n",
//	    stats.Processed, stats.Failed, stats.QueueDepth, stats.QueueCapacity)
type Stats struct {
	// PoolID is the pool's unique identifier.
	PoolID string

	// Processed is the number of items the handler returned nil for.
	Processed int64

	// Failed is the number of items the handler returned an error for.
	Failed int64

	// Panicked is the number of items the handler panicked on.
	Panicked int64

	// Completed is Processed + Failed + Panicked.
	Completed int64

	// InFlight is the number of items currently inside the handler.
	InFlight int64

	// QueueDepth is the number of items waiting in the queue.
	QueueDepth int

	// QueueCapacity is the queue's capacity.
	QueueCapacity int

	// Utilization is QueueDepth / QueueCapacity as a percentage (0 to 100).
	Utilization float64

	// LatencyAvg is the mean handler execution time. Zero before the first item.
	LatencyAvg time.Duration

	// LatencyMax is the longest handler execution time observed.
	LatencyMax time.Duration

	// NumWorkers is the number of workers launched by Start.
	NumWorkers int

	// WorkerStats has one entry per worker that has run, including workers
	// started through Work.
	WorkerStats []WorkerStats

	// State is the pool lifecycle state: IDLE, RUNNING, DRAINING or STOPPED.
	State string
}

// WorkerStats contains statistics for an individual worker.
type WorkerStats struct {
	// WorkerID is the worker's identifier, starting at 1.
	WorkerID int

	// Processed is the number of items this worker handled successfully.
	Processed int64

	// Failed counts handler errors and panics on this worker.
	Failed int64

	// State is IDLE, RUNNING or STOPPED.
	State string
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() Stats {
	processed := p.metrics.processed.Load()
	failed := p.metrics.failed.Load()
	panicked := p.metrics.panicked.Load()

	p.workersMu.Lock()
	workerStats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = WorkerStats{
			WorkerID:  w.id,
			Processed: w.processed.Load(),
			Failed:    w.failed.Load(),
			State:     w.loadState().String(),
		}
	}
	p.workersMu.Unlock()

	depth := p.queue.Count()
	capacity := p.queue.Cap()
	utilization := float64(depth) / float64(capacity) * 100.0

	var latencyAvg, latencyMax time.Duration
	if count := p.metrics.latencyCount.Load(); count > 0 {
		latencyAvg = time.Duration(p.metrics.latencySum.Load()/count) * time.Microsecond
		latencyMax = time.Duration(p.metrics.latencyMax.Load()) * time.Microsecond
	}

	return Stats{
		PoolID:        p.id,
		Processed:     processed,
		Failed:        failed,
		Panicked:      panicked,
		Completed:     processed + failed + panicked,
		InFlight:      p.metrics.inFlight.Load(),
		QueueDepth:    depth,
		QueueCapacity: capacity,
		Utilization:   utilization,
		LatencyAvg:    latencyAvg,
		LatencyMax:    latencyMax,
		NumWorkers:    p.config.NumWorkers,
		WorkerStats:   workerStats,
		State:         p.state.Load().(PoolState).String(),
	}
}
