// Package handoff provides a small concurrency core for moving work between
// goroutines: a bounded blocking FIFO queue, lock-free counters, and an
// ordered lock set that acquires several resources without deadlock.
//
// # Key Features
//
//   - BoundedQueue: capacity-bounded FIFO with blocking Add/Take, per-call
//     timeouts and contexts, and cooperative shutdown that drains remaining items
//   - Counter: cache-line padded atomic int64 with compare-and-swap
//   - LockSet: canonical-order acquisition of any set of handles, with
//     timeouts that release partial acquisitions
//   - Transfer: atomic move of an item between two queues
//
// # Quick Start
//
//	q, err := handoff.NewBoundedQueue[string](16)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    defer q.Complete()
//	    for _, s := range []string{"a", "b", "c"} {
//	        if err := q.Add(s); err != nil {
//	            return
//	        }
//	    }
//	}()
//
//	for {
//	    s, err := q.Take()
//	    if errors.Is(err, handoff.ErrQueueDrained) {
//	        break
//	    }
//	    fmt.Println(s)
//	}
//
// # Queue Lifecycle
//
// A queue starts OPEN. Complete moves it to DRAINING while items remain and
// to DRAINED once the last one is taken. Add fails with ErrQueueClosed as soon
// as the queue is closed; Take keeps returning items in order and fails with
// ErrQueueDrained only when none are left. Complete wakes every blocked caller
// so each can resolve.
//
// # Timeouts
//
// Every blocking call has a Timeout and a Context form:
//
//	err := q.AddTimeout(job, 100*time.Millisecond)
//	if handoff.IsRetryable(err) {
//	    // the queue stayed full; nothing was added
//	}
//
// A timed-out call never changes the queue. Timeouts only bound waiting: a
// call that can proceed immediately succeeds even with an elapsed deadline.
//
// # Lock Ordering
//
// Operations that need two or more resources at once acquire them through a
// LockSet. Handles carry a sequence number assigned at creation and AcquireAll
// always locks in ascending order, whatever order the caller lists them in:
//
//	ls := handoff.NewLockSet()
//	from, to := ls.NewHandle("from"), ls.NewHandle("to")
//
//	err := ls.Do(ctx, []*handoff.Handle{to, from}, func() error {
//	    // both resources are held here
//	    return nil
//	})
//
// Queues created WithHandle(ls.NewHandle(...)) can be combined the same way
// with Transfer. A LockSet panics with *LockOrderViolation when it is handed a
// handle it does not own or an ordering that is not total.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Queue state is only
// mutated under the queue's own lock.
package handoff
