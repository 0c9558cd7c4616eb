package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// QueueState represents the lifecycle state of a BoundedQueue.
type QueueState int

const (
	// StateOpen accepts Add and Take.
	StateOpen QueueState = iota
	// StateDraining is closed with items left; only Take succeeds.
	StateDraining
	// StateDrained is closed and empty. Terminal.
	StateDrained
)

func (s QueueState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateDraining:
		return "DRAINING"
	case StateDrained:
		return "DRAINED"
	default:
		return "UNKNOWN"
	}
}

// QueueOption configures a BoundedQueue.
type QueueOption func(*queueConfig)

type queueConfig struct {
	handle *Handle
}

// WithHandle makes h the queue's lock. Queues that take part in Transfer
// must be built with handles from the LockSet passed to Transfer. A handle
// should back a single queue.
func WithHandle(h *Handle) QueueOption {
	return func(c *queueConfig) {
		if h != nil {
			c.handle = h
		}
	}
}

// BoundedQueue is a FIFO hand-off queue with a fixed capacity.
//
// Add blocks while the queue is full, Take blocks while it is empty. Complete
// closes the queue: further Adds fail, and Takes return the remaining items
// in order before failing with ErrQueueDrained.
//
// All methods are safe for concurrent use by multiple goroutines.
type BoundedQueue[T any] struct {
	handle   *Handle
	mu       handleLocker
	notFull  *sync.Cond
	notEmpty *sync.Cond

	// guarded by mu
	items    *queue.Queue
	capacity int
	closed   bool
}

// NewBoundedQueue creates a queue holding at most capacity items.
// It returns ErrInvalidCapacity if capacity is not positive.
//
// Example:
//
//	q, err := handoff.NewBoundedQueue[Job](64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Complete()
func NewBoundedQueue[T any](capacity int, opts ...QueueOption) (*BoundedQueue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	var cfg queueConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.handle == nil {
		cfg.handle = newHandle(nil, 0, "queue")
	}

	q := &BoundedQueue[T]{
		handle:   cfg.handle,
		mu:       handleLocker{h: cfg.handle},
		items:    queue.New(),
		capacity: capacity,
	}
	q.notFull = sync.NewCond(q.mu)
	q.notEmpty = sync.NewCond(q.mu)
	return q, nil
}

// Add appends item, blocking while the queue is full.
// It returns ErrQueueClosed if the queue is or becomes closed while waiting.
func (q *BoundedQueue[T]) Add(item T) error {
	return q.AddContext(context.Background(), item)
}

// AddTimeout is Add bounded by d. If d expires while the queue is still full
// the queue is left unchanged and an error matching ErrTimeout is returned.
func (q *BoundedQueue[T]) AddTimeout(item T, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return q.AddContext(ctx, item)
}

// AddContext is Add bounded by ctx. A call that finds space succeeds even if
// ctx is already done; the context only limits waiting.
func (q *BoundedQueue[T]) AddContext(ctx context.Context, item T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := q.wait(ctx, q.notFull, q.fullLocked); err != nil {
		return err
	}
	if q.closed {
		return ErrQueueClosed
	}
	q.pushLocked(item)
	return nil
}

// TryAdd appends item without blocking. It returns ErrQueueFull when Add
// would block and ErrQueueClosed after Complete.
func (q *BoundedQueue[T]) TryAdd(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.items.Length() >= q.capacity {
		return ErrQueueFull
	}
	q.pushLocked(item)
	return nil
}

// Take removes and returns the head item, blocking while the queue is empty
// and open. Once the queue is closed and empty it returns ErrQueueDrained.
func (q *BoundedQueue[T]) Take() (T, error) {
	return q.TakeContext(context.Background())
}

// TakeTimeout is Take bounded by d.
func (q *BoundedQueue[T]) TakeTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return q.TakeContext(ctx)
}

// TakeContext is Take bounded by ctx. On expiry the zero value and an error
// matching ErrTimeout are returned.
func (q *BoundedQueue[T]) TakeContext(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if err := q.wait(ctx, q.notEmpty, q.emptyLocked); err != nil {
		return zero, err
	}
	if q.items.Length() == 0 {
		return zero, ErrQueueDrained
	}
	return q.popLocked(), nil
}

// TryTake removes the head item without blocking. It returns ErrQueueEmpty
// when Take would block and ErrQueueDrained once closed and empty.
func (q *BoundedQueue[T]) TryTake() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.items.Length() == 0 {
		if q.closed {
			return zero, ErrQueueDrained
		}
		return zero, ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// Complete closes the queue and wakes every blocked Add and Take.
// It is safe to call more than once.
func (q *BoundedQueue[T]) Complete() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Count returns the number of queued items.
func (q *BoundedQueue[T]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap returns the capacity given at construction.
func (q *BoundedQueue[T]) Cap() int {
	return q.capacity
}

// IsClosed reports whether Complete has been called.
func (q *BoundedQueue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// State returns the current lifecycle state.
func (q *BoundedQueue[T]) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case !q.closed:
		return StateOpen
	case q.items.Length() > 0:
		return StateDraining
	default:
		return StateDrained
	}
}

// Snapshot returns a copy of the queued items in FIFO order.
func (q *BoundedQueue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, q.items.Length())
	for i := range out {
		out[i], _ = q.items.Get(i).(T)
	}
	return out
}

// Handle returns the handle that serves as the queue's lock.
func (q *BoundedQueue[T]) Handle() *Handle {
	return q.handle
}

func (q *BoundedQueue[T]) fullLocked() bool {
	return !q.closed && q.items.Length() >= q.capacity
}

func (q *BoundedQueue[T]) emptyLocked() bool {
	return !q.closed && q.items.Length() == 0
}

func (q *BoundedQueue[T]) pushLocked(item T) {
	q.items.Add(item)
	q.notEmpty.Signal()
}

func (q *BoundedQueue[T]) popLocked() T {
	// The type assertion yields the zero value for a stored nil interface.
	item, _ := q.items.Remove().(T)
	q.notFull.Signal()
	return item
}

// wait blocks on cond while blocked reports true, re-checking after every
// wake. It must be called with mu held and returns with mu held. When ctx
// ends, the waiter is woken through a broadcast taken under mu, so no expiry
// is missed between the check and cond.Wait.
func (q *BoundedQueue[T]) wait(ctx context.Context, cond *sync.Cond, blocked func() bool) error {
	if !blocked() {
		return nil
	}
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			cond.Broadcast()
			q.mu.Unlock()
		})
		defer stop()
	}

	for blocked() {
		if err := ctx.Err(); err != nil {
			return errTimeout(err)
		}
		cond.Wait()
	}
	return nil
}

// awaitLocked waits like wait and, when woken with the condition satisfied,
// passes the signal on: the caller does not consume the item or slot itself.
func (q *BoundedQueue[T]) awaitLocked(ctx context.Context, cond *sync.Cond, blocked func() bool) error {
	woke := blocked()
	if err := q.wait(ctx, cond, blocked); err != nil {
		return err
	}
	if woke {
		cond.Signal()
	}
	return nil
}
