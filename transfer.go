package handoff

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Transfer moves the head item of src to the tail of dst as one atomic step:
// no observer sees the item in both queues or in neither. Both queue handles
// are acquired through ls, so concurrent transfers in opposite directions
// cannot deadlock.
//
// Transfer waits while src is empty or dst is full, holding neither queue
// while it waits. It returns ErrQueueClosed if dst is closed, ErrQueueDrained
// if src is closed and empty, and an error matching ErrTimeout if ctx ends
// first. Both queues must have been created WithHandle from ls; otherwise
// Transfer panics with *LockOrderViolation.
func Transfer[T any](ctx context.Context, ls *LockSet, src, dst *BoundedQueue[T]) error {
	if src == dst {
		return ErrSameQueue
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		g, err := ls.AcquireAll(ctx, src.handle, dst.handle)
		if err != nil {
			return err
		}
		err = moveLocked(src, dst)
		g.Release()

		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrQueueEmpty):
			err = src.await(ctx, src.notEmpty, src.emptyLocked)
		case errors.Is(err, ErrQueueFull):
			err = dst.await(ctx, dst.notFull, dst.fullLocked)
		}
		if err != nil {
			return err
		}
	}
}

// TransferTimeout is Transfer bounded by d.
func TransferTimeout[T any](ls *LockSet, src, dst *BoundedQueue[T], d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return Transfer(ctx, ls, src, dst)
}

// TryTransfer is Transfer without waiting for an item or a free slot. It
// returns ErrQueueEmpty or ErrQueueFull where Transfer would wait.
func TryTransfer[T any](ls *LockSet, src, dst *BoundedQueue[T]) error {
	if src == dst {
		return ErrSameQueue
	}
	return ls.Do(context.Background(), []*Handle{src.handle, dst.handle}, func() error {
		return moveLocked(src, dst)
	})
}

// moveLocked must be called with both queue handles held.
func moveLocked[T any](src, dst *BoundedQueue[T]) error {
	if dst.closed {
		return ErrQueueClosed
	}
	if src.items.Length() == 0 {
		if src.closed {
			return ErrQueueDrained
		}
		return ErrQueueEmpty
	}
	if dst.items.Length() >= dst.capacity {
		return ErrQueueFull
	}
	dst.pushLocked(src.popLocked())
	return nil
}

// await blocks, holding only this queue's lock, until blocked reports false.
func (q *BoundedQueue[T]) await(ctx context.Context, cond *sync.Cond, blocked func() bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.awaitLocked(ctx, cond, blocked)
}
