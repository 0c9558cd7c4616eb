package handoff

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Handle is a mutual-exclusion resource with a stable identity in the
// canonical lock order of the LockSet that created it.
//
// Handles are never locked directly by callers. Operations that need one or
// more handles at the same time go through LockSet.AcquireAll, which requests
// them in canonical order so that no two acquisitions can wait on each other
// in a cycle.
type Handle struct {
	seq  uint64
	name string
	set  *LockSet
	sem  *semaphore.Weighted
}

func newHandle(set *LockSet, seq uint64, name string) *Handle {
	return &Handle{
		seq:  seq,
		name: name,
		set:  set,
		sem:  semaphore.NewWeighted(1),
	}
}

// Seq returns the sequence number assigned when the handle was created.
// Sequence numbers from one LockSet are unique and increase monotonically.
func (h *Handle) Seq() uint64 { return h.seq }

// Name returns the label given at creation.
func (h *Handle) Name() string { return h.name }

func (h *Handle) String() string {
	if h == nil {
		return "<nil>"
	}
	if h.name == "" {
		return fmt.Sprintf("handle#%d", h.seq)
	}
	return fmt.Sprintf("%s#%d", h.name, h.seq)
}

// lock never fails: Acquire only errors when its context ends.
func (h *Handle) lock() {
	_ = h.sem.Acquire(context.Background(), 1)
}

func (h *Handle) lockContext(ctx context.Context) error {
	return h.sem.Acquire(ctx, 1)
}

func (h *Handle) tryLock() bool {
	return h.sem.TryAcquire(1)
}

func (h *Handle) unlock() {
	h.sem.Release(1)
}

// handleLocker adapts a handle to sync.Locker for the condition variables of
// the single resource it protects.
type handleLocker struct {
	h *Handle
}

func (l handleLocker) Lock()   { l.h.lock() }
func (l handleLocker) Unlock() { l.h.unlock() }

// LockSetOption configures a LockSet.
type LockSetOption func(*LockSet)

// WithOrdering sets the canonical ordering of handles. compare must return a
// negative number when a sorts before b, a positive number when after, and
// zero only for the same handle. The ordering must be total and must not
// change while the handles are alive.
//
// The default orders handles by ascending sequence number.
func WithOrdering(compare func(a, b *Handle) int) LockSetOption {
	return func(s *LockSet) {
		if compare != nil {
			s.compare = compare
		}
	}
}

// LockSet creates handles and acquires any subset of them in canonical order.
//
// Two goroutines requesting overlapping sets of handles, in whatever order
// they list them, always lock the shared handles in the same order and
// therefore cannot deadlock each other.
type LockSet struct {
	seq     atomic.Uint64
	compare func(a, b *Handle) int
}

// NewLockSet creates an empty lock set.
//
// Example:
//
//	ls := handoff.NewLockSet()
//	a, b := ls.NewHandle("a"), ls.NewHandle("b")
//	g, err := ls.AcquireAll(ctx, b, a) // locks a, then b
//	if err != nil {
//	    return err
//	}
//	defer g.Release()
func NewLockSet(opts ...LockSetOption) *LockSet {
	s := &LockSet{compare: bySeq}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func bySeq(a, b *Handle) int {
	return cmp.Compare(a.seq, b.seq)
}

// NewHandle creates a handle owned by s with the next sequence number.
func (s *LockSet) NewHandle(name string) *Handle {
	return newHandle(s, s.seq.Add(1), name)
}

// AcquireAll locks every handle in canonical order, independent of the order
// given, and returns a Guard that releases them in reverse order. Duplicate
// handles are locked once.
//
// If ctx ends before every handle is held, the handles acquired so far are
// released in reverse order and an error matching ErrTimeout is returned.
//
// AcquireAll panics with *LockOrderViolation if a handle is nil, belongs to a
// different LockSet, or the ordering cannot distinguish two handles.
func (s *LockSet) AcquireAll(ctx context.Context, handles ...*Handle) (*Guard, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ordered := s.order(handles)

	for i, h := range ordered {
		if err := h.lockContext(ctx); err != nil {
			releaseReverse(ordered[:i])
			return nil, errTimeout(err)
		}
	}
	return &Guard{handles: ordered}, nil
}

// AcquireAllTimeout is AcquireAll bounded by d.
func (s *LockSet) AcquireAllTimeout(d time.Duration, handles ...*Handle) (*Guard, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.AcquireAll(ctx, handles...)
}

// TryAcquireAll locks every handle in canonical order without blocking.
// If any handle is busy, the ones already taken are released and ok is false.
func (s *LockSet) TryAcquireAll(handles ...*Handle) (g *Guard, ok bool) {
	ordered := s.order(handles)

	for i, h := range ordered {
		if !h.tryLock() {
			releaseReverse(ordered[:i])
			return nil, false
		}
	}
	return &Guard{handles: ordered}, true
}

// Do holds handles for the duration of fn. The handles are released when fn
// returns, errors or panics.
func (s *LockSet) Do(ctx context.Context, handles []*Handle, fn func() error) error {
	g, err := s.AcquireAll(ctx, handles...)
	if err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// order validates ownership, removes duplicates and sorts by canonical order.
func (s *LockSet) order(handles []*Handle) []*Handle {
	ordered := make([]*Handle, 0, len(handles))
	for _, h := range handles {
		if h == nil {
			panic(violation("nil handle"))
		}
		if h.set != s {
			panic(violation("handle not owned by this lock set", h))
		}
		if !slices.Contains(ordered, h) {
			ordered = append(ordered, h)
		}
	}

	slices.SortStableFunc(ordered, s.compare)

	for i := 1; i < len(ordered); i++ {
		a, b := ordered[i-1], ordered[i]
		if s.compare(a, b) >= 0 || s.compare(b, a) <= 0 {
			panic(violation("ordering is not total", a, b))
		}
	}
	return ordered
}

func releaseReverse(handles []*Handle) {
	for i := len(handles) - 1; i >= 0; i-- {
		handles[i].unlock()
	}
}

// Guard holds a set of handles acquired by a LockSet.
type Guard struct {
	handles []*Handle
	once    sync.Once
}

// Release unlocks the held handles in reverse acquisition order.
// Calling Release more than once has no further effect.
func (g *Guard) Release() {
	g.once.Do(func() {
		releaseReverse(g.handles)
	})
}

// Handles returns the held handles in acquisition order.
func (g *Guard) Handles() []*Handle {
	return slices.Clone(g.handles)
}
