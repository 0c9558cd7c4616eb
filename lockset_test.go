package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqs(handles []*Handle) []uint64 {
	out := make([]uint64, len(handles))
	for i, h := range handles {
		out[i] = h.Seq()
	}
	return out
}

// ============================================================================
// Handle Tests
// ============================================================================

func TestLockSet_NewHandleSequence(t *testing.T) {
	ls := NewLockSet()
	a := ls.NewHandle("a")
	b := ls.NewHandle("")
	c := ls.NewHandle("c")

	assert.Less(t, a.Seq(), b.Seq())
	assert.Less(t, b.Seq(), c.Seq())
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, "a#1", a.String())
	assert.Equal(t, "handle#2", b.String())
}

func TestLockSet_ConcurrentNewHandleUnique(t *testing.T) {
	ls := NewLockSet()

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				h := ls.NewHandle("h")
				mu.Lock()
				seen[h.Seq()] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8*500)
}

// ============================================================================
// AcquireAll Tests
// ============================================================================

func TestAcquireAll_CanonicalOrder(t *testing.T) {
	ls := NewLockSet()
	a, b, c := ls.NewHandle("a"), ls.NewHandle("b"), ls.NewHandle("c")

	g, err := ls.AcquireAll(context.Background(), c, a, b)
	require.NoError(t, err)
	defer g.Release()

	assert.Equal(t, []uint64{a.Seq(), b.Seq(), c.Seq()}, seqs(g.Handles()))
}

func TestAcquireAll_Deduplicates(t *testing.T) {
	ls := NewLockSet()
	a, b := ls.NewHandle("a"), ls.NewHandle("b")

	g, err := ls.AcquireAll(context.Background(), b, a, b, a)
	require.NoError(t, err)
	assert.Len(t, g.Handles(), 2)
	g.Release()

	// Both are free again.
	g2, ok := ls.TryAcquireAll(a, b)
	require.True(t, ok)
	g2.Release()
}

func TestAcquireAll_Empty(t *testing.T) {
	ls := NewLockSet()
	g, err := ls.AcquireAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Handles())
	g.Release()
}

func TestAcquireAll_MutualExclusion(t *testing.T) {
	ls := NewLockSet()
	a, b := ls.NewHandle("a"), ls.NewHandle("b")

	var inside, maxInside int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				handles := []*Handle{a, b}
				if i%2 == 1 {
					handles = []*Handle{b, a}
				}
				err := ls.Do(context.Background(), handles, func() error {
					inside++
					if inside > maxInside {
						maxInside = inside
					}
					inside--
					return nil
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestAcquireAll_NoDeadlockOppositeOrders(t *testing.T) {
	const trials = 1000
	ls := NewLockSet()

	for trial := 0; trial < trials; trial++ {
		x, y := ls.NewHandle("x"), ls.NewHandle("y")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs := make(chan error, 2)
		start := make(chan struct{})
		for _, order := range [][]*Handle{{x, y}, {y, x}} {
			go func(order []*Handle) {
				<-start
				g, err := ls.AcquireAll(ctx, order...)
				if err == nil {
					g.Release()
				}
				errs <- err
			}(order)
		}
		close(start)

		for i := 0; i < 2; i++ {
			require.NoError(t, <-errs, "trial %d", trial)
		}
		cancel()
	}
}

func TestAcquireAll_TimeoutReleasesPartial(t *testing.T) {
	ls := NewLockSet()
	a, b, c := ls.NewHandle("a"), ls.NewHandle("b"), ls.NewHandle("c")

	// Hold the last handle in canonical order so the acquisition gets a and b
	// before blocking.
	held, err := ls.AcquireAll(context.Background(), c)
	require.NoError(t, err)

	_, err = ls.AcquireAllTimeout(20*time.Millisecond, a, b, c)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	g, ok := ls.TryAcquireAll(a, b)
	require.True(t, ok, "partial acquisitions were not released")
	g.Release()
	held.Release()
}

func TestAcquireAll_CancelledContext(t *testing.T) {
	ls := NewLockSet()
	a := ls.NewHandle("a")
	held, ok := ls.TryAcquireAll(a)
	require.True(t, ok)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ls.AcquireAll(ctx, a)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTryAcquireAll_Busy(t *testing.T) {
	ls := NewLockSet()
	a, b := ls.NewHandle("a"), ls.NewHandle("b")

	held, ok := ls.TryAcquireAll(b)
	require.True(t, ok)

	_, ok = ls.TryAcquireAll(a, b)
	assert.False(t, ok)

	// a was released when b turned out busy.
	ga, ok := ls.TryAcquireAll(a)
	require.True(t, ok)
	ga.Release()
	held.Release()
}

// ============================================================================
// Guard Tests
// ============================================================================

func TestGuard_ReleaseIdempotent(t *testing.T) {
	ls := NewLockSet()
	a := ls.NewHandle("a")

	g, err := ls.AcquireAll(context.Background(), a)
	require.NoError(t, err)
	g.Release()
	g.Release()

	g2, ok := ls.TryAcquireAll(a)
	require.True(t, ok)
	g2.Release()
}

func TestGuard_HandlesIsCopy(t *testing.T) {
	ls := NewLockSet()
	a, b := ls.NewHandle("a"), ls.NewHandle("b")

	g, err := ls.AcquireAll(context.Background(), a, b)
	require.NoError(t, err)
	defer g.Release()

	hs := g.Handles()
	hs[0] = nil
	assert.Equal(t, a, g.Handles()[0])
}

func TestDo_ReleasesOnErrorAndPanic(t *testing.T) {
	ls := NewLockSet()
	a := ls.NewHandle("a")
	boom := errors.New("boom")

	err := ls.Do(context.Background(), []*Handle{a}, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = ls.Do(context.Background(), []*Handle{a}, func() error { panic("inside") })
	})

	g, ok := ls.TryAcquireAll(a)
	require.True(t, ok)
	g.Release()
}

// ============================================================================
// Violation Tests
// ============================================================================

func recoverViolation(fn func()) (v *LockOrderViolation) {
	defer func() {
		if r := recover(); r != nil {
			v, _ = r.(*LockOrderViolation)
		}
	}()
	fn()
	return nil
}

func TestAcquireAll_ForeignHandlePanics(t *testing.T) {
	ls, other := NewLockSet(), NewLockSet()
	a := ls.NewHandle("a")
	foreign := other.NewHandle("foreign")

	v := recoverViolation(func() {
		_, _ = ls.AcquireAll(context.Background(), a, foreign)
	})
	require.NotNil(t, v)
	assert.Contains(t, v.Error(), "not owned")
	assert.Equal(t, []string{"foreign#1"}, v.Handles)

	// Nothing stays locked.
	g, ok := ls.TryAcquireAll(a)
	require.True(t, ok)
	g.Release()
}

func TestAcquireAll_NilHandlePanics(t *testing.T) {
	ls := NewLockSet()
	v := recoverViolation(func() {
		_, _ = ls.TryAcquireAll(ls.NewHandle("a"), nil)
	})
	require.NotNil(t, v)
	assert.Equal(t, "nil handle", v.Reason)
}

func TestAcquireAll_NonTotalOrderingPanics(t *testing.T) {
	ls := NewLockSet(WithOrdering(func(a, b *Handle) int { return 0 }))
	a, b := ls.NewHandle("a"), ls.NewHandle("b")

	v := recoverViolation(func() {
		_, _ = ls.AcquireAll(context.Background(), a, b)
	})
	require.NotNil(t, v)
	assert.Contains(t, v.Error(), "not total")
	assert.Len(t, v.Handles, 2)
}

func TestWithOrdering_Custom(t *testing.T) {
	byName := func(a, b *Handle) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		default:
			return 0
		}
	}
	ls := NewLockSet(WithOrdering(byName))
	z, m, a := ls.NewHandle("z"), ls.NewHandle("m"), ls.NewHandle("a")

	g, err := ls.AcquireAll(context.Background(), z, m, a)
	require.NoError(t, err)
	defer g.Release()

	got := g.Handles()
	assert.Equal(t, []string{"a", "m", "z"}, []string{got[0].Name(), got[1].Name(), got[2].Name()})
}

func BenchmarkAcquireAll_Pair(b *testing.B) {
	ls := NewLockSet()
	x, y := ls.NewHandle("x"), ls.NewHandle("y")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g, _ := ls.AcquireAll(ctx, y, x)
		g.Release()
	}
}
