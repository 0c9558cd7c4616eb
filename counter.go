package handoff

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Counter is a 64-bit signed integer updated atomically from any number of
// goroutines. Every completed operation is applied exactly once: the value
// after a set of concurrent calls equals applying them in some sequential
// order consistent with each goroutine's own call order.
//
// The zero value is a counter at 0. A Counter must not be copied after first
// use. The value is padded to its own cache line so that counters updated by
// different workers do not contend through false sharing.
type Counter struct {
	_ cpu.CacheLinePad
	v atomic.Int64
	_ cpu.CacheLinePad
}

// NewCounter returns a counter holding initial.
func NewCounter(initial int64) *Counter {
	c := &Counter{}
	c.v.Store(initial)
	return c
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 {
	return c.v.Add(1)
}

// Decrement subtracts one and returns the new value.
func (c *Counter) Decrement() int64 {
	return c.v.Add(-1)
}

// Add adds delta and returns the new value.
func (c *Counter) Add(delta int64) int64 {
	return c.v.Add(delta)
}

// Exchange installs v and returns the previous value.
func (c *Counter) Exchange(v int64) int64 {
	return c.v.Swap(v)
}

// CompareAndSwap installs v only if the current value equals expected.
// It reports whether the swap happened; on false the value is unchanged.
//
// Example, an optimistic "raise to at least v" loop:
//
//	for {
//	    cur := c.Load()
//	    if v <= cur || c.CompareAndSwap(cur, v) {
//	        break
//	    }
//	}
func (c *Counter) CompareAndSwap(expected, v int64) bool {
	return c.v.CompareAndSwap(expected, v)
}

// Load returns the current value. Reads used for correctness decisions must
// go through Load.
func (c *Counter) Load() int64 {
	return c.v.Load()
}

// Store sets the value unconditionally.
func (c *Counter) Store(v int64) {
	c.v.Store(v)
}

func (c *Counter) String() string {
	return strconv.FormatInt(c.Load(), 10)
}
