package editor

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Every sync request is stamped with the next value, and its response
// carries the same stamp back into the logs.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
