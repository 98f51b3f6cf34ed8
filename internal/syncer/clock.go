package syncer

import "time"

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Clock abstracts wall time so debounce windows can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is the Clock backed by package time.
type RealClock struct{}

// Now returns the current wall time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f on its own goroutine after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
