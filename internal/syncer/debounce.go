package syncer

import "time"

// DefaultWindow is the quiet period that must follow the last edit before a sync.
const DefaultWindow = 1000 * time.Millisecond

// Debouncer is a resettable single-shot timer.
//
// Every Trigger stops the previous timer and starts a new one stamped with a
// fresh generation. A timer that fires after it was superseded still calls
// fire, but Consume rejects its generation, so a stale fire can never start a
// sync.
type Debouncer struct {
	clock  Clock
	window time.Duration
	fire   func(gen uint64)

	timer Timer
	gen   uint64
}

// NewDebouncer creates a debouncer. fire runs on the timer goroutine.
func NewDebouncer(clock Clock, window time.Duration, fire func(gen uint64)) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{clock: clock, window: window, fire: fire}
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Trigger (re)starts the window and returns the generation of the new timer.
func (d *Debouncer) Trigger() uint64 {
	d.stopTimer()
	d.gen++
	gen := d.gen
	fire := d.fire
	d.timer = d.clock.AfterFunc(d.window, func() { fire(gen) })
	return gen
}

// Stop cancels the pending timer, if any, and invalidates its generation.
func (d *Debouncer) Stop() {
	d.stopTimer()
	d.gen++
}

// Armed reports whether a timer is pending.
func (d *Debouncer) Armed() bool {
	return d.timer != nil
}

// Consume accepts a fire for gen. It returns false for stale or unknown
// generations. A consumed timer is no longer armed.
func (d *Debouncer) Consume(gen uint64) bool {
	if d.timer == nil || gen != d.gen {
		return false
	}
	d.timer = nil
	return true
}

func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
