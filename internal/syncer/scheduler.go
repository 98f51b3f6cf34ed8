package syncer

import (
	"errors"
	"log/slog"
	"time"
)

// Stream names a collection or scalar that is synced independently.
type Stream string

const (
	StreamSigners Stream = "signers"
	StreamFields  Stream = "fields"
	StreamTitle   Stream = "title"
	StreamDates   Stream = "dates"
)

// Streams lists every stream in a stable order.
var Streams = []Stream{StreamSigners, StreamFields, StreamTitle, StreamDates}

// ErrNotLoaded is returned for edits reported before the initial load completed.
var ErrNotLoaded = errors.New("syncer: stream not loaded")

// FireFunc is called from the timer goroutine when a debounce window elapses.
type FireFunc func(stream Stream, gen uint64)

// Scheduler coordinates the state machine and debounce timer of one stream.
type Scheduler struct {
	stream   Stream
	machine  Machine
	debounce *Debouncer
	dirty    bool
	logger   *slog.Logger
}

// NewScheduler creates a scheduler in INIT.
func NewScheduler(stream Stream, clock Clock, window time.Duration, fire FireFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{stream: stream, logger: logger}
	s.debounce = NewDebouncer(clock, window, func(gen uint64) { fire(stream, gen) })
	return s
}

// Stream returns the stream name.
func (s *Scheduler) Stream() Stream {
	return s.stream
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.machine.State()
}

// Dirty reports whether an edit arrived while a request was outstanding.
func (s *Scheduler) Dirty() bool {
	return s.dirty
}

// Loaded marks the initial load as complete. It does not arm a sync.
func (s *Scheduler) Loaded() error {
	_, err := s.machine.Fire(TriggerLoaded)
	return err
}

// Edited records a local edit.
func (s *Scheduler) Edited() error {
	switch s.machine.State() {
	case StateInit:
		return ErrNotLoaded
	case StateArmed, StatePending:
		if _, err := s.machine.Fire(TriggerEdit); err != nil {
			return err
		}
		gen := s.debounce.Trigger()
		s.logger.Debug("sync armed", "stream", s.stream, "gen", gen)
	default:
		if _, err := s.machine.Fire(TriggerEdit); err != nil {
			return err
		}
		s.dirty = true
	}
	return nil
}

// Elapsed handles a debounce fire. It returns true when the caller must
// issue a sync now; stale generations return false.
func (s *Scheduler) Elapsed(gen uint64) bool {
	if s.machine.State() != StatePending || !s.debounce.Consume(gen) {
		s.logger.Debug("stale debounce fire ignored", "stream", s.stream, "gen", gen)
		return false
	}
	if _, err := s.machine.Fire(TriggerElapsed); err != nil {
		return false
	}
	s.dirty = false
	return true
}

// Flush skips the debounce window. It returns true when the caller must
// issue a sync now. While a request is outstanding the flush is recorded as
// a dirty mark instead.
func (s *Scheduler) Flush() bool {
	switch s.machine.State() {
	case StateArmed, StatePending:
		s.debounce.Stop()
		if _, err := s.machine.Fire(TriggerFlush); err != nil {
			return false
		}
		s.dirty = false
		return true
	case StateSyncing, StateReconciling:
		s.dirty = true
	}
	return false
}

// Responded records a successful response; reconciliation follows.
func (s *Scheduler) Responded() error {
	_, err := s.machine.Fire(TriggerResponded)
	return err
}

// Reconciled records that the response has been applied and returns to
// ARMED, re-arming if edits arrived in the meantime.
func (s *Scheduler) Reconciled() error {
	if _, err := s.machine.Fire(TriggerReconciled); err != nil {
		return err
	}
	return s.rearm()
}

// Failed records a failed request and returns to ARMED without marking
// anything saved. It re-arms only if edits arrived while the request was
// outstanding; otherwise the next edit or flush resends.
func (s *Scheduler) Failed() error {
	if _, err := s.machine.Fire(TriggerFailed); err != nil {
		return err
	}
	return s.rearm()
}

// Stop cancels any pending timer. The state is left as is.
func (s *Scheduler) Stop() {
	s.debounce.Stop()
}

func (s *Scheduler) rearm() error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	return s.Edited()
}
