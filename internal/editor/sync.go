package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/syncer"
)

// debounceFired runs on the timer goroutine. It only enqueues.
func (s *Session) debounceFired(name syncer.Stream, gen uint64) {
	if !s.queue.Enqueue(envelope{action: debounceElapsed{stream: name, gen: gen}}) {
		s.logger.Debug("debounce fire after stop", "stream", name, "gen", gen)
	}
}

func (s *Session) debounceElapsed(ctx context.Context, a debounceElapsed) (Outcome, error) {
	st, ok := s.streams[a.stream]
	if !ok {
		return Outcome{}, invalidAction("", nil, "unknown stream %q", a.stream)
	}
	if st.sched.Elapsed(a.gen) {
		s.startSync(ctx, a.stream)
	}
	return Outcome{}, nil
}

// startSync snapshots the stream payload and launches the request. The
// scheduler must already be in SYNCING.
func (s *Session) startSync(ctx context.Context, name syncer.Stream) {
	seq := s.seq.Next()

	call := s.request(name)
	reqCtx := context.WithoutCancel(ctx)
	s.logger.Debug("sync started", "stream", name, "seq", seq)

	s.launch(func() {
		ids, err := call(reqCtx)
		done := syncCompleted{stream: name, seq: seq, ids: ids, err: err}
		if !s.queue.Enqueue(envelope{action: done}) {
			s.logger.Warn("sync completed after stop", "stream", name, "seq", seq)
		}
	})
}

// request captures the current payload of a stream. The returned function
// runs off the session goroutine and must not touch session state.
func (s *Session) request(name syncer.Stream) func(context.Context) (identity.IDMap, error) {
	id, svc := s.id, s.remote
	switch name {
	case syncer.StreamSigners:
		signers := s.orderedSigners()
		return func(ctx context.Context) (identity.IDMap, error) {
			return svc.SyncSigners(ctx, id, signers)
		}
	case syncer.StreamFields:
		fields := s.board.Fields()
		return func(ctx context.Context) (identity.IDMap, error) {
			return svc.SyncInputFields(ctx, id, fields)
		}
	case syncer.StreamTitle:
		title := s.meta.Title
		return func(ctx context.Context) (identity.IDMap, error) {
			return nil, svc.UpdateAgreementTitle(ctx, id, title)
		}
	default:
		dates := cloneDates(s.meta.Dates)
		return func(ctx context.Context) (identity.IDMap, error) {
			return nil, svc.UpdateAgreementDateSequence(ctx, id, dates)
		}
	}
}

func (s *Session) syncCompleted(a syncCompleted) (Outcome, error) {
	st, ok := s.streams[a.stream]
	if !ok {
		return Outcome{}, invalidAction("", nil, "unknown stream %q", a.stream)
	}

	if a.err != nil {
		st.failed = a.err
		if err := st.sched.Failed(); err != nil {
			return Outcome{}, fmt.Errorf("sync %s failed: %w", a.stream, err)
		}
		s.logger.Warn("sync failed", "stream", a.stream, "seq", a.seq, "error", a.err)
		s.notify(Notice{
			Kind:    NoticeNetwork,
			Stream:  a.stream,
			Message: (&Error{Code: ErrCodeNetwork, Message: "save failed", Stream: a.stream, Err: a.err}).Error(),
		})
		return Outcome{}, nil
	}

	if err := st.sched.Responded(); err != nil {
		return Outcome{}, fmt.Errorf("sync %s responded: %w", a.stream, err)
	}
	s.reconcile(a.stream, a.ids)
	st.failed = nil
	st.saved++
	if err := st.sched.Reconciled(); err != nil {
		return Outcome{}, fmt.Errorf("sync %s reconciled: %w", a.stream, err)
	}

	s.logger.Debug("sync completed", "stream", a.stream, "seq", a.seq, "ids", len(a.ids))
	s.notify(Notice{Kind: NoticeSaved, Stream: a.stream})
	return Outcome{}, nil
}

// reconcile applies server ids to the state as it is now. It never counts
// as an edit.
func (s *Session) reconcile(name syncer.Stream, ids identity.IDMap) identity.Report {
	var target identity.Assigner
	switch name {
	case syncer.StreamSigners:
		target = signerTable(s.signers)
	case syncer.StreamFields:
		target = s.board
	default:
		return identity.Report{}
	}

	report := identity.Apply(target, ids, s.logger)
	if !report.Clean() {
		err := &Error{
			Code:    ErrCodeReconciliationMismatch,
			Message: fmt.Sprintf("%d server ids did not match local rows", len(report.Mismatched)),
			Stream:  name,
		}
		s.logger.Warn("reconciliation mismatch", "stream", name, "uids", report.Mismatched)
		s.notify(Notice{Kind: NoticeMismatch, Stream: name, Message: err.Error()})
	}
	return report
}

func (s *Session) retry(ctx context.Context, a Retry) (Outcome, error) {
	var targets []syncer.Stream
	if a.Stream != "" {
		if _, ok := s.streams[a.Stream]; !ok {
			return Outcome{}, invalidAction("", nil, "unknown stream %q", a.Stream)
		}
		targets = []syncer.Stream{a.Stream}
	} else {
		for _, name := range syncer.Streams {
			if s.streams[name].failed != nil {
				targets = append(targets, name)
			}
		}
	}

	started := false
	for _, name := range targets {
		if s.streams[name].sched.Flush() {
			s.startSync(ctx, name)
			started = true
		}
	}
	return Outcome{Changed: started}, nil
}

func datesEqual(a, b model.DateSequence) bool {
	return a.Sequence == b.Sequence && timeEqual(a.EndDate, b.EndDate) && timeEqual(a.SignBefore, b.SignBefore)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func cloneDates(d model.DateSequence) model.DateSequence {
	out := model.DateSequence{Sequence: d.Sequence}
	if d.EndDate != nil {
		t := *d.EndDate
		out.EndDate = &t
	}
	if d.SignBefore != nil {
		t := *d.SignBefore
		out.SignBefore = &t
	}
	return out
}
