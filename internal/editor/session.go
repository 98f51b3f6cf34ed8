package editor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
)

// Document is the rendered document. The editor only needs its page count.
type Document interface {
	PageCount() int
}

// Pages is a Document with a fixed page count.
type Pages int

// PageCount implements Document.
func (p Pages) PageCount() int {
	return int(p)
}

// Session is the editor state for one agreement.
//
// A session is single-writer. Either the owner goroutine calls Apply and
// Drain directly, or Run owns the session and other goroutines submit
// actions with Do. Debounce timers and sync requests run on their own
// goroutines and only ever enqueue internal actions.
type Session struct {
	id     string
	remote remote.Service
	logger *slog.Logger
	clock  syncer.Clock
	window time.Duration
	uids   UIDGenerator
	seq    *Clock
	queue  *actionQueue
	launch func(func())
	notify Notifier

	rowHeight float64
	boardOpts []placement.BoardOption
	signers   map[model.UID]*model.Signer
	roster    *reorder.List[model.UID]
	colorSeq  int
	board     *placement.Board
	meta      model.Metadata
	streams   map[syncer.Stream]*stream
	revision  int64
}

type stream struct {
	sched  *syncer.Scheduler
	failed error // last failure, cleared by a successful sync
	saved  int   // successful syncs
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithClock sets the clock that drives debounce timers.
func WithClock(c syncer.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithDebounce sets the debounce window of every stream.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		s.window = d
	}
}

// WithUIDGenerator sets the generator for new signer and field uids.
func WithUIDGenerator(g UIDGenerator) Option {
	return func(s *Session) {
		s.uids = g
	}
}

// WithLauncher sets how sync requests are started. The default starts a
// goroutine per request.
func WithLauncher(launch func(func())) Option {
	return func(s *Session) {
		s.launch = launch
	}
}

// WithNotifier sets the receiver of notices.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notify = n
	}
}

// WithRowHeight sets the row height used to map drag offsets to positions.
func WithRowHeight(h float64) Option {
	return func(s *Session) {
		s.rowHeight = h
	}
}

// WithBoardOptions configures the placement surface and field geometries.
func WithBoardOptions(opts ...placement.BoardOption) Option {
	return func(s *Session) {
		s.boardOpts = append(s.boardOpts, opts...)
	}
}

// Open loads agreement id and returns a session ready for edits.
//
// Loading never counts as an edit: nothing is sent until the first local
// change. doc supplies the page count; when nil, the page count stored with
// the agreement is used.
func Open(ctx context.Context, svc remote.Service, id string, doc Document, opts ...Option) (*Session, error) {
	s := &Session{
		id:      id,
		remote:  svc,
		logger:  slog.Default(),
		clock:   syncer.RealClock{},
		window:  syncer.DefaultWindow,
		uids:    UUIDv7Generator{},
		seq:     NewClock(),
		queue:   newActionQueue(),
		launch:  func(f func()) { go f() },
		notify:  func(Notice) {},
		signers: make(map[model.UID]*model.Signer),
		streams: make(map[syncer.Stream]*stream),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("agreement", id)
	s.roster = reorder.NewList[model.UID](s.rowHeight)

	agreement, err := svc.GetAgreement(ctx, id)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			s.notify(Notice{
				Kind:          NoticeNotFound,
				Message:       fmt.Sprintf("agreement %s not found", id),
				RedirectAfter: NotFoundRedirectDelay,
			})
			return nil, &Error{Code: ErrCodeNotFound, Message: "agreement not found", Err: err}
		}
		return nil, &Error{Code: ErrCodeNetwork, Message: "load agreement", Err: err}
	}

	pages := agreement.PageCount
	if doc != nil {
		pages = doc.PageCount()
	}
	s.board = placement.NewBoard(pages, s.uids.Generate, s.boardOpts...)
	s.board.OnReposition = s.fieldRepositioned

	s.meta = agreement.Metadata
	if s.meta.ID == "" {
		s.meta.ID = id
	}
	s.restoreSigners(agreement.Signers)
	for _, f := range s.board.Restore(agreement.InputFields) {
		s.logger.Warn("dropping stored field", "uid", f.UID, "page", f.Page, "field_type", f.Type)
	}

	for _, name := range syncer.Streams {
		st := &stream{
			sched: syncer.NewScheduler(name, s.clock, s.window, s.debounceFired, s.logger),
		}
		if err := st.sched.Loaded(); err != nil {
			return nil, fmt.Errorf("load stream %s: %w", name, err)
		}
		s.streams[name] = st
	}

	s.logger.Info("session opened",
		"signers", s.roster.Len(),
		"fields", s.board.Len(),
		"pages", pages,
	)
	return s, nil
}

// restoreSigners loads server rows in step order. Rows without a uid
// receive one; rows without a color get the next palette color.
func (s *Session) restoreSigners(rows []model.Signer) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.Signer) int {
		return cmp.Compare(a.Step, b.Step)
	})
	for _, row := range sorted {
		sg := row
		sg.Step = 0
		if sg.UID == "" {
			sg.UID = s.uids.Generate()
		}
		if _, dup := s.signers[sg.UID]; dup {
			s.logger.Warn("dropping duplicate signer", "uid", sg.UID)
			continue
		}
		if sg.Role == "" {
			sg.Role = model.RoleSigner
		}
		if sg.ColorTag == "" {
			sg.ColorTag = model.ColorFor(s.colorSeq)
		}
		s.colorSeq++
		s.signers[sg.UID] = &sg
		s.roster.Insert(sg.UID)
	}
}

// ID returns the agreement id.
func (s *Session) ID() string {
	return s.id
}

// Apply processes one action on the caller's goroutine. It must not be
// called while Run is active.
func (s *Session) Apply(ctx context.Context, a Action) (Outcome, error) {
	out, err := s.dispatch(ctx, a)
	if err != nil {
		s.logger.Debug("action rejected", "action", fmt.Sprintf("%T", a), "error", err)
	}
	return out, err
}

// Drain processes queued internal actions (debounce fires and sync
// completions) until the queue is empty. It returns the number processed.
// It must not be called while Run is active.
func (s *Session) Drain(ctx context.Context) int {
	n := 0
	for {
		e, ok := s.queue.TryDequeue()
		if !ok {
			return n
		}
		s.handle(ctx, e)
		n++
	}
}

// Pending returns the number of queued actions.
func (s *Session) Pending() int {
	return s.queue.Len()
}

// Do submits an action to the goroutine running Run and waits for its outcome.
func (s *Session) Do(ctx context.Context, a Action) (Outcome, error) {
	reply := make(chan result, 1)
	if !s.queue.Enqueue(envelope{action: a, reply: reply}) {
		return Outcome{}, invalidAction("", nil, "session stopped")
	}
	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run processes actions until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. While Run is active, use Do.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session loop starting")
	defer s.stopTimers()

	for {
		if e, ok := s.queue.TryDequeue(); ok {
			s.handle(ctx, e)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("session loop stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()
		case <-s.queue.Wait():
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("session loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the action queue, which makes Run return.
func (s *Session) Stop() {
	s.queue.Close()
}

func (s *Session) handle(ctx context.Context, e envelope) {
	out, err := s.dispatch(ctx, e.action)
	if e.reply != nil {
		e.reply <- result{outcome: out, err: err}
		return
	}
	if err != nil {
		s.logger.Error("internal action failed", "action", e.action.ActionName(), "error", err)
	}
}

func (s *Session) dispatch(ctx context.Context, a Action) (Outcome, error) {
	switch act := a.(type) {
	case AddSigner:
		return s.addSigner(act)
	case UpdateSigner:
		return s.updateSigner(act)
	case RemoveSigner:
		return s.removeSigner(act)
	case MoveSigner:
		return s.moveSigner(act)
	case BeginReorder:
		return s.beginReorder(act)
	case DragReorder:
		return s.dragReorder(act)
	case EndReorder:
		return s.endReorder()
	case CancelReorder:
		return s.cancelReorder()
	case PlaceField:
		return s.placeField(act)
	case BeginFieldMove:
		return s.beginFieldMove(act)
	case DragField:
		return s.dragField(act)
	case EndFieldMove:
		return s.endFieldMove()
	case CancelFieldMove:
		return s.cancelFieldMove()
	case RepositionField:
		return s.repositionField(act)
	case DeleteField:
		return s.deleteField(act)
	case BeginDrop:
		return s.beginDrop(act)
	case TrackDrop:
		return s.trackDrop(act)
	case ReleaseDrop:
		return s.releaseDrop(act)
	case CancelDrop:
		return s.cancelDrop()
	case SetActivePage:
		return s.setActivePage(act)
	case SetTitle:
		return s.setTitle(act)
	case SetDates:
		return s.setDates(act)
	case Confirm:
		return s.confirm(ctx)
	case Retry:
		return s.retry(ctx, act)
	case TakeSnapshot:
		snap := s.Snapshot()
		return Outcome{Snapshot: &snap}, nil
	case debounceElapsed:
		return s.debounceElapsed(ctx, act)
	case syncCompleted:
		return s.syncCompleted(act)
	case nil:
		return Outcome{}, invalidAction("", nil, "nil action")
	default:
		return Outcome{}, invalidAction("", nil, "unknown action %T", a)
	}
}

// edited records a local change to a stream.
func (s *Session) edited(name syncer.Stream) {
	s.revision++
	if err := s.streams[name].sched.Edited(); err != nil {
		s.logger.Error("record edit", "stream", name, "error", err)
	}
}

// gestureActive reports whether any pointer gesture is held.
func (s *Session) gestureActive() bool {
	return s.roster.Dragging() || s.board.Moving() || s.board.Dropping()
}

func (s *Session) stopTimers() {
	for _, st := range s.streams {
		st.sched.Stop()
	}
}
