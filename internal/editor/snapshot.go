package editor

import (
	"slices"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
)

// StreamStatus is the sync status of one stream.
type StreamStatus struct {
	State  string `json:"state"`
	Dirty  bool   `json:"dirty"`
	Failed bool   `json:"failed"`
	Saved  int    `json:"saved"`
}

// Snapshot is a read-only copy of session state. Mutating it has no effect
// on the session.
type Snapshot struct {
	AgreementID string                         `json:"agreement_id"`
	Title       string                         `json:"title"`
	Dates       model.DateSequence             `json:"dates"`
	Signers     []model.Signer                 `json:"signers"`
	Order       []int                          `json:"order"`
	Fields      []model.FieldPlacement         `json:"fields"`
	Visible     []placement.Placed             `json:"visible"`
	ActivePage  int                            `json:"active_page"`
	PageCount   int                            `json:"page_count"`
	Streams     map[syncer.Stream]StreamStatus `json:"streams"`
	Pending     []model.UID                    `json:"pending"`
	Revision    int64                          `json:"revision"`
}

// Snapshot returns a copy of the current state. Like Apply, it must be
// called on the goroutine that owns the session; use Do with TakeSnapshot
// while Run is active.
func (s *Session) Snapshot() Snapshot {
	signers := s.orderedSigners()
	fields := s.board.Fields()

	pending := identity.Pending(signers, identity.SignerKey)
	pending = append(pending, identity.Pending(fields, identity.FieldKey)...)

	streams := make(map[syncer.Stream]StreamStatus, len(s.streams))
	for name, st := range s.streams {
		streams[name] = StreamStatus{
			State:  st.sched.State().String(),
			Dirty:  st.sched.Dirty(),
			Failed: st.failed != nil,
			Saved:  st.saved,
		}
	}

	return Snapshot{
		AgreementID: s.id,
		Title:       s.meta.Title,
		Dates:       cloneDates(s.meta.Dates),
		Signers:     signers,
		Order:       nonNil(s.roster.Order()),
		Fields:      fields,
		Visible:     nonNil(s.board.Visible()),
		ActivePage:  s.board.ActivePage(),
		PageCount:   s.board.Pages(),
		Streams:     streams,
		Pending:     nonNil(pending),
		Revision:    s.revision,
	}
}

// Transforms returns the row transforms of the signer list, live while a
// reorder drag is held.
func (s *Session) Transforms() []reorder.Transform {
	return s.roster.Transforms()
}

// StreamState returns the sync state of a stream.
func (s *Session) StreamState(name syncer.Stream) syncer.State {
	st, ok := s.streams[name]
	if !ok {
		return syncer.StateInit
	}
	return st.sched.State()
}

// Revision counts local edits since the session opened.
func (s *Session) Revision() int64 {
	return s.revision
}

// Signers returns the signers in committed order with derived steps.
func (s *Session) Signers() []model.Signer {
	return s.orderedSigners()
}

// Fields returns every resident field in creation order.
func (s *Session) Fields() []model.FieldPlacement {
	return s.board.Fields()
}

// Field returns one field by uid.
func (s *Session) Field(uid model.UID) (model.FieldPlacement, bool) {
	return s.board.Field(uid)
}

// Visible returns the fields on the active page.
func (s *Session) Visible() []placement.Placed {
	return s.board.Visible()
}

// ActivePage returns the page currently shown.
func (s *Session) ActivePage() int {
	return s.board.ActivePage()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return slices.Clip(v)
}
