package editor

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
)

// signerTable adapts the signer map to identity.Assigner.
type signerTable map[model.UID]*model.Signer

func (t signerTable) AssignServerID(uid model.UID, id model.ServerID) (changed, found bool) {
	sg, ok := t[uid]
	if !ok {
		return false, false
	}
	if sg.ServerID == id {
		return false, true
	}
	sg.ServerID = id
	return true, true
}

// orderedSigners returns copies of the signers in committed order with
// their steps derived from the order.
func (s *Session) orderedSigners() []model.Signer {
	uids := s.roster.Ordered()
	out := make([]model.Signer, len(uids))
	for i, uid := range uids {
		sg := *s.signers[uid]
		sg.Step = i + 1
		out[i] = sg
	}
	return out
}

func (s *Session) signerIndex(uid model.UID) (int, error) {
	idx := s.roster.IndexFunc(func(u model.UID) bool { return u == uid })
	if idx < 0 {
		return -1, invalidAction(uid, nil, "unknown signer")
	}
	return idx, nil
}

func (s *Session) signerCopy(uid model.UID) *model.Signer {
	sg := *s.signers[uid]
	idx, _ := s.signerIndex(uid)
	sg.Step = s.roster.Position(idx)
	return &sg
}

func (s *Session) addSigner(a AddSigner) (Outcome, error) {
	if s.gestureActive() {
		return Outcome{}, invalidAction("", reorder.ErrGestureActive, "cannot add a signer while a gesture is held")
	}
	role, err := model.ParseRole(string(a.Role))
	if err != nil {
		return Outcome{}, invalidAction("", err, "invalid role")
	}

	sg := model.Normalize(model.Signer{
		UID:      s.uids.Generate(),
		Role:     role,
		ColorTag: model.ColorFor(s.colorSeq),
		Name:     a.Name,
		Email:    a.Email,
		Reminder: a.Reminder,
	})
	s.colorSeq++
	s.signers[sg.UID] = &sg
	s.roster.Insert(sg.UID)
	s.edited(syncer.StreamSigners)

	s.logger.Debug("signer added", "uid", sg.UID, "position", s.roster.Len())
	return Outcome{Changed: true, Signer: s.signerCopy(sg.UID)}, nil
}

func (s *Session) updateSigner(a UpdateSigner) (Outcome, error) {
	cur, ok := s.signers[a.UID]
	if !ok {
		return Outcome{}, invalidAction(a.UID, nil, "unknown signer")
	}

	next := *cur
	if a.Name != nil {
		next.Name = *a.Name
	}
	if a.Email != nil {
		next.Email = *a.Email
	}
	if a.Role != nil {
		role, err := model.ParseRole(string(*a.Role))
		if err != nil {
			return Outcome{}, invalidAction(a.UID, err, "invalid role")
		}
		next.Role = role
	}
	if a.Reminder != nil {
		next.Reminder = *a.Reminder
	}
	next = model.Normalize(next)

	if next == *cur {
		return Outcome{Signer: s.signerCopy(a.UID)}, nil
	}
	*cur = next
	s.edited(syncer.StreamSigners)
	return Outcome{Changed: true, Signer: s.signerCopy(a.UID)}, nil
}

func (s *Session) removeSigner(a RemoveSigner) (Outcome, error) {
	// A held field drop already carries its owner, so removal waits for it.
	if s.gestureActive() {
		return Outcome{}, invalidAction(a.UID, reorder.ErrGestureActive, "cannot remove a signer while a gesture is held")
	}
	idx, err := s.signerIndex(a.UID)
	if err != nil {
		return Outcome{}, err
	}

	s.roster.Remove(idx)
	delete(s.signers, a.UID)
	removed := s.board.DeleteBySigner(a.UID)
	if len(removed) > 0 {
		s.edited(syncer.StreamFields)
	}
	s.edited(syncer.StreamSigners)

	s.logger.Debug("signer removed", "uid", a.UID, "fields_removed", len(removed))
	return Outcome{Changed: true, Removed: removed}, nil
}

func (s *Session) moveSigner(a MoveSigner) (Outcome, error) {
	if s.roster.Dragging() {
		return Outcome{}, invalidAction(a.UID, reorder.ErrGestureActive, "cannot move a signer during a reorder drag")
	}
	idx, err := s.signerIndex(a.UID)
	if err != nil {
		return Outcome{}, err
	}
	if a.Position < 1 || a.Position > s.roster.Len() {
		return Outcome{}, invalidAction(a.UID, reorder.ErrOutOfRange, "position %d out of range [1, %d]", a.Position, s.roster.Len())
	}

	changed := s.roster.Move(idx, a.Position-1)
	if changed {
		s.edited(syncer.StreamSigners)
	}
	return Outcome{Changed: changed, Signer: s.signerCopy(a.UID), Transforms: s.roster.Transforms()}, nil
}

func (s *Session) beginReorder(a BeginReorder) (Outcome, error) {
	if s.board.Moving() || s.board.Dropping() {
		return Outcome{}, invalidAction(a.UID, reorder.ErrGestureActive, "another gesture is active")
	}
	idx, err := s.signerIndex(a.UID)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.roster.BeginDrag(idx); err != nil {
		return Outcome{}, invalidAction(a.UID, err, "cannot start reorder")
	}
	return Outcome{Transforms: s.roster.Transforms()}, nil
}

func (s *Session) dragReorder(a DragReorder) (Outcome, error) {
	ts, err := s.roster.DragTo(a.DeltaY)
	if err != nil {
		return Outcome{}, invalidAction("", err, "cannot drag reorder")
	}
	return Outcome{Transforms: ts}, nil
}

func (s *Session) endReorder() (Outcome, error) {
	changed, err := s.roster.EndDrag()
	if err != nil {
		return Outcome{}, invalidAction("", err, "no reorder in progress")
	}
	if changed {
		s.edited(syncer.StreamSigners)
	}
	return Outcome{Changed: changed, Transforms: s.roster.Transforms()}, nil
}

func (s *Session) cancelReorder() (Outcome, error) {
	if !s.roster.CancelDrag() {
		return Outcome{}, invalidAction("", reorder.ErrNoGesture, "no reorder in progress")
	}
	return Outcome{Transforms: s.roster.Transforms()}, nil
}

// confirm validates every row, then saves the signers right away. Rows are
// returned sorted by their step as derived from the committed order.
func (s *Session) confirm(ctx context.Context) (Outcome, error) {
	signers := s.orderedSigners()
	if issues := model.ValidateSigners(signers); len(issues) > 0 {
		return Outcome{}, validationError(issues)
	}
	slices.SortStableFunc(signers, func(a, b model.Signer) int {
		return cmp.Compare(a.Step, b.Step)
	})

	if s.streams[syncer.StreamSigners].sched.Flush() {
		s.startSync(ctx, syncer.StreamSigners)
	}
	return Outcome{Confirmed: signers}, nil
}
