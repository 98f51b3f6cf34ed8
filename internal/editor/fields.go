package editor

import (
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
)

func (s *Session) owner(uid model.UID) (placement.Owner, error) {
	sg, ok := s.signers[uid]
	if !ok {
		return placement.Owner{}, invalidAction(uid, nil, "unknown signer")
	}
	return placement.Owner{UID: sg.UID, ColorTag: sg.ColorTag}, nil
}

// fieldRepositioned is the board's OnReposition callback.
func (s *Session) fieldRepositioned(f model.FieldPlacement) {
	s.logger.Debug("field repositioned", "uid", f.UID, "x", f.X, "y", f.Y)
	s.edited(syncer.StreamFields)
}

func (s *Session) placeField(a PlaceField) (Outcome, error) {
	owner, err := s.owner(a.Signer)
	if err != nil {
		return Outcome{}, err
	}
	page := a.Page
	if page == 0 {
		page = s.board.ActivePage()
	}
	f, err := s.board.PlaceField(a.X, a.Y, page, a.Type, owner)
	if err != nil {
		return Outcome{}, invalidAction("", err, "cannot place field")
	}
	s.edited(syncer.StreamFields)
	return Outcome{Changed: true, Field: &f}, nil
}

func (s *Session) beginFieldMove(a BeginFieldMove) (Outcome, error) {
	if s.roster.Dragging() {
		return Outcome{}, invalidAction(a.UID, reorder.ErrGestureActive, "another gesture is active")
	}
	if err := s.board.BeginMove(a.UID); err != nil {
		return Outcome{}, invalidAction(a.UID, err, "cannot start move")
	}
	f, _ := s.board.Field(a.UID)
	return Outcome{Field: &f}, nil
}

func (s *Session) dragField(a DragField) (Outcome, error) {
	f, err := s.board.DragMove(a.DX, a.DY)
	if err != nil {
		return Outcome{}, invalidAction("", err, "no move in progress")
	}
	return Outcome{Field: &f}, nil
}

func (s *Session) endFieldMove() (Outcome, error) {
	f, moved, err := s.board.EndMove()
	if err != nil {
		return Outcome{}, invalidAction("", err, "no move in progress")
	}
	return Outcome{Changed: moved, Field: &f}, nil
}

func (s *Session) cancelFieldMove() (Outcome, error) {
	if !s.board.CancelMove() {
		return Outcome{}, invalidAction("", placement.ErrNoGesture, "no move in progress")
	}
	return Outcome{}, nil
}

func (s *Session) repositionField(a RepositionField) (Outcome, error) {
	before, _ := s.board.Field(a.UID)
	f, err := s.board.Reposition(a.UID, a.DX, a.DY)
	if err != nil {
		return Outcome{}, invalidAction(a.UID, err, "cannot reposition field")
	}
	return Outcome{Changed: f.X != before.X || f.Y != before.Y, Field: &f}, nil
}

func (s *Session) deleteField(a DeleteField) (Outcome, error) {
	if !s.board.Delete(a.UID) {
		return Outcome{}, invalidAction(a.UID, placement.ErrUnknownField, "unknown field")
	}
	s.edited(syncer.StreamFields)
	return Outcome{Changed: true, Removed: []model.UID{a.UID}}, nil
}

func (s *Session) beginDrop(a BeginDrop) (Outcome, error) {
	if s.roster.Dragging() {
		return Outcome{}, invalidAction("", reorder.ErrGestureActive, "another gesture is active")
	}
	owner, err := s.owner(a.Signer)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.board.BeginDrop(a.Type, owner); err != nil {
		return Outcome{}, invalidAction("", err, "cannot start drop")
	}
	return Outcome{}, nil
}

func (s *Session) trackDrop(a TrackDrop) (Outcome, error) {
	p, err := s.board.TrackDrop(a.X, a.Y)
	if err != nil {
		return Outcome{}, invalidAction("", err, "no drop in progress")
	}
	return Outcome{Preview: &p}, nil
}

func (s *Session) releaseDrop(a ReleaseDrop) (Outcome, error) {
	f, created, err := s.board.ReleaseDrop(a.X, a.Y)
	if err != nil {
		return Outcome{}, invalidAction("", err, "cannot release drop")
	}
	if !created {
		return Outcome{}, nil
	}
	s.edited(syncer.StreamFields)
	return Outcome{Changed: true, Field: &f}, nil
}

func (s *Session) cancelDrop() (Outcome, error) {
	if !s.board.CancelDrop() {
		return Outcome{}, invalidAction("", placement.ErrNoGesture, "no drop in progress")
	}
	return Outcome{}, nil
}

func (s *Session) setActivePage(a SetActivePage) (Outcome, error) {
	if s.board.Moving() {
		return Outcome{}, invalidAction("", placement.ErrGestureActive, "cannot switch pages while moving a field")
	}
	if err := s.board.SetActivePage(a.Page); err != nil {
		return Outcome{}, invalidAction("", err, "cannot switch page")
	}
	return Outcome{}, nil
}

func (s *Session) setTitle(a SetTitle) (Outcome, error) {
	if a.Title == s.meta.Title {
		return Outcome{}, nil
	}
	s.meta.Title = a.Title
	s.edited(syncer.StreamTitle)
	return Outcome{Changed: true}, nil
}

func (s *Session) setDates(a SetDates) (Outcome, error) {
	if datesEqual(a.Dates, s.meta.Dates) {
		return Outcome{}, nil
	}
	s.meta.Dates = cloneDates(a.Dates)
	s.edited(syncer.StreamDates)
	return Outcome{Changed: true}, nil
}
