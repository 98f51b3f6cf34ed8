package editor

import (
	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/placement"
	"github.com/roach88/signflow/internal/reorder"
	"github.com/roach88/signflow/internal/syncer"
)

// Action is a tagged mutation of session state. Every change to the
// session goes through exactly one Action.
type Action interface {
	ActionName() string
}

// Outcome is what an action produced. Only the fields relevant to the
// action are set.
type Outcome struct {
	// Changed reports whether state that is synced changed.
	Changed bool

	Signer     *model.Signer
	Field      *model.FieldPlacement
	Transforms []reorder.Transform
	Preview    *placement.Preview

	// Confirmed holds the signers sorted by step after a successful Confirm.
	Confirmed []model.Signer

	// Removed lists field uids deleted as a side effect.
	Removed []model.UID

	Snapshot *Snapshot
}

// AddSigner appends a signer at the last position.
type AddSigner struct {
	Name     string
	Email    string
	Role     model.Role
	Reminder model.Reminder
}

// UpdateSigner edits the contact data of a signer. Nil fields are left alone.
type UpdateSigner struct {
	UID      model.UID
	Name     *string
	Email    *string
	Role     *model.Role
	Reminder *model.Reminder
}

// RemoveSigner deletes a signer and every field assigned to it.
type RemoveSigner struct {
	UID model.UID
}

// MoveSigner moves a signer to a 1-based position without a drag.
type MoveSigner struct {
	UID      model.UID
	Position int
}

// BeginReorder starts dragging a signer row.
type BeginReorder struct {
	UID model.UID
}

// DragReorder reports the cumulative vertical pointer offset of the drag.
type DragReorder struct {
	DeltaY float64
}

// EndReorder commits the dragged order.
type EndReorder struct{}

// CancelReorder discards the dragged order.
type CancelReorder struct{}

// PlaceField creates a field at (X, Y). Page 0 selects the active page.
type PlaceField struct {
	Signer model.UID
	Type   model.FieldType
	Page   int
	X, Y   int
}

// BeginFieldMove starts dragging an existing field.
type BeginFieldMove struct {
	UID model.UID
}

// DragField reports the cumulative offset of the field move.
type DragField struct {
	DX, DY int
}

// EndFieldMove releases the dragged field.
type EndFieldMove struct{}

// CancelFieldMove puts the dragged field back.
type CancelFieldMove struct{}

// RepositionField moves a field by (DX, DY) in one step.
type RepositionField struct {
	UID    model.UID
	DX, DY int
}

// DeleteField removes a field by uid.
type DeleteField struct {
	UID model.UID
}

// BeginDrop starts dragging a new field from the palette.
type BeginDrop struct {
	Signer model.UID
	Type   model.FieldType
}

// TrackDrop moves the drop preview to pointer (X, Y) on the surface.
type TrackDrop struct {
	X, Y int
}

// ReleaseDrop releases the new field at pointer (X, Y).
type ReleaseDrop struct {
	X, Y int
}

// CancelDrop abandons the drop.
type CancelDrop struct{}

// SetActivePage switches the visible page.
type SetActivePage struct {
	Page int
}

// SetTitle changes the agreement title.
type SetTitle struct {
	Title string
}

// SetDates changes the agreement deadlines.
type SetDates struct {
	Dates model.DateSequence
}

// Confirm validates the signers, returns them sorted by step and saves them
// without waiting for the debounce window.
type Confirm struct{}

// Retry resends a stream whose last sync failed. An empty Stream retries
// every failed stream.
type Retry struct {
	Stream syncer.Stream
}

// TakeSnapshot returns a read-only copy of the session state.
type TakeSnapshot struct{}

// debounceElapsed is enqueued by a stream's debounce timer.
type debounceElapsed struct {
	stream syncer.Stream
	gen    uint64
}

// syncCompleted is enqueued when a sync request returns.
type syncCompleted struct {
	stream syncer.Stream
	seq    int64
	ids    identity.IDMap
	err    error
}

func (AddSigner) ActionName() string       { return "add_signer" }
func (UpdateSigner) ActionName() string    { return "update_signer" }
func (RemoveSigner) ActionName() string    { return "remove_signer" }
func (MoveSigner) ActionName() string      { return "move_signer" }
func (BeginReorder) ActionName() string    { return "begin_reorder" }
func (DragReorder) ActionName() string     { return "drag_reorder" }
func (EndReorder) ActionName() string      { return "end_reorder" }
func (CancelReorder) ActionName() string   { return "cancel_reorder" }
func (PlaceField) ActionName() string      { return "place_field" }
func (BeginFieldMove) ActionName() string  { return "begin_field_move" }
func (DragField) ActionName() string       { return "drag_field" }
func (EndFieldMove) ActionName() string    { return "end_field_move" }
func (CancelFieldMove) ActionName() string { return "cancel_field_move" }
func (RepositionField) ActionName() string { return "reposition_field" }
func (DeleteField) ActionName() string     { return "delete_field" }
func (BeginDrop) ActionName() string       { return "begin_drop" }
func (TrackDrop) ActionName() string       { return "track_drop" }
func (ReleaseDrop) ActionName() string     { return "release_drop" }
func (CancelDrop) ActionName() string      { return "cancel_drop" }
func (SetActivePage) ActionName() string   { return "set_active_page" }
func (SetTitle) ActionName() string        { return "set_title" }
func (SetDates) ActionName() string        { return "set_dates" }
func (Confirm) ActionName() string         { return "confirm" }
func (Retry) ActionName() string           { return "retry" }
func (TakeSnapshot) ActionName() string    { return "take_snapshot" }
func (debounceElapsed) ActionName() string { return "debounce_elapsed" }
func (syncCompleted) ActionName() string   { return "sync_completed" }
