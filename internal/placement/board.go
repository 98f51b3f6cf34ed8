package placement

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/signflow/internal/model"
)

var (
	// ErrUnknownField is returned when a uid does not name a resident field.
	ErrUnknownField = errors.New("placement: unknown field")

	// ErrInvalidPage is returned for pages outside [1, pages].
	ErrInvalidPage = errors.New("placement: invalid page")

	// ErrUnknownType is returned for a field type without a geometry.
	ErrUnknownType = errors.New("placement: unknown field type")

	// ErrGestureActive is returned when a gesture starts while another is held.
	ErrGestureActive = errors.New("placement: a gesture is already active")

	// ErrNoGesture is returned when a gesture update arrives with nothing held.
	ErrNoGesture = errors.New("placement: no gesture is active")
)

// Owner identifies the signer a new field belongs to.
type Owner struct {
	UID      model.UID
	ColorTag string
}

// Placed is a field together with the box it occupies on the surface.
type Placed struct {
	Field model.FieldPlacement `json:"field"`
	Box   Rect                 `json:"box"`
}

// Board holds the fields of every page. Only the fields of the active page
// are visible, but all of them stay resident so switching pages never drops
// unsaved placements.
//
// Board is not safe for concurrent use; the editor session owns it.
type Board struct {
	surface    Surface
	geoms      Geometries
	pages      int
	activePage int

	fields map[model.UID]*model.FieldPlacement
	seq    []model.UID // creation order

	newUID func() model.UID
	move   *moveGesture
	drop   *dropGesture

	// OnReposition is called with the final coordinates of a field whenever a
	// move gesture or a one-shot reposition changes its position.
	OnReposition func(model.FieldPlacement)
}

type moveGesture struct {
	uid     model.UID
	originX int
	originY int
}

type dropGesture struct {
	fieldType model.FieldType
	owner     Owner
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithSurface sets the placement surface of every page.
func WithSurface(s Surface) BoardOption {
	return func(b *Board) {
		b.surface = s
	}
}

// WithGeometries sets the per-type footprints.
func WithGeometries(g Geometries) BoardOption {
	return func(b *Board) {
		b.geoms = g
	}
}

// NewBoard creates a board for a document with the given page count.
// newUID supplies identifiers for fields created on this board.
func NewBoard(pages int, newUID func() model.UID, opts ...BoardOption) *Board {
	b := &Board{
		surface:    DefaultSurface,
		geoms:      DefaultGeometries(),
		pages:      max(1, pages),
		activePage: 1,
		fields:     make(map[model.UID]*model.FieldPlacement),
		newUID:     newUID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Surface returns the placement surface.
func (b *Board) Surface() Surface {
	return b.surface
}

// Pages returns the document page count.
func (b *Board) Pages() int {
	return b.pages
}

// ActivePage returns the page currently shown.
func (b *Board) ActivePage() int {
	return b.activePage
}

// SetActivePage switches the visible page.
func (b *Board) SetActivePage(page int) error {
	if page < 1 || page > b.pages {
		return fmt.Errorf("%w: %d of %d", ErrInvalidPage, page, b.pages)
	}
	b.activePage = page
	return nil
}

// Geometry returns the footprint for a field type.
func (b *Board) Geometry(ft model.FieldType) (Geometry, error) {
	g, ok := b.geoms[ft]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: %q", ErrUnknownType, ft)
	}
	return g, nil
}

// PlaceField creates a field whose box top-left is at (x, y) on page.
// The coordinates are clamped into the page bounds for the field type.
func (b *Board) PlaceField(x, y, page int, ft model.FieldType, owner Owner) (model.FieldPlacement, error) {
	if page < 1 || page > b.pages {
		return model.FieldPlacement{}, fmt.Errorf("%w: %d of %d", ErrInvalidPage, page, b.pages)
	}
	g, err := b.Geometry(ft)
	if err != nil {
		return model.FieldPlacement{}, err
	}
	x, y = b.surface.Bounds(g).Clamp(x, y)

	f := &model.FieldPlacement{
		UID:       b.newUID(),
		SignerRef: owner.UID,
		Type:      ft,
		Page:      page,
		X:         x,
		Y:         y,
		ColorTag:  owner.ColorTag,
	}
	b.fields[f.UID] = f
	b.seq = append(b.seq, f.UID)
	return *f, nil
}

// Reposition moves a field by (dx, dy). Both axes are clamped before the
// candidate is committed, so a field never ends up half-moved.
func (b *Board) Reposition(uid model.UID, dx, dy int) (model.FieldPlacement, error) {
	f, ok := b.fields[uid]
	if !ok {
		return model.FieldPlacement{}, fmt.Errorf("%w: %s", ErrUnknownField, uid)
	}
	if b.move != nil && b.move.uid == uid {
		return model.FieldPlacement{}, ErrGestureActive
	}
	if b.commit(f, f.X+dx, f.Y+dy) {
		b.reposition(*f)
	}
	return *f, nil
}

// BeginMove starts a drag of an existing field.
func (b *Board) BeginMove(uid model.UID) error {
	if b.move != nil || b.drop != nil {
		return ErrGestureActive
	}
	f, ok := b.fields[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, uid)
	}
	b.move = &moveGesture{uid: uid, originX: f.X, originY: f.Y}
	return nil
}

// Moving reports whether an existing field is being dragged.
func (b *Board) Moving() bool {
	return b.move != nil
}

// DragMove applies the cumulative offset (dx, dy) from the start of the move.
func (b *Board) DragMove(dx, dy int) (model.FieldPlacement, error) {
	m := b.move
	if m == nil {
		return model.FieldPlacement{}, ErrNoGesture
	}
	f := b.fields[m.uid]
	b.commit(f, m.originX+dx, m.originY+dy)
	return *f, nil
}

// EndMove releases the held field and reports its final coordinates through
// OnReposition when they differ from where the move started. The returned
// bool reports whether the field moved.
func (b *Board) EndMove() (model.FieldPlacement, bool, error) {
	m := b.move
	if m == nil {
		return model.FieldPlacement{}, false, ErrNoGesture
	}
	b.move = nil
	f := b.fields[m.uid]
	moved := f.X != m.originX || f.Y != m.originY
	if moved {
		b.reposition(*f)
	}
	return *f, moved, nil
}

// CancelMove puts the held field back where the move started.
func (b *Board) CancelMove() bool {
	m := b.move
	if m == nil {
		return false
	}
	b.move = nil
	f := b.fields[m.uid]
	f.X, f.Y = m.originX, m.originY
	return true
}

// Delete removes a field by uid. Other fields are untouched.
func (b *Board) Delete(uid model.UID) bool {
	if _, ok := b.fields[uid]; !ok {
		return false
	}
	if b.move != nil && b.move.uid == uid {
		b.move = nil
	}
	delete(b.fields, uid)
	b.seq = slices.DeleteFunc(b.seq, func(u model.UID) bool { return u == uid })
	return true
}

// DeleteBySigner removes every field that belongs to signer and returns their uids.
func (b *Board) DeleteBySigner(signer model.UID) []model.UID {
	var removed []model.UID
	for _, uid := range slices.Clone(b.seq) {
		if b.fields[uid].SignerRef == signer {
			b.Delete(uid)
			removed = append(removed, uid)
		}
	}
	return removed
}

// Field returns a copy of the field with the given uid.
func (b *Board) Field(uid model.UID) (model.FieldPlacement, bool) {
	f, ok := b.fields[uid]
	if !ok {
		return model.FieldPlacement{}, false
	}
	return *f, true
}

// Len returns the number of resident fields across all pages.
func (b *Board) Len() int {
	return len(b.seq)
}

// Fields returns copies of every resident field in creation order.
func (b *Board) Fields() []model.FieldPlacement {
	out := make([]model.FieldPlacement, 0, len(b.seq))
	for _, uid := range b.seq {
		out = append(out, *b.fields[uid])
	}
	return out
}

// Visible returns the fields on the active page with their boxes.
func (b *Board) Visible() []Placed {
	var out []Placed
	for _, uid := range b.seq {
		f := b.fields[uid]
		if f.Page != b.activePage {
			continue
		}
		out = append(out, Placed{Field: *f, Box: b.box(*f)})
	}
	return out
}

// Restore replaces the board contents with fields loaded from the server.
// Fields without a uid receive a fresh one. Fields on pages that do not exist
// or with unknown types are rejected and returned.
func (b *Board) Restore(fields []model.FieldPlacement) []model.FieldPlacement {
	b.fields = make(map[model.UID]*model.FieldPlacement, len(fields))
	b.seq = b.seq[:0]
	b.move, b.drop = nil, nil

	var rejected []model.FieldPlacement
	for _, in := range fields {
		g, err := b.Geometry(in.Type)
		if err != nil || in.Page < 1 || in.Page > b.pages {
			rejected = append(rejected, in)
			continue
		}
		f := in
		if f.UID == "" {
			f.UID = b.newUID()
		}
		if _, dup := b.fields[f.UID]; dup {
			rejected = append(rejected, in)
			continue
		}
		f.X, f.Y = b.surface.Bounds(g).Clamp(f.X, f.Y)
		b.fields[f.UID] = &f
		b.seq = append(b.seq, f.UID)
	}
	return rejected
}

// AssignServerID sets the server id of a field. It reports whether the id
// changed and whether the uid was found.
func (b *Board) AssignServerID(uid model.UID, id model.ServerID) (changed, found bool) {
	f, ok := b.fields[uid]
	if !ok {
		return false, false
	}
	if f.ServerID == id {
		return false, true
	}
	f.ServerID = id
	return true, true
}

// Box returns the surface rectangle occupied by a field.
func (b *Board) Box(f model.FieldPlacement) Rect {
	return b.box(f)
}

func (b *Board) box(f model.FieldPlacement) Rect {
	g := b.geoms[f.Type]
	return Rect{Left: f.X, Top: f.Y, Width: g.Width, Height: g.Height}
}

// commit clamps the candidate and stores it. Returns true if the field moved.
func (b *Board) commit(f *model.FieldPlacement, x, y int) bool {
	x, y = b.surface.Bounds(b.geoms[f.Type]).Clamp(x, y)
	if x == f.X && y == f.Y {
		return false
	}
	f.X, f.Y = x, y
	return true
}

func (b *Board) reposition(f model.FieldPlacement) {
	if b.OnReposition != nil {
		b.OnReposition(f)
	}
}
