package placement

import (
	"github.com/roach88/signflow/internal/model"
)

// Preview is the floating box that follows the pointer while a new field is
// being dragged onto the surface.
type Preview struct {
	Type   model.FieldType `json:"field_type"`
	Box    Rect            `json:"box"`
	Inside bool            `json:"inside"`
}

// BeginDrop starts dragging a new field of type ft from the palette.
func (b *Board) BeginDrop(ft model.FieldType, owner Owner) error {
	if b.move != nil || b.drop != nil {
		return ErrGestureActive
	}
	if _, err := b.Geometry(ft); err != nil {
		return err
	}
	b.drop = &dropGesture{fieldType: ft, owner: owner}
	return nil
}

// Dropping reports whether a new field is being dragged.
func (b *Board) Dropping() bool {
	return b.drop != nil
}

// TrackDrop positions the preview for a pointer at (px, py), relative to the
// surface origin.
func (b *Board) TrackDrop(px, py int) (Preview, error) {
	d := b.drop
	if d == nil {
		return Preview{}, ErrNoGesture
	}
	return b.preview(d.fieldType, px, py), nil
}

// ReleaseDrop ends the drop at pointer (px, py). A field is created on the
// active page only when the anchored point lies within the surface; a
// release anywhere else creates nothing and returns false.
func (b *Board) ReleaseDrop(px, py int) (model.FieldPlacement, bool, error) {
	d := b.drop
	if d == nil {
		return model.FieldPlacement{}, false, ErrNoGesture
	}
	b.drop = nil

	p := b.preview(d.fieldType, px, py)
	if !p.Inside {
		return model.FieldPlacement{}, false, nil
	}
	f, err := b.PlaceField(p.Box.Left, p.Box.Top, b.activePage, d.fieldType, d.owner)
	if err != nil {
		return model.FieldPlacement{}, false, err
	}
	return f, true, nil
}

// CancelDrop abandons the drop without creating a field.
func (b *Board) CancelDrop() bool {
	if b.drop == nil {
		return false
	}
	b.drop = nil
	return true
}

func (b *Board) preview(ft model.FieldType, px, py int) Preview {
	g := b.geoms[ft]
	x, y := px-g.AnchorX, py-g.AnchorY
	return Preview{
		Type:   ft,
		Box:    Rect{Left: x, Top: y, Width: g.Width, Height: g.Height},
		Inside: b.surface.Rect().Contains(x, y),
	}
}
