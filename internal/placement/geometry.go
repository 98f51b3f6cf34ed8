// Package placement owns the (x, y, page) of every field placed on a document.
//
// Coordinates are integer surface pixels and name the top-left corner of a
// field box. Each field type has its own box size and pointer anchor; the
// anchor is where the pointer sits relative to the box while a new field is
// being dropped. Interactive movement is clamped so the whole box stays on
// the page:
//
//	left = 0, top = 0, right = width - box.Width, bottom = height - box.Height
package placement

import (
	"github.com/roach88/signflow/internal/model"
)

// Geometry is the footprint of one field type.
type Geometry struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	AnchorX int `json:"anchor_x"`
	AnchorY int `json:"anchor_y"`
}

// Geometries maps each field type to its footprint.
type Geometries map[model.FieldType]Geometry

// DefaultGeometries returns the built-in footprints. Signatures use a taller
// box and are anchored on its center, so their vertical anchor offset is
// larger than that of the single-line types.
func DefaultGeometries() Geometries {
	line := Geometry{Width: 160, Height: 32, AnchorX: 80, AnchorY: 16}
	return Geometries{
		model.FieldName:      line,
		model.FieldDate:      line,
		model.FieldText:      line,
		model.FieldSignature: {Width: 200, Height: 64, AnchorX: 100, AnchorY: 32},
	}
}

// Surface is the placement area of a single page.
type Surface struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultSurface is a US Letter page at 72 dpi.
var DefaultSurface = Surface{Width: 612, Height: 792}

// Rect is an axis-aligned rectangle in surface pixels.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// Rect returns the surface as a rectangle anchored at the origin.
func (s Surface) Rect() Rect {
	return Rect{Width: s.Width, Height: s.Height}
}

// Bounds is the range of legal top-left coordinates for a box.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Bounds returns the legal top-left range for a box of geometry g.
// A box larger than the surface is pinned to the origin.
func (s Surface) Bounds(g Geometry) Bounds {
	return Bounds{
		Right:  max(0, s.Width-g.Width),
		Bottom: max(0, s.Height-g.Height),
	}
}

// Clamp clamps each axis independently into the bounds.
func (b Bounds) Clamp(x, y int) (int, int) {
	return clamp(x, b.Left, b.Right), clamp(y, b.Top, b.Bottom)
}

// Contains reports whether (x, y) is a legal top-left coordinate.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.Left && x <= b.Right && y >= b.Top && y <= b.Bottom
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
