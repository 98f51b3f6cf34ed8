package reorder

import (
	"math"
	"slices"
)

// DefaultRowHeight is the row height in pixels used when none is configured.
const DefaultRowHeight = 56.0

// Transform is the visual placement of one item during or after a drag.
// Y is the offset of the row from the top of the list in pixels.
type Transform struct {
	Index  int     `json:"index"`
	Y      float64 `json:"y"`
	Active bool    `json:"active"`
}

// List pairs stable items with an Order and supports a single drag gesture.
//
// While a drag is held the live order is updated on every frame so the rows
// can reflow; the committed order only changes when the drag ends.
type List[T any] struct {
	items     []T
	order     *Order
	rowHeight float64
	drag      *drag
}

type drag struct {
	index  int   // item index being dragged
	origin int   // slot the item occupied when the drag began
	live   []int // speculative order for the current frame
	deltaY float64
}

// NewList creates an empty list. A non-positive rowHeight selects DefaultRowHeight.
func NewList[T any](rowHeight float64) *List[T] {
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	return &List[T]{order: NewOrder(0), rowHeight: rowHeight}
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return len(l.items)
}

// RowHeight returns the configured row height.
func (l *List[T]) RowHeight() float64 {
	return l.rowHeight
}

// Insert appends item to the items and to the order. Returns its index.
// Any active drag is cancelled.
func (l *List[T]) Insert(item T) int {
	l.drag = nil
	l.items = append(l.items, item)
	return l.order.Insert()
}

// Remove deletes the item at index and renumbers the order.
// Any active drag is cancelled.
func (l *List[T]) Remove(index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(l.items) {
		return zero, false
	}
	l.drag = nil
	item := l.items[index]
	l.items = slices.Delete(l.items, index, index+1)
	l.order.Remove(index)
	return item, true
}

// Move moves the item at index to target (0-based slot) in the committed order.
func (l *List[T]) Move(index, target int) bool {
	return l.order.Move(index, target)
}

// Position returns the 1-based committed position of index, 0 if unknown.
func (l *List[T]) Position(index int) int {
	return l.order.Position(index)
}

// Item returns the item stored at index.
func (l *List[T]) Item(index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(l.items) {
		return zero, false
	}
	return l.items[index], true
}

// IndexFunc returns the index of the first item for which match returns true, or -1.
func (l *List[T]) IndexFunc(match func(T) bool) int {
	return slices.IndexFunc(l.items, match)
}

// Ordered returns the items in committed display order.
func (l *List[T]) Ordered() []T {
	out := make([]T, 0, len(l.items))
	for _, idx := range l.order.slots {
		out = append(out, l.items[idx])
	}
	return out
}

// Order returns a copy of the committed permutation vector.
func (l *List[T]) Order() []int {
	return l.order.Slots()
}

// Dragging reports whether a drag gesture is active.
func (l *List[T]) Dragging() bool {
	return l.drag != nil
}

// BeginDrag starts a drag of the item at index.
func (l *List[T]) BeginDrag(index int) error {
	if l.drag != nil {
		return ErrGestureActive
	}
	if index < 0 || index >= len(l.items) {
		return ErrOutOfRange
	}
	l.drag = &drag{
		index:  index,
		origin: l.order.Position(index) - 1,
		live:   l.order.Slots(),
	}
	return nil
}

// DragTo applies the cumulative pointer offset deltaY to the active drag.
// The candidate slot is the origin slot plus deltaY/rowHeight, rounded and
// clamped to [0, n-1]. Returns the transforms for the current frame. A NaN or
// infinite offset is rejected and the previous frame stays in place.
func (l *List[T]) DragTo(deltaY float64) ([]Transform, error) {
	d := l.drag
	if d == nil {
		return nil, ErrNoGesture
	}
	if math.IsNaN(deltaY) || math.IsInf(deltaY, 0) {
		return nil, ErrInvalidOffset
	}
	target := l.targetSlot(d.origin, deltaY)
	d.deltaY = deltaY
	d.live = moveSlot(l.order.slots, d.origin, target)
	return l.transforms(d.live, d), nil
}

// EndDrag commits the live order of the active drag. Returns true when the
// committed order changed.
func (l *List[T]) EndDrag() (bool, error) {
	d := l.drag
	if d == nil {
		return false, ErrNoGesture
	}
	l.drag = nil
	target := slices.Index(d.live, d.index)
	return l.order.Move(d.index, target), nil
}

// CancelDrag drops the active drag without touching the committed order.
// Returns false if no drag was active.
func (l *List[T]) CancelDrag() bool {
	if l.drag == nil {
		return false
	}
	l.drag = nil
	return true
}

// Transforms returns the resting transforms for the committed order, or the
// live transforms when a drag is active.
func (l *List[T]) Transforms() []Transform {
	if l.drag != nil {
		return l.transforms(l.drag.live, l.drag)
	}
	return l.transforms(l.order.slots, nil)
}

func (l *List[T]) targetSlot(origin int, deltaY float64) int {
	n := len(l.items)
	target := int(math.Round(float64(origin) + deltaY/l.rowHeight))
	return max(0, min(target, n-1))
}

func (l *List[T]) transforms(slots []int, d *drag) []Transform {
	out := make([]Transform, len(l.items))
	for slot, idx := range slots {
		t := Transform{Index: idx, Y: float64(slot) * l.rowHeight}
		if d != nil && idx == d.index {
			// The dragged row follows the pointer rather than snapping to its slot.
			t.Y = float64(d.origin)*l.rowHeight + d.deltaY
			t.Active = true
		}
		out[idx] = t
	}
	return out
}
