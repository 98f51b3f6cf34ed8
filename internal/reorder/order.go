// Package reorder maintains an ordered list of items as a permutation over
// stable item indices.
//
// Items keep the index they were inserted at. The order vector maps display
// slot to item index, and a display position is always derived from it:
//
//	position(index) = order.indexOf(index) + 1
//
// Removing an item compacts the indices of the survivors, so the order stays
// a permutation of [0, n) at all times.
package reorder

import (
	"errors"
	"slices"
)

var (
	// ErrGestureActive is returned when a drag starts while another is in progress.
	ErrGestureActive = errors.New("reorder: a drag gesture is already active")

	// ErrNoGesture is returned when a drag update or release arrives without a drag.
	ErrNoGesture = errors.New("reorder: no drag gesture is active")

	// ErrOutOfRange is returned for indices outside [0, n).
	ErrOutOfRange = errors.New("reorder: index out of range")

	// ErrInvalidOffset is returned for a drag offset that is NaN or infinite.
	ErrInvalidOffset = errors.New("reorder: drag offset is not finite")
)

// Order is a permutation vector. Slot i holds the item index displayed at
// position i+1.
type Order struct {
	slots []int
}

// NewOrder returns the identity permutation of length n.
func NewOrder(n int) *Order {
	o := &Order{slots: make([]int, n)}
	for i := range o.slots {
		o.slots[i] = i
	}
	return o
}

// Len returns the number of entries.
func (o *Order) Len() int {
	return len(o.slots)
}

// Insert appends a new item index to the end of the order and returns it.
func (o *Order) Insert() int {
	idx := len(o.slots)
	o.slots = append(o.slots, idx)
	return idx
}

// Remove drops index from the order and decrements every entry greater
// than index, preserving the relative sequence of the survivors.
// Returns false if index is out of range.
func (o *Order) Remove(index int) bool {
	if index < 0 || index >= len(o.slots) {
		return false
	}
	out := make([]int, 0, len(o.slots)-1)
	for _, v := range o.slots {
		switch {
		case v == index:
			continue
		case v > index:
			out = append(out, v-1)
		default:
			out = append(out, v)
		}
	}
	o.slots = out
	return true
}

// Move takes the entry for index out of its current slot and reinserts it
// at target (0-based). Returns false when nothing changed: either argument
// is out of range, or the item already sits at target.
func (o *Order) Move(index, target int) bool {
	n := len(o.slots)
	if index < 0 || index >= n || target < 0 || target >= n {
		return false
	}
	from := slices.Index(o.slots, index)
	if from == target {
		return false
	}
	o.slots = moveSlot(o.slots, from, target)
	return true
}

// Position returns the 1-based display position of index, or 0 if the index
// is not part of the order.
func (o *Order) Position(index int) int {
	return slices.Index(o.slots, index) + 1
}

// At returns the item index displayed at slot (0-based).
func (o *Order) At(slot int) (int, bool) {
	if slot < 0 || slot >= len(o.slots) {
		return 0, false
	}
	return o.slots[slot], true
}

// Slots returns a copy of the permutation vector.
func (o *Order) Slots() []int {
	return slices.Clone(o.slots)
}

// IsPermutation reports whether slots contains every value in [0, len) exactly once.
func IsPermutation(slots []int) bool {
	seen := make([]bool, len(slots))
	for _, v := range slots {
		if v < 0 || v >= len(slots) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// moveSlot returns a copy of slots with the entry at from reinserted at to.
func moveSlot(slots []int, from, to int) []int {
	out := slices.Clone(slots)
	v := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, v)
}
