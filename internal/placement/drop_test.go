package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signflow/internal/model"
)

func TestBoard_DropInsideCreatesField(t *testing.T) {
	b := newBoard(t, 1)
	require.NoError(t, b.BeginDrop(model.FieldSignature, alice))

	p, err := b.TrackDrop(300, 400)
	require.NoError(t, err)
	assert.True(t, p.Inside)
	// The pointer holds the signature box at its center.
	assert.Equal(t, Rect{Left: 200, Top: 368, Width: 200, Height: 64}, p.Box)

	f, created, err := b.ReleaseDrop(300, 400)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 200, f.X)
	assert.Equal(t, 368, f.Y)
	assert.Equal(t, 1, f.Page)
	assert.False(t, b.Dropping())
}

func TestBoard_DropUsesTypeAnchor(t *testing.T) {
	b := newBoard(t, 1)

	require.NoError(t, b.BeginDrop(model.FieldName, alice))
	f, created, err := b.ReleaseDrop(300, 400)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, 220, f.X)
	assert.Equal(t, 384, f.Y)
}

func TestBoard_DropOutsideCreatesNothing(t *testing.T) {
	tests := []struct {
		name   string
		px, py int
	}{
		{"left of surface", -50, 200},
		{"above surface", 300, -10},
		{"right of surface", DefaultSurface.Width + 200, 300},
		{"below surface", 300, DefaultSurface.Height + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBoard(t, 1)
			require.NoError(t, b.BeginDrop(model.FieldSignature, alice))

			p, err := b.TrackDrop(tt.px, tt.py)
			require.NoError(t, err)
			assert.False(t, p.Inside)

			_, created, err := b.ReleaseDrop(tt.px, tt.py)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, 0, b.Len())
			assert.False(t, b.Dropping())
		})
	}
}

func TestBoard_DropNearEdgeIsClamped(t *testing.T) {
	b := newBoard(t, 1)
	require.NoError(t, b.BeginDrop(model.FieldSignature, alice))

	// Anchored point lands just inside the bottom-right corner.
	f, created, err := b.ReleaseDrop(DefaultSurface.Width+100, DefaultSurface.Height+32)
	require.NoError(t, err)
	require.True(t, created)

	bounds := DefaultSurface.Bounds(DefaultGeometries()[model.FieldSignature])
	assert.Equal(t, bounds.Right, f.X)
	assert.Equal(t, bounds.Bottom, f.Y)
}

func TestBoard_DropLandsOnActivePage(t *testing.T) {
	b := newBoard(t, 3)
	require.NoError(t, b.SetActivePage(3))
	require.NoError(t, b.BeginDrop(model.FieldDate, alice))

	f, created, err := b.ReleaseDrop(100, 100)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 3, f.Page)
}

func TestBoard_DropGestureExclusive(t *testing.T) {
	b := newBoard(t, 1)
	f, err := b.PlaceField(0, 0, 1, model.FieldName, alice)
	require.NoError(t, err)

	require.NoError(t, b.BeginDrop(model.FieldName, alice))
	assert.ErrorIs(t, b.BeginDrop(model.FieldDate, alice), ErrGestureActive)
	assert.ErrorIs(t, b.BeginMove(f.UID), ErrGestureActive)

	assert.True(t, b.CancelDrop())
	assert.False(t, b.CancelDrop())
	require.NoError(t, b.BeginMove(f.UID))
	assert.ErrorIs(t, b.BeginDrop(model.FieldName, alice), ErrGestureActive)
}

func TestBoard_DropWithoutGesture(t *testing.T) {
	b := newBoard(t, 1)

	_, err := b.TrackDrop(1, 1)
	assert.ErrorIs(t, err, ErrNoGesture)
	_, _, err = b.ReleaseDrop(1, 1)
	assert.ErrorIs(t, err, ErrNoGesture)
	assert.ErrorIs(t, b.BeginDrop("stamp", alice), ErrUnknownType)
}
