package editor

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/signflow/internal/model"
)

// UIDGenerator produces client identifiers for new signers and fields.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type UIDGenerator interface {
	Generate() model.UID
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() model.UID {
	return model.UID(uuid.Must(uuid.NewV7()).String())
}

// FixedGenerator returns predetermined identifiers in order.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu   sync.Mutex
	uids []model.UID
	idx  int
}

// NewFixedGenerator creates a generator that returns uids in order.
//
//	gen := NewFixedGenerator("s-1", "s-2")
//	gen.Generate() // "s-1"
//	gen.Generate() // "s-2"
//	gen.Generate() // panic: all uids exhausted
func NewFixedGenerator(uids ...model.UID) *FixedGenerator {
	return &FixedGenerator{uids: uids}
}

// Generate returns the next predetermined uid.
//
// Panics if all uids have been consumed, which points at a test that
// created more entities than it declared.
func (g *FixedGenerator) Generate() model.UID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.uids) {
		panic("FixedGenerator: all uids exhausted")
	}
	uid := g.uids[g.idx]
	g.idx++
	return uid
}
