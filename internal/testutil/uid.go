package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/signflow/internal/model"
)

// SequentialUIDs generates client identifiers "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same SequentialUIDs produces byte-identical
// snapshots.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialUIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialUIDs creates a generator. An empty prefix uses "uid".
func NewSequentialUIDs(prefix string) *SequentialUIDs {
	if prefix == "" {
		prefix = "uid"
	}
	return &SequentialUIDs{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequentialUIDs) Generate() model.UID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return model.UID(fmt.Sprintf("%s-%d", g.prefix, g.n))
}

// Reset restarts the sequence at 1.
func (g *SequentialUIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
