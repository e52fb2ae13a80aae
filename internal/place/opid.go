package place

import (
	"sync"

	"github.com/google/uuid"
)

// OpIDGenerator produces operation identifiers for placement results.
// Every committed placement gets one so the journal can correlate
// writes with requests.
type OpIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 operation IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, making IDs
// sortable by creation time, which keeps the placement journal in
// chronological order without a separate sequence column.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined operation IDs for testing.
//
// This enables deterministic test execution and exact result comparison.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns IDs in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics if all IDs have been consumed, to fail fast on test
// misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
