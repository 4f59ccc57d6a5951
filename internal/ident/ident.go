// Package ident generates record identifiers.
package ident

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUIDv7 generates time-sortable UUIDv7 identifiers, so inspection records
// and request ids sort by creation time.
//
// Thread-safety: UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequence returns predetermined identifiers in order, for deterministic
// tests and golden output.
//
// Thread-safety: Sequence is safe for concurrent use via internal mutex.
type Sequence struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequence creates a generator that returns ids in order.
//
//	gen := NewSequence("insp-1", "insp-2")
//	gen.Generate() // "insp-1"
//	gen.Generate() // "insp-2"
//	gen.Generate() // panic: all ids exhausted
func NewSequence(ids ...string) *Sequence {
	return &Sequence{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, which means a test created more
// records than it declared.
func (g *Sequence) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("ident.Sequence: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
