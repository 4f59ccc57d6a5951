package testutil

import (
	"fmt"
	"sync"
)

// FixedRequestIDs generates predictable ids: prefix-0001, prefix-0002, ...
//
// The same scenario run with a fresh FixedRequestIDs produces byte-identical
// record ids, which keeps golden snapshots stable.
//
// Implements ident.Generator. Safe for concurrent use.
type FixedRequestIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedRequestIDs creates a generator. An empty prefix uses "req".
func NewFixedRequestIDs(prefix string) *FixedRequestIDs {
	if prefix == "" {
		prefix = "req"
	}
	return &FixedRequestIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedRequestIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *FixedRequestIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
