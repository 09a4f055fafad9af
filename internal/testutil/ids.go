package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable identifiers for tests.
//
// Identifiers have the form "<prefix>-<n>" with n starting at 1, which
// keeps golden files byte-identical across runs. Implements
// model.IDGenerator.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
// If prefix is empty, "id" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next identifier.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
