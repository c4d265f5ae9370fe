package testutil

import (
	"fmt"
	"sync"
)

// QueryIDs hands out "<prefix>-1", "<prefix>-2", ... in call order. Pass
// Next to broker.WithQueryIDs to get predictable queryId context values.
type QueryIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewQueryIDs creates a generator. An empty prefix means "qid".
func NewQueryIDs(prefix string) *QueryIDs {
	if prefix == "" {
		prefix = "qid"
	}
	return &QueryIDs{prefix: prefix}
}

// Next returns the next id.
func (g *QueryIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Issued returns how many ids Next has returned.
func (g *QueryIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
