package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryIDs_Sequence(t *testing.T) {
	ids := NewQueryIDs("run")

	assert.Equal(t, "run-1", ids.Next())
	assert.Equal(t, "run-2", ids.Next())
	assert.Equal(t, 2, ids.Issued())
}

func TestQueryIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "qid-1", NewQueryIDs("").Next())
}

func TestQueryIDs_Deterministic(t *testing.T) {
	a, b := NewQueryIDs(""), NewQueryIDs("")
	for range 20 {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestQueryIDs_ThreadSafe(t *testing.T) {
	ids := NewQueryIDs("")
	const goroutines = 20
	const calls = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range calls {
				id := ids.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls)
	assert.Equal(t, goroutines*calls, ids.Issued())
}
