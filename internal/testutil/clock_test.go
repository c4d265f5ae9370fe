package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestClock_Steps(t *testing.T) {
	clock := NewClock(epoch, time.Second)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
}

func TestClock_ZeroStepIsFrozen(t *testing.T) {
	clock := NewClock(epoch, 0)

	for range 3 {
		assert.Equal(t, epoch, clock.Now())
	}
}

func TestClock_Reset(t *testing.T) {
	clock := NewClock(epoch, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, epoch, clock.Now())
}

func TestClock_NormalizesToUTC(t *testing.T) {
	local := time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	clock := NewClock(local, 0)

	got := clock.Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(epoch))
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(epoch, time.Millisecond)
	const goroutines = 50
	const calls = 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[time.Time]bool)
	)
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range calls {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls)
	assert.True(t, seen[epoch])
	assert.True(t, seen[epoch.Add((goroutines*calls-1)*time.Millisecond)])
}
