package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock. Each call to Now returns the
// previous instant plus the step, starting at start.
//
// All methods are safe for concurrent use.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewClock creates a clock whose first Now returns start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start.UTC(), step: step}
}

// Now returns the next instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Reset rewinds the clock so the next Now returns start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
