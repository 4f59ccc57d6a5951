// Package testutil provides deterministic time and id sources for tests
// and scenario runs.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock. Each call to Now returns the
// current instant and then advances it by the step, so successive events
// get distinct, increasing timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	t     time.Time
	step  time.Duration
}

// NewClock creates a clock starting at start. A zero step freezes time.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, t: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

// Peek returns the current instant without advancing.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set moves the clock to t. Scenario steps use it to replay recorded
// times; moving backwards is allowed.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Reset returns the clock to its start instant.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.start
}
