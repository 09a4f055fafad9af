package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time for StepClock: 2024-03-01T09:00:00Z.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current time and then advances it by step,
// so consecutive timestamps are distinct and ordered. Implements model.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at start that advances by step on
// every Now call. A zero start uses Epoch.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{now: start.UTC(), step: step}
}

// NewFrozenClock returns a clock that always reports t.
func NewFrozenClock(t time.Time) *StepClock {
	return NewStepClock(t, 0)
}

// Now returns the current time and advances the clock by its step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the time the next Now call will report, without advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
