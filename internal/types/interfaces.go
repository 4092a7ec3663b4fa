package types

import "time"

// Clock abstracts time for testability. The scheduler and the billing tasks
// take a Clock so tests can simulate time passage deterministically instead
// of sleeping in real time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock implements Clock with a settable instant. Intended for tests.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (c *FixedClock) Now() time.Time { return c.Instant }

// Advance moves the fixed instant forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }
