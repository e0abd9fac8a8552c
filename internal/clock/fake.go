package clock

import "time"

// FakeClock is a Clock pinned to a fixed instant, for deterministic tests.
// Not safe for concurrent use.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set pins the clock to a new instant.
func (c *FakeClock) Set(t time.Time) {
	c.now = t.UTC()
}
