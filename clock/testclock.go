package clock

import (
	"sync"
	"time"
)

// TestClock is a Clock implementation that lets a test control the passage
// of time deterministically.
type TestClock struct {
	mtx        sync.Mutex
	currentTime time.Time
	waiters     []clockWaiter
}

type clockWaiter struct {
	expiry time.Time
	ch     chan time.Time
}

// NewTestClock creates a TestClock set to startTime.
func NewTestClock(startTime time.Time) *TestClock {
	return &TestClock{currentTime: startTime}
}

// Now returns the clock's current, test-controlled time.
func (c *TestClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.currentTime
}

// TickAfter returns a channel that fires once SetTime advances the clock
// past the requested duration.
func (c *TestClock) TickAfter(duration time.Duration) <-chan time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	ch := make(chan time.Time, 1)
	expiry := c.currentTime.Add(duration)
	if !expiry.After(c.currentTime) {
		ch <- c.currentTime
		return ch
	}

	c.waiters = append(c.waiters, clockWaiter{expiry: expiry, ch: ch})
	return ch
}

// SetTime advances the clock to newTime, firing any TickAfter channel whose
// deadline has passed.
func (c *TestClock) SetTime(newTime time.Time) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.currentTime = newTime

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.expiry.After(newTime) {
			w.ch <- newTime
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}

var _ Clock = (*TestClock)(nil)
