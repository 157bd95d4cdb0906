// Package clock exposes the current time behind an interface so that
// paystore, expiry, and callback can be driven by a fake clock in tests
// instead of sleeping on wall time. Adapted from the lightningnetwork/lnd
// clock package shape.
package clock

import "time"

// Clock is the interface implementations of time must satisfy for use
// within mwcpayd.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// TickAfter returns a channel that fires after the given duration
	// elapses.
	TickAfter(duration time.Duration) <-chan time.Time
}

// DefaultClock is a Clock implementation backed by the real wall clock.
type DefaultClock struct{}

// NewDefaultClock creates a DefaultClock.
func NewDefaultClock() *DefaultClock {
	return &DefaultClock{}
}

// Now returns the current real time.
func (DefaultClock) Now() time.Time {
	return time.Now()
}

// TickAfter returns a channel that receives the current time once the
// given duration has elapsed.
func (DefaultClock) TickAfter(duration time.Duration) <-chan time.Time {
	return time.After(duration)
}

var _ Clock = (*DefaultClock)(nil)
