// Package ticker provides a pausable/resumable periodic ticker, used by the
// expiry monitor (spec.md section 4.L) so tests can force a tick instead of
// waiting on the real 1-second period. Adapted from the
// lightningnetwork/lnd ticker package shape.
package ticker

import "time"

// Ticker is a periodic timer that can be force-fired, paused, and resumed.
type Ticker interface {
	// Ticks returns the channel on which ticks are delivered.
	Ticks() <-chan time.Time

	// Resume starts the periodic delivery of ticks.
	Resume()

	// Pause suspends delivery of ticks until Resume is called again.
	Pause()

	// Stop releases the underlying timer permanently.
	Stop()
}

// wallClockTicker is a Ticker implementation backed by time.Ticker.
type wallClockTicker struct {
	interval time.Duration
	ticker   *time.Ticker
	ticks    chan time.Time
	quit     chan struct{}
}

// New creates a wall-clock-backed Ticker with the given period, started
// paused. Call Resume to begin delivering ticks.
func New(interval time.Duration) Ticker {
	t := &wallClockTicker{
		interval: interval,
		ticks:    make(chan time.Time, 1),
		quit:     make(chan struct{}),
	}
	return t
}

// Ticks returns the channel ticks are delivered on.
func (t *wallClockTicker) Ticks() <-chan time.Time {
	return t.ticks
}

// Resume starts (or restarts) periodic delivery.
func (t *wallClockTicker) Resume() {
	if t.ticker != nil {
		return
	}
	t.ticker = time.NewTicker(t.interval)
	go func() {
		for {
			select {
			case tickTime, ok := <-t.ticker.C:
				if !ok {
					return
				}
				select {
				case t.ticks <- tickTime:
				default:
				}
			case <-t.quit:
				return
			}
		}
	}()
}

// Pause stops delivery until Resume is called again.
func (t *wallClockTicker) Pause() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
}

// Stop permanently releases the ticker's resources.
func (t *wallClockTicker) Stop() {
	t.Pause()
	close(t.quit)
}

var _ Ticker = (*wallClockTicker)(nil)
