// Package expiry implements the expiry monitor of spec.md section 4.L: a
// single 1-second-period task that drives the callback driver's expired
// delivery. Grounded on ticker.Ticker (the same pausable-ticker shape
// queue.ConcurrentQueue's teacher package uses for its own periodic
// workers) so tests can force a tick instead of sleeping a full second.
package expiry

import (
	"time"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/ticker"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Period is the fixed poll interval spec.md section 4.L names.
const Period = time.Second

// Monitor ticks Period and, on every tick, asks the callback driver to
// attempt delivery of any newly-due expired callback.
type Monitor struct {
	driver *callback.Driver
	tick   ticker.Ticker
	quit   chan struct{}
	done   chan struct{}
}

// New constructs a Monitor. Pass a ticker.Ticker so tests can substitute
// a force-fired one instead of waiting on the real clock.
func New(driver *callback.Driver, tick ticker.Ticker) *Monitor {
	return &Monitor{
		driver: driver,
		tick:   tick,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the polling loop as a background goroutine.
func (m *Monitor) Start() {
	m.tick.Resume()
	go m.run()
}

// Stop signals the polling loop to exit and waits for it to finish.
func (m *Monitor) Stop() {
	close(m.quit)
	<-m.done
	m.tick.Stop()
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		select {
		case <-m.tick.Ticks():
			m.driver.AttemptExpired()
		case <-m.quit:
			log.Debugf("expiry monitor stopping")
			return
		}
	}
}
