// Package price implements the price aggregator of spec.md section 4.M:
// a fixed-interval poll of several independent oracles, combined into one
// staleness-weighted average, published as the mean of a rolling window
// of rounds. Grounded on the teacher's chainview polling-loop shape
// (ticker-driven, one best-effort pass per period, errors logged and
// skipped rather than fatal) and on original_source/price_oracles/'s set
// of concrete sources, retained here as the Oracle interface's adapters
// package.
package price

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/ticker"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Oracle is one external price source. Fetch returns the quote's
// timestamp (unix seconds) and its decimal price string; a zero
// timestamp or an error means the source is skipped for this round.
type Oracle interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client) (timestamp int64, price string, err error)
}

// quote is one oracle's result for a round, already parsed to decimal.
type quote struct {
	timestamp int64
	value     decimal.Decimal
}

// Aggregator runs the poll-and-combine loop.
type Aggregator struct {
	oracles        []Oracle
	client         *http.Client
	clk            clock.Clock
	tick           ticker.Ticker
	updateInterval time.Duration
	averageLength  int
	mainnet        bool

	quit chan struct{}
	done chan struct{}

	mtx     chanMutex
	window  []decimal.Decimal
	current decimal.Decimal
	ready   bool
}

// chanMutex is a channel-based mutex, matching the teacher's preference
// for channel synchronization over sync.Mutex in hot polling loops.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) lock()   { <-m }
func (m chanMutex) unlock() { m <- struct{}{} }

// New constructs an Aggregator. updateInterval is the staleness
// threshold applied against the newest quote in a round; averageLength
// is the rolling-window size over published rounds; mainnet controls
// whether a zero-price round is rejected.
func New(oracles []Oracle, client *http.Client, clk clock.Clock, tick ticker.Ticker, updateInterval time.Duration, averageLength int, mainnet bool) *Aggregator {
	return &Aggregator{
		oracles:        oracles,
		client:         client,
		clk:            clk,
		tick:           tick,
		updateInterval: updateInterval,
		averageLength:  averageLength,
		mainnet:        mainnet,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		mtx:            newChanMutex(),
	}
}

// Start begins the polling loop as a background goroutine.
func (a *Aggregator) Start() {
	a.tick.Resume()
	go a.run()
}

// Stop signals the polling loop to exit and waits for it to finish.
func (a *Aggregator) Stop() {
	close(a.quit)
	<-a.done
	a.tick.Stop()
}

func (a *Aggregator) run() {
	defer close(a.done)
	for {
		select {
		case <-a.tick.Ticks():
			a.poll()
		case <-a.quit:
			return
		}
	}
}

// poll runs one round against every oracle and, if the round produces a
// usable weighted average, folds it into the rolling window.
func (a *Aggregator) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var quotes []quote
	for _, o := range a.oracles {
		ts, raw, err := o.Fetch(ctx, a.client)
		if err != nil {
			log.Debugf("oracle %s fetch failed: %v", o.Name(), err)
			continue
		}
		if ts == 0 {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			log.Debugf("oracle %s returned unparseable price %q: %v", o.Name(), raw, err)
			continue
		}
		quotes = append(quotes, quote{timestamp: ts, value: v})
	}

	avg, ok := weightedAverage(quotes, a.updateInterval)
	if !ok {
		log.Debugf("price round produced no usable quotes")
		return
	}
	if avg.IsNegative() {
		log.Warnf("price round rejected: negative average %s", avg)
		return
	}
	if avg.IsZero() && a.mainnet {
		log.Warnf("price round rejected: zero average on mainnet")
		return
	}

	a.publish(avg)
}

// weightedAverage implements spec.md section 4.M steps 2-3: drop quotes
// older than threshold = newest - updateInterval, then weight each
// surviving quote by ts - threshold seconds.
func weightedAverage(quotes []quote, updateInterval time.Duration) (decimal.Decimal, bool) {
	if len(quotes) == 0 {
		return decimal.Decimal{}, false
	}

	newest := quotes[0].timestamp
	for _, q := range quotes[1:] {
		if q.timestamp > newest {
			newest = q.timestamp
		}
	}
	threshold := newest - int64(updateInterval/time.Second)

	sum := decimal.Zero
	totalWeight := decimal.Zero
	for _, q := range quotes {
		if q.timestamp < threshold {
			continue
		}
		weight := decimal.NewFromInt(q.timestamp - threshold)
		sum = sum.Add(q.value.Mul(weight))
		totalWeight = totalWeight.Add(weight)
	}
	if !totalWeight.IsPositive() {
		return decimal.Decimal{}, false
	}
	return sum.DivRound(totalWeight, 18), true
}

// publish folds avg into the rolling window and recomputes the
// published price as the window's arithmetic mean (spec.md section
// 4.M step 4).
func (a *Aggregator) publish(avg decimal.Decimal) {
	a.mtx.lock()
	defer a.mtx.unlock()

	a.window = append(a.window, avg)
	if len(a.window) > a.averageLength {
		a.window = a.window[len(a.window)-a.averageLength:]
	}

	sum := decimal.Zero
	for _, v := range a.window {
		sum = sum.Add(v)
	}
	a.current = sum.DivRound(decimal.NewFromInt(int64(len(a.window))), 18)
	a.ready = true
}

// CurrentPrice implements controlapi.PriceSource: it returns the
// published rolling average, and a second result (disabled) that is true
// until a round has completed. An
// Aggregator that has never completed a round behaves as disabled, same
// as the caller never constructing one at all.
func (a *Aggregator) CurrentPrice() (string, bool) {
	a.mtx.lock()
	defer a.mtx.unlock()

	if !a.ready {
		return "", true
	}
	return a.current.String(), false
}
