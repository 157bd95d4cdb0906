package price

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/clock"
)

type fakeOracle struct {
	name string
	ts   int64
	val  string
	err  error
}

func (f fakeOracle) Name() string { return f.name }
func (f fakeOracle) Fetch(ctx context.Context, client *http.Client) (int64, string, error) {
	if f.err != nil {
		return 0, "", f.err
	}
	return f.ts, f.val, nil
}

type fakeTicker struct{ ch chan time.Time }

func newFakeTicker() *fakeTicker            { return &fakeTicker{ch: make(chan time.Time, 1)} }
func (f *fakeTicker) Ticks() <-chan time.Time { return f.ch }
func (f *fakeTicker) Resume()                 {}
func (f *fakeTicker) Pause()                  {}
func (f *fakeTicker) Stop()                   {}
func (f *fakeTicker) fire()                   { f.ch <- time.Now() }

func TestWeightedAverageBasic(t *testing.T) {
	now := time.Now().Unix()
	quotes := []quote{
		{timestamp: now, value: decimal.NewFromInt(100)},
		{timestamp: now - 30, value: decimal.NewFromInt(110)},
	}
	avg, ok := weightedAverage(quotes, 60*time.Second)
	require.True(t, ok)
	// threshold = now - 60; weights are 60 and 30, newer quote weighted
	// twice as heavily as the older one.
	require.True(t, avg.GreaterThan(decimal.NewFromInt(100)))
	require.True(t, avg.LessThan(decimal.NewFromInt(110)))
}

func TestWeightedAverageDropsStaleQuotes(t *testing.T) {
	now := time.Now().Unix()
	quotes := []quote{
		{timestamp: now, value: decimal.NewFromInt(100)},
		{timestamp: now - 1000, value: decimal.NewFromInt(9999)},
	}
	avg, ok := weightedAverage(quotes, 60*time.Second)
	require.True(t, ok)
	require.True(t, avg.Equal(decimal.NewFromInt(100)))
}

func TestWeightedAverageNoQuotesFails(t *testing.T) {
	_, ok := weightedAverage(nil, time.Minute)
	require.False(t, ok)
}

func TestAggregatorPublishesRollingAverage(t *testing.T) {
	tick := newFakeTicker()
	oracle := fakeOracle{name: "fixed", ts: time.Now().Unix(), val: "100"}
	agg := New([]Oracle{oracle}, http.DefaultClient, clock.NewDefaultClock(), tick, time.Minute, 2, true)

	_, disabled := agg.CurrentPrice()
	require.True(t, disabled, "no round has completed yet, so it reads as unavailable")

	agg.Start()
	defer agg.Stop()

	tick.fire()
	require.Eventually(t, func() bool {
		_, disabled := agg.CurrentPrice()
		return !disabled
	}, time.Second, 5*time.Millisecond)

	price, disabled := agg.CurrentPrice()
	require.False(t, disabled)
	require.Equal(t, "100", price)
}

func TestAggregatorRejectsZeroOnMainnet(t *testing.T) {
	tick := newFakeTicker()
	oracle := fakeOracle{name: "zero", ts: time.Now().Unix(), val: "0"}
	agg := New([]Oracle{oracle}, http.DefaultClient, clock.NewDefaultClock(), tick, time.Minute, 2, true)

	agg.Start()
	defer agg.Stop()

	tick.fire()
	time.Sleep(50 * time.Millisecond)

	_, disabled := agg.CurrentPrice()
	require.True(t, disabled, "zero-price round must be rejected on mainnet")
}

func TestAggregatorAllowsZeroOnTestnet(t *testing.T) {
	tick := newFakeTicker()
	oracle := fakeOracle{name: "zero", ts: time.Now().Unix(), val: "0"}
	agg := New([]Oracle{oracle}, http.DefaultClient, clock.NewDefaultClock(), tick, time.Minute, 2, false)

	agg.Start()
	defer agg.Stop()

	tick.fire()
	require.Eventually(t, func() bool {
		_, disabled := agg.CurrentPrice()
		return !disabled
	}, time.Second, 5*time.Millisecond)

	price, _ := agg.CurrentPrice()
	require.Equal(t, "0", price)
}

func TestAggregatorSkipsFailingOracle(t *testing.T) {
	tick := newFakeTicker()
	oracles := []Oracle{
		fakeOracle{name: "broken", err: require.AnError},
		fakeOracle{name: "good", ts: time.Now().Unix(), val: "50"},
	}
	agg := New(oracles, http.DefaultClient, clock.NewDefaultClock(), tick, time.Minute, 1, true)

	agg.Start()
	defer agg.Stop()

	tick.fire()
	require.Eventually(t, func() bool {
		_, disabled := agg.CurrentPrice()
		return !disabled
	}, time.Second, 5*time.Millisecond)

	price, _ := agg.CurrentPrice()
	require.Equal(t, "50", price)
}
