package expiry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/paystore"
)

// fakeTicker is a ticker.Ticker whose ticks are sent manually by the test
// instead of on a real 1-second timer.
type fakeTicker struct {
	ch chan time.Time
}

func newFakeTicker() *fakeTicker       { return &fakeTicker{ch: make(chan time.Time, 1)} }
func (f *fakeTicker) Ticks() <-chan time.Time { return f.ch }
func (f *fakeTicker) Resume()                 {}
func (f *fakeTicker) Pause()                  {}
func (f *fakeTicker) Stop()                   {}
func (f *fakeTicker) fire()                   { f.ch <- time.Now() }

func testStore(t *testing.T) *paystore.BoltPaymentStore {
	t.Helper()
	s, err := paystore.Open(t.TempDir(), "paystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

func TestMonitorFiresExpiredCallbackOnTick(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := testStore(t)
	past := time.Now().Add(-time.Minute).Unix()
	p := &paystore.Payment{ID: 1, URL: "slug", Expires: &past, ExpiredCallback: str(srv.URL)}
	require.NoError(t, store.CreatePayment(p))

	driver := callback.New(store, srv.Client(), clock.NewDefaultClock(), time.Hour)
	tick := newFakeTicker()
	m := New(driver, tick)
	m.Start()
	defer m.Stop()

	tick.fire()
	require.Eventually(t, func() bool {
		got, err := store.GetPaymentInfo(1)
		return err == nil && got.ExpiredCallbackSuccessful
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, hits)
}

func TestMonitorIgnoresUnexpiredPayments(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := testStore(t)
	future := time.Now().Add(time.Hour).Unix()
	p := &paystore.Payment{ID: 1, URL: "slug", Expires: &future, ExpiredCallback: str(srv.URL)}
	require.NoError(t, store.CreatePayment(p))

	driver := callback.New(store, srv.Client(), clock.NewDefaultClock(), time.Hour)
	tick := newFakeTicker()
	m := New(driver, tick)
	m.Start()
	defer m.Stop()

	tick.fire()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, hits)
}
