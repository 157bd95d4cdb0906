package ticker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickerDeliversAfterResume(t *testing.T) {
	tick := New(10 * time.Millisecond)
	tick.Resume()
	defer tick.Stop()

	select {
	case <-tick.Ticks():
	case <-time.After(time.Second):
		t.Fatal("expected a tick within one second")
	}
}

func TestTickerPauseStopsDelivery(t *testing.T) {
	tick := New(5 * time.Millisecond)
	tick.Resume()
	tick.Pause()

	select {
	case <-tick.Ticks():
		t.Fatal("did not expect a tick once paused")
	case <-time.After(50 * time.Millisecond):
	}
	tick.Stop()
}
