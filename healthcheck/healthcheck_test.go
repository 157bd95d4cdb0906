package healthcheck

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitorDoesNotFailOnPassingCheck(t *testing.T) {
	var failed int32
	m := NewMonitor([]*Observation{
		{
			Name:     "always-ok",
			Check:    func() error { return nil },
			Interval: 5 * time.Millisecond,
			Timeout:  20 * time.Millisecond,
			Backoff:  time.Millisecond,
			Attempts: 2,
		},
	}, func(string) { atomic.AddInt32(&failed, 1) })

	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	require.EqualValues(t, 0, atomic.LoadInt32(&failed))
}

func TestMonitorSignalsAfterExhaustingAttempts(t *testing.T) {
	done := make(chan string, 1)
	m := NewMonitor([]*Observation{
		{
			Name:     "always-fails",
			Check:    func() error { return errors.New("down") },
			Interval: 5 * time.Millisecond,
			Timeout:  10 * time.Millisecond,
			Backoff:  time.Millisecond,
			Attempts: 2,
		},
	}, func(name string) { done <- name })

	m.Start()
	defer m.Stop()

	select {
	case name := <-done:
		require.Equal(t, "always-fails", name)
	case <-time.After(time.Second):
		t.Fatal("expected onFailure to be invoked")
	}
}
