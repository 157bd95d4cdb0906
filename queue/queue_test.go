package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConcurrentQueuePreservesFIFOOrder(t *testing.T) {
	cq := NewConcurrentQueue(1)
	cq.Start()
	defer cq.Stop()

	const n = 50
	for i := 0; i < n; i++ {
		cq.ChanIn() <- i
	}

	for i := 0; i < n; i++ {
		select {
		case got := <-cq.ChanOut():
			require.Equal(t, i, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for item %d", i)
		}
	}
}

func TestConcurrentQueueStopAfterDrain(t *testing.T) {
	cq := NewConcurrentQueue(4)
	cq.Start()
	cq.ChanIn() <- "hello"
	require.Equal(t, "hello", <-cq.ChanOut())
	cq.Stop()
}
