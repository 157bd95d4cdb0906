// Package chainclient defines the inbound-event boundary between
// whatever peer-to-peer chain node the host binary is wired against and
// the observer (spec.md section 4.H). Implementing a real P2P client is
// out of scope (spec.md section 1's non-goals), but the interface and
// its dispatch plumbing are carried with the same rigor as any other
// subsystem: logged, error-wrapped, and exercised by a fake client in
// tests. Grounded on the teacher's chainntnfs notifier interface (a
// narrow inbound-event contract with the concrete backend left to the
// caller) and on queue.ConcurrentQueue for serializing the two
// independent notification streams (archive-set, block-accepted) a real
// node delivers concurrently into the one goroutine that is allowed to
// call into the observer.
package chainclient

import (
	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/observer"
	"github.com/mwc-pay/mwcpayd/queue"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Client is the inbound boundary a concrete chain node implementation
// must satisfy. ArchiveSets and BlockEvents may be written to
// concurrently by the client's own internal goroutines; Dispatcher
// serializes them before they reach the observer.
type Client interface {
	ArchiveSets() <-chan observer.ArchiveSetEvent
	BlockEvents() <-chan observer.BlockEvent

	// Start connects and begins delivering events; Stop tears the
	// connection down and closes both channels.
	Start() error
	Stop()
}

// Dispatcher funnels a Client's two event streams through a single
// ConcurrentQueue so the observer only ever sees one call at a time,
// regardless of how the underlying node delivers notifications.
type Dispatcher struct {
	client   Client
	observer *observer.Observer
	q        *queue.ConcurrentQueue
	quit     chan struct{}
	done     chan struct{}
}

// NewDispatcher constructs a Dispatcher over client and obs.
func NewDispatcher(client Client, obs *observer.Observer) *Dispatcher {
	return &Dispatcher{
		client:   client,
		observer: obs,
		q:        queue.NewConcurrentQueue(16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start connects the client, begins forwarding both event streams into
// the queue, and begins draining the queue into the observer.
func (d *Dispatcher) Start() error {
	if err := d.client.Start(); err != nil {
		return err
	}
	d.q.Start()
	go d.forwardArchiveSets()
	go d.forwardBlockEvents()
	go d.drain()
	return nil
}

// Stop tears down the client and stops the queue and drain loop.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.client.Stop()
	d.q.Stop()
	<-d.done
}

func (d *Dispatcher) forwardArchiveSets() {
	for {
		select {
		case ev, ok := <-d.client.ArchiveSets():
			if !ok {
				return
			}
			d.q.ChanIn() <- ev
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) forwardBlockEvents() {
	for {
		select {
		case ev, ok := <-d.client.BlockEvents():
			if !ok {
				return
			}
			d.q.ChanIn() <- ev
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for {
		select {
		case item := <-d.q.ChanOut():
			d.dispatch(item)
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) dispatch(item interface{}) {
	switch ev := item.(type) {
	case observer.ArchiveSetEvent:
		if err := d.observer.HandleArchiveSet(ev); err != nil {
			log.Errorf("handling archive-set event: %v", err)
		}
	case observer.BlockEvent:
		if err := d.observer.HandleBlock(ev); err != nil {
			log.Errorf("handling block event: %v", err)
		}
	default:
		log.Warnf("dispatcher received unknown event type %T", item)
	}
}
