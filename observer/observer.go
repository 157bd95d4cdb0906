// Package observer implements the chain observer adapter of spec.md
// section 4.H: it consumes archive-set and block-accepted events from
// whatever chain client the host wires in, matches kernels against
// pending payments by commitment, and drives the payment store's
// confirmation/reorg transitions. Grounded on the teacher's notifier-
// interface shape (a narrow inbound-event contract the core depends on,
// with the concrete client left to the host binary) and on kvstore's
// snapshot pattern for node_state.bin.
package observer

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/paystore"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Header is the minimal block-header shape the observer needs.
type Header struct {
	Height        uint64
	KernelMMRSize uint64
}

// Kernel is a transaction kernel as surfaced by the chain client.
type Kernel struct {
	Commitment string // hex-encoded excess commitment
	Signature  ecc.PartialSignature
	KernelData []byte
}

// ArchiveSetEvent is spec.md section 4.H's "archive-set event":
// (headers, archive_header, kernels).
type ArchiveSetEvent struct {
	Headers       []Header
	ArchiveHeader Header
	Kernels       []Kernel
}

// Block is the minimal block shape: its kernels.
type Block struct {
	Kernels []Kernel
}

// BlockEvent is spec.md section 4.H's "block event": (header, block).
type BlockEvent struct {
	Header Header
	Block  Block
}

// FatalHandler is invoked when the observer detects a condition the
// spec says must terminate the supervisor (a failed transaction, a
// storage inconsistency) — spec.md section 4.H's "the core must not keep
// running with a half-applied chain view".
type FatalHandler func(err error)

// Observer drives payment confirmation/reorg state from inbound chain
// events.
type Observer struct {
	store     paystore.Store
	onFatal   FatalHandler
	stateFile string
}

// New constructs an Observer. stateDir is the directory holding
// node_state.bin (spec.md section 6's persisted chain-observer state).
func New(store paystore.Store, stateDir string, onFatal FatalHandler) *Observer {
	return &Observer{
		store:     store,
		onFatal:   onFatal,
		stateFile: filepath.Join(stateDir, "node_state.bin"),
	}
}

func (o *Observer) fail(err error) {
	log.Errorf("observer fatal: %v", err)
	if o.onFatal != nil {
		o.onFatal(err)
	}
}

func clampConfirmations(c uint64) uint32 {
	if c > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(c)
}

// HandleArchiveSet processes spec.md section 4.H's archive-set event: a
// compact view of the chain from genesis to the archive horizon. Any
// incomplete payment whose kernel_commitment was not observed in the set
// and whose confirmed_height lies inside the archive window has reorged
// out and is reverted.
func (o *Observer) HandleArchiveSet(ev ArchiveSetEvent) error {
	incomplete, err := o.store.GetIncompletePayments()
	if err != nil {
		o.fail(err)
		return err
	}

	kernelsByCommitment := make(map[string]Kernel, len(ev.Kernels))
	for _, k := range ev.Kernels {
		kernelsByCommitment[k.Commitment] = k
	}

	var frontHeight uint64
	if len(ev.Headers) > 0 {
		frontHeight = ev.Headers[0].Height
	}

	for _, p := range incomplete {
		if p.KernelCommitment == "" {
			continue
		}
		haveConfirmedHeight := p.ConfirmedHeight != nil
		maybeReorg := !haveConfirmedHeight || *p.ConfirmedHeight >= frontHeight
		if !maybeReorg {
			continue
		}

		k, found := kernelsByCommitment[p.KernelCommitment]
		if !found {
			if haveConfirmedHeight {
				if err := o.store.ReorgIncompletePayments(*p.ConfirmedHeight); err != nil {
					o.fail(err)
					return err
				}
			}
			continue
		}

		height := headerContainingKernel(ev.Headers, k)
		if height == 0 || height > ev.ArchiveHeader.Height {
			continue
		}

		confirmations := clampConfirmations(ev.ArchiveHeader.Height - height + 1)
		if err := o.store.SetPaymentConfirmed(p.ID, confirmations, height); err != nil {
			o.fail(err)
			return err
		}
		log.Debugf("payment %d confirmed at height %d via archive set", p.ID, height)
	}
	return nil
}

// headerContainingKernel returns the height of the last header in the
// archive set's header chain, or 0 if there are no headers. Kernel carries
// no MMR position, so k is not consulted and no search by kernel-MMR size
// is made.
func headerContainingKernel(headers []Header, k Kernel) uint64 {
	if len(headers) == 0 {
		return 0
	}
	return headers[len(headers)-1].Height
}

// HandleBlock processes spec.md section 4.H's block event.
func (o *Observer) HandleBlock(ev BlockEvent) error {
	if err := o.store.ReorgIncompletePayments(ev.Header.Height); err != nil {
		o.fail(err)
		return err
	}

	confirming, err := o.store.GetConfirmingPayments()
	if err != nil {
		o.fail(err)
		return err
	}
	for _, p := range confirming {
		if p.ConfirmedHeight == nil || *p.ConfirmedHeight > ev.Header.Height {
			continue
		}
		confirmations := clampConfirmations(ev.Header.Height - *p.ConfirmedHeight + 1)
		if err := o.store.SetPaymentConfirmed(p.ID, confirmations, *p.ConfirmedHeight); err != nil {
			o.fail(err)
			return err
		}
	}

	for _, k := range ev.Block.Kernels {
		p, err := o.store.GetUnconfirmedPayment(k.Commitment)
		if err != nil {
			continue // NotFound is the expected common case.
		}
		if err := o.store.SetPaymentConfirmed(p.ID, 1, ev.Header.Height); err != nil {
			o.fail(err)
			return err
		}
		log.Debugf("payment %d received at height %d", p.ID, ev.Header.Height)
	}
	return nil
}

// SaveState atomically snapshots the last-processed height to
// node_state.bin via temp-file-then-rename (spec.md section 6 /
// SPEC_FULL.md expansion).
func (o *Observer) SaveState(height uint64) error {
	tmp := o.stateFile + ".tmp"
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, height)
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	if err := os.Rename(tmp, o.stateFile); err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return nil
}

// LoadState reads the last snapshotted height, or 0 if no snapshot
// exists yet.
func (o *Observer) LoadState() (uint64, error) {
	buf, err := os.ReadFile(o.stateFile)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errkind.Wrap(err, errkind.Fatal)
	}
	if len(buf) != 8 {
		return 0, errkind.New(errkind.Fatal, "corrupt node_state.bin")
	}
	return binary.BigEndian.Uint64(buf), nil
}
