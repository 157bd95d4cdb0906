package observer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/paystore"
)

func newTestStore(t *testing.T) paystore.Store {
	t.Helper()
	store, err := paystore.Open(t.TempDir(), "paystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateReceivedPayment(t *testing.T, store paystore.Store, id uint64, commitment string) {
	t.Helper()
	require.NoError(t, store.CreatePayment(&paystore.Payment{
		ID:                    id,
		URL:                   "slug-" + commitment,
		RequiredConfirmations: 3,
	}))
	require.NoError(t, store.SetPaymentReceived(id, paystore.ReceivedParams{
		Price:             1000,
		KernelCommitment:  commitment,
	}))
}

func TestHandleBlockConfirmsMatchingKernel(t *testing.T) {
	store := newTestStore(t)
	mustCreateReceivedPayment(t, store, 1, "aabbcc")

	obs := New(store, t.TempDir(), nil)
	err := obs.HandleBlock(BlockEvent{
		Header: Header{Height: 100},
		Block:  Block{Kernels: []Kernel{{Commitment: "aabbcc"}}},
	})
	require.NoError(t, err)

	p, err := store.GetPaymentInfo(1)
	require.NoError(t, err)
	require.NotNil(t, p.ConfirmedHeight)
	require.EqualValues(t, 100, *p.ConfirmedHeight)
	require.EqualValues(t, 1, p.Confirmations)
}

func TestHandleBlockIgnoresUnmatchedKernel(t *testing.T) {
	store := newTestStore(t)
	mustCreateReceivedPayment(t, store, 1, "aabbcc")

	obs := New(store, t.TempDir(), nil)
	err := obs.HandleBlock(BlockEvent{
		Header: Header{Height: 100},
		Block:  Block{Kernels: []Kernel{{Commitment: "ffffff"}}},
	})
	require.NoError(t, err)

	p, err := store.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Nil(t, p.ConfirmedHeight)
}

func TestHandleBlockAdvancesConfirmationsForConfirmingPayment(t *testing.T) {
	store := newTestStore(t)
	mustCreateReceivedPayment(t, store, 1, "aabbcc")

	obs := New(store, t.TempDir(), nil)
	require.NoError(t, obs.HandleBlock(BlockEvent{
		Header: Header{Height: 100},
		Block:  Block{Kernels: []Kernel{{Commitment: "aabbcc"}}},
	}))

	require.NoError(t, obs.HandleBlock(BlockEvent{
		Header: Header{Height: 101},
		Block:  Block{},
	}))

	p, err := store.GetPaymentInfo(1)
	require.NoError(t, err)
	require.EqualValues(t, 2, p.Confirmations)
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	obs := New(newTestStore(t), dir, nil)

	require.NoError(t, obs.SaveState(12345))

	height, err := obs.LoadState()
	require.NoError(t, err)
	require.EqualValues(t, 12345, height)
}

func TestLoadStateWithNoSnapshotReturnsZero(t *testing.T) {
	obs := New(newTestStore(t), t.TempDir(), nil)

	height, err := obs.LoadState()
	require.NoError(t, err)
	require.EqualValues(t, 0, height)
}

func TestFailInvokesOnFatal(t *testing.T) {
	errTest := errors.New("boom")
	var gotErr error
	obs := New(newTestStore(t), t.TempDir(), func(err error) { gotErr = err })

	obs.fail(errTest)
	require.ErrorIs(t, gotErr, errTest)
}
