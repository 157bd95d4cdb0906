package paystore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltPaymentStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, "paystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

func TestCreateAndGetPayment(t *testing.T) {
	s := newTestStore(t)

	p := &Payment{
		ID:                    1,
		URL:                   "slug1",
		Created:               time.Now().Unix(),
		RequiredConfirmations: 10,
	}
	require.NoError(t, s.CreatePayment(p))
	require.Equal(t, uint64(1), p.UniqueNumber)

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, p.URL, got.URL)
	require.Equal(t, StatusNotReceived, got.ComputeStatus(time.Now()))
}

func TestCreatePaymentRejectsDuplicateURL(t *testing.T) {
	s := newTestStore(t)

	p1 := &Payment{ID: 1, URL: "dup"}
	require.NoError(t, s.CreatePayment(p1))

	p2 := &Payment{ID: 2, URL: "dup"}
	err := s.CreatePayment(p2)
	require.Error(t, err)
}

func TestCreatePaymentRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)

	p1 := &Payment{ID: 1, URL: "a"}
	require.NoError(t, s.CreatePayment(p1))

	p2 := &Payment{ID: 1, URL: "b"}
	err := s.CreatePayment(p2)
	require.Error(t, err)
}

func TestIdentifierPathIsMonotonic(t *testing.T) {
	s := newTestStore(t)

	p1 := &Payment{ID: 1, URL: "a"}
	p2 := &Payment{ID: 2, URL: "b"}
	require.NoError(t, s.CreatePayment(p1))
	require.NoError(t, s.CreatePayment(p2))
	require.Less(t, p1.UniqueNumber, p2.UniqueNumber)
}

func TestPaymentLifecycleTransitions(t *testing.T) {
	s := newTestStore(t)

	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 10}
	require.NoError(t, s.CreatePayment(p))

	received := ReceivedParams{
		Price:                     100,
		SenderPaymentProofAddress: "tor_address",
		KernelCommitment:          "kernel_abc",
		SenderPublicBlindExcess:   "pub_abc",
		RecipientPartialSignature: "sig_abc",
		PublicNonceSum:            "nonce_abc",
		KernelData:                []byte{0x00},
	}
	require.NoError(t, s.SetPaymentReceived(1, received))
	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, got.ComputeStatus(time.Now()))
	require.NotNil(t, got.Received)

	// Receiving again must fail: received columns are write-once.
	require.Error(t, s.SetPaymentReceived(1, received))

	require.NoError(t, s.SetPaymentConfirmed(1, 3, 103))
	got, err = s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.ComputeStatus(time.Now()))
	require.Nil(t, got.Completed)

	require.NoError(t, s.SetPaymentConfirmed(1, 10, 110))
	got, err = s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.ComputeStatus(time.Now()))
	require.NotNil(t, got.Completed)

	// Completed payments reject further confirmation updates.
	require.Error(t, s.SetPaymentConfirmed(1, 11, 111))
}

func TestExpirePending(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	expires := now.Add(-time.Minute).Unix()
	p := &Payment{ID: 1, URL: "slug", Expires: &expires, ExpiredCallback: str("https://example.com/expired")}
	require.NoError(t, s.CreatePayment(p))

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, got.ComputeStatus(now))

	expirable, err := s.GetExpirablePayments(now)
	require.NoError(t, err)
	require.Len(t, expirable, 1)
	require.Equal(t, uint64(1), expirable[0].ID)

	require.NoError(t, s.MarkExpiredCallbackSuccessful(1))
	expirable, err = s.GetExpirablePayments(now)
	require.NoError(t, err)
	require.Empty(t, expirable)
}

func TestGetUnconfirmedPaymentByKernelCommitment(t *testing.T) {
	s := newTestStore(t)
	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 10}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_xyz",
		SenderPublicBlindExcess: "p", RecipientPartialSignature: "s", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))

	got, err := s.GetUnconfirmedPayment("kernel_xyz")
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.ID)
}

func TestReorgRevertsConfirmations(t *testing.T) {
	s := newTestStore(t)
	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 50}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_r",
		SenderPublicBlindExcess: "p", RecipientPartialSignature: "s", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))
	require.NoError(t, s.SetPaymentConfirmed(1, 3, 200))

	require.NoError(t, s.ReorgIncompletePayments(150))

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), got.Confirmations)
	require.Nil(t, got.ConfirmedHeight)
	// Received columns stay put: only confirmation state reorgs.
	require.Equal(t, "kernel_r", got.KernelCommitment)
}

func TestGetConfirmingPayments(t *testing.T) {
	s := newTestStore(t)
	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 50}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_c",
		SenderPublicBlindExcess: "p", RecipientPartialSignature: "s", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))
	require.NoError(t, s.SetPaymentConfirmed(1, 3, 53))

	confirming, err := s.GetConfirmingPayments()
	require.NoError(t, err)
	require.Len(t, confirming, 1)
	require.Equal(t, uint64(1), confirming[0].ID)
}

func TestGetPendingCompletedCallbacks(t *testing.T) {
	s := newTestStore(t)
	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 1, CompletedCallback: str("https://example.com/completed")}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_p",
		SenderPublicBlindExcess: "p", RecipientPartialSignature: "s", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))
	require.NoError(t, s.SetPaymentConfirmed(1, 1, 10))

	pending, err := s.GetPendingCompletedCallbacks()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkCompletedCallbackSuccessful(1))
	pending, err = s.GetPendingCompletedCallbacks()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestCallbackAcknowledgementFlags(t *testing.T) {
	s := newTestStore(t)
	p := &Payment{ID: 1, URL: "slug", RequiredConfirmations: 1}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_a",
		SenderPublicBlindExcess: "p", RecipientPartialSignature: "s", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))
	require.NoError(t, s.SetPaymentConfirmed(1, 1, 10))

	require.NoError(t, s.MarkCompletedCallbackSuccessful(1))
	require.NoError(t, s.MarkConfirmedCallbackAcknowledged(1))

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.True(t, got.CompletedCallbackSuccessful)
	require.True(t, got.ConfirmedCallbackAcknowledged)
}
