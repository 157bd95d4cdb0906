package callback

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/paystore"
)

func str(s string) *string { return &s }

func newTestStore(t *testing.T) *paystore.BoltPaymentStore {
	t.Helper()
	s, err := paystore.Open(t.TempDir(), "paystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubstitutePlaceholders(t *testing.T) {
	got := substitute(
		"https://merchant.example/hook?id=__id__&price=__price__&addr=__sender_payment_proof_address__&k=__kernel_commitment__&sig=__recipient_payment_proof_signature__",
		"42", "1000", "tor_addr", "kernel_abc", "sig_xyz",
	)
	require.Equal(t, "https://merchant.example/hook?id=42&price=1000&addr=tor_addr&k=kernel_abc&sig=sig_xyz", got)
}

func TestFireReceivedSucceedsOn2xx(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(nil, srv.Client(), clock.NewDefaultClock(), time.Second)
	err := d.FireReceived(srv.URL+"/hook?id=__id__", ReceivedNotice{ID: 7})
	require.NoError(t, err)
	require.Contains(t, gotURL, "id=7")
}

func TestFireReceivedFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(nil, srv.Client(), clock.NewDefaultClock(), time.Second)
	err := d.FireReceived(srv.URL, ReceivedNotice{ID: 7})
	require.Error(t, err)
}

func TestAttemptCompletedMarksSuccessfulOn2xx(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStore(t)
	p := &paystore.Payment{ID: 1, URL: "slug", RequiredConfirmations: 1, CompletedCallback: str(srv.URL)}
	require.NoError(t, s.CreatePayment(p))
	require.NoError(t, s.SetPaymentReceived(1, paystore.ReceivedParams{
		Price: 10, SenderPaymentProofAddress: "addr", KernelCommitment: "kernel_x",
		SenderPublicBlindExcess: "pb", RecipientPartialSignature: "sig", PublicNonceSum: "n",
		KernelData: []byte{0x00},
	}))
	require.NoError(t, s.SetPaymentConfirmed(1, 1, 10))

	d := New(s, srv.Client(), clock.NewDefaultClock(), time.Hour)
	d.attemptCompleted()
	require.Equal(t, 1, hits)

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.True(t, got.CompletedCallbackSuccessful)

	d.attemptCompleted()
	require.Equal(t, 1, hits, "already-acknowledged rows should not be retried")
}

func TestAttemptExpiredMarksSuccessfulOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStore(t)
	past := time.Now().Add(-time.Minute).Unix()
	p := &paystore.Payment{ID: 1, URL: "slug", Expires: &past, ExpiredCallback: str(srv.URL)}
	require.NoError(t, s.CreatePayment(p))

	d := New(s, srv.Client(), clock.NewDefaultClock(), time.Hour)
	d.AttemptExpired()

	got, err := s.GetPaymentInfo(1)
	require.NoError(t, err)
	require.True(t, got.ExpiredCallbackSuccessful)
}
