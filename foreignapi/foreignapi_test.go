package foreignapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/bitcodec"
	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/paystore"
	"github.com/mwc-pay/mwcpayd/slate"
	"github.com/mwc-pay/mwcpayd/slatepack"
	"github.com/mwc-pay/mwcpayd/wallet"
)

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	seed, err := wallet.GenerateSeed()
	require.NoError(t, err)
	root, err := ecc.RootExtendedKey(seed)
	require.NoError(t, err)
	return wallet.Open(root)
}

func testStore(t *testing.T) *paystore.BoltPaymentStore {
	t.Helper()
	s, err := paystore.Open(t.TempDir(), "paystore.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// buildSendInitial assembles a minimal valid send-initial slate whose
// payment-proof sender address equals recipientTorPub, invoking the
// "sender sets the recipient's proof key by convention" rule so Receive
// accepts it without a prior handshake.
func buildSendInitial(t *testing.T, amount uint64, recipientTorPub [32]byte) []byte {
	t.Helper()

	blind, err := ecc.RandomScalar()
	require.NoError(t, err)
	nonce, err := ecc.RandomScalar()
	require.NoError(t, err)
	pub := ecc.ScalarBaseMult(blind)
	pubNonce := ecc.ScalarBaseMult(nonce)

	w := bitcodec.NewWriter()
	require.NoError(t, w.PutBits(uint64(slate.PurposeSendInitial), 3))

	var uuid [16]byte
	uuid[6] = 0x40
	require.NoError(t, w.PutBytes(uuid[:]))
	require.NoError(t, w.PutBit(true))
	require.NoError(t, w.PutCompressedU64(amount))
	require.NoError(t, w.PutCompressedU64(7))
	require.NoError(t, w.PutCompressedU64(100))
	require.NoError(t, w.PutCompressedU64(0))
	require.NoError(t, w.PutBit(false))

	var senderKey bitcodec.CompressedPubKey
	senderKey.IsSecp256k1 = true
	copy(senderKey.Secp256k1[:], pub[:])
	require.NoError(t, w.PutCompressedPubKey(senderKey))

	var nonceKey bitcodec.CompressedPubKey
	nonceKey.IsSecp256k1 = true
	copy(nonceKey.Secp256k1[:], pubNonce[:])
	require.NoError(t, w.PutCompressedPubKey(nonceKey))

	require.NoError(t, w.PutBit(false)) // no partial sig
	require.NoError(t, w.PutBit(false)) // no message

	require.NoError(t, w.PutBit(true)) // payment proof present
	var proofAddr bitcodec.CompressedPubKey
	proofAddr.Ed25519 = recipientTorPub
	require.NoError(t, w.PutCompressedPubKey(proofAddr))

	return w.Bytes()
}

func rpcCall(t *testing.T, srv *httptest.Server, slug, method string, params []interface{}) map[string]interface{} {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/"+slug+"/v2/foreign", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func newServer(t *testing.T) (*httptest.Server, *wallet.Wallet, *paystore.BoltPaymentStore) {
	t.Helper()
	w := testWallet(t)
	store := testStore(t)
	cb := callback.New(store, http.DefaultClient, clock.NewDefaultClock(), time.Hour)
	s := New(store, w, true, cb)
	return httptest.NewServer(s), w, store
}

func TestCheckVersion(t *testing.T) {
	srv, _, store := newServer(t)
	defer srv.Close()

	require.NoError(t, store.CreatePayment(&paystore.Payment{ID: 1, URL: "slug1", RequiredConfirmations: 1}))

	out := rpcCall(t, srv, "slug1", "check_version", nil)
	result := out["result"].(map[string]interface{})
	require.Equal(t, float64(2), result["foreign_api_version"])
}

func TestUnknownMethod(t *testing.T) {
	srv, _, store := newServer(t)
	defer srv.Close()
	require.NoError(t, store.CreatePayment(&paystore.Payment{ID: 1, URL: "slug1", RequiredConfirmations: 1}))

	out := rpcCall(t, srv, "slug1", "no_such_method", nil)
	rpcErr := out["error"].(map[string]interface{})
	require.Equal(t, float64(codeMethodNotFound), rpcErr["code"])
}

func TestUnknownInvoice(t *testing.T) {
	srv, _, _ := newServer(t)
	defer srv.Close()

	out := rpcCall(t, srv, "does-not-exist", "check_version", nil)
	rpcErr := out["error"].(map[string]interface{})
	require.Equal(t, float64(codeInvalidParams), rpcErr["code"])
}

func TestGetProofAddress(t *testing.T) {
	srv, w, store := newServer(t)
	defer srv.Close()

	p := &paystore.Payment{ID: 1, URL: "slug1", RequiredConfirmations: 1}
	require.NoError(t, store.CreatePayment(p))

	out := rpcCall(t, srv, "slug1", "get_proof_address", nil)
	addr := out["result"].(string)

	want, err := w.TorPaymentProofAddress(p.UniqueNumber)
	require.NoError(t, err)
	require.Equal(t, want, addr)
}

func TestReceiveTxPlainSlatepack(t *testing.T) {
	srv, w, store := newServer(t)
	defer srv.Close()

	p := &paystore.Payment{ID: 1, URL: "slug1", RequiredConfirmations: 1}
	require.NoError(t, store.CreatePayment(p))

	recipientPub, err := w.TorPublicKey(p.UniqueNumber)
	require.NoError(t, err)
	var recipientArr [32]byte
	copy(recipientArr[:], recipientPub)

	slateBytes := buildSendInitial(t, 1_000_000_000, recipientArr)
	armored := slatepack.EncodePlain(slateBytes)

	out := rpcCall(t, srv, "slug1", "receive_tx", []interface{}{armored, nil, nil})
	require.Nil(t, out["error"], "unexpected rpc error: %v", out["error"])
	responseArmored := out["result"].(string)
	require.NotEmpty(t, responseArmored)

	got, err := store.GetPaymentInfo(1)
	require.NoError(t, err)
	require.NotNil(t, got.Received)
	require.Equal(t, uint64(1_000_000_000), *got.Price)
}

func TestReceiveTxRejectsPriceMismatch(t *testing.T) {
	srv, w, store := newServer(t)
	defer srv.Close()

	price := uint64(500)
	p := &paystore.Payment{ID: 1, URL: "slug1", RequiredConfirmations: 1, Price: &price}
	require.NoError(t, store.CreatePayment(p))

	recipientPub, err := w.TorPublicKey(p.UniqueNumber)
	require.NoError(t, err)
	var recipientArr [32]byte
	copy(recipientArr[:], recipientPub)

	slateBytes := buildSendInitial(t, 999, recipientArr)
	armored := slatepack.EncodePlain(slateBytes)

	out := rpcCall(t, srv, "slug1", "receive_tx", []interface{}{armored, nil, nil})
	rpcErr := out["error"].(map[string]interface{})
	require.Equal(t, float64(codeInvalidParams), rpcErr["code"])
	require.Contains(t, rpcErr["message"], "The amount must be exactly")
}
