package controlapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/paystore"
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

type fixedPrice struct {
	price    string
	disabled bool
}

func (f fixedPrice) CurrentPrice() (string, bool) { return f.price, f.disabled }

func newServer(t *testing.T, price PriceSource) (*httptest.Server, *paystore.BoltPaymentStore) {
	t.Helper()
	store := testStore(t)
	s := New(store, testWallet(t), price)
	return httptest.NewServer(s), store
}

func getJSON(t *testing.T, srv *httptest.Server, path string, q url.Values) (*http.Response, map[string]interface{}) {
	t.Helper()
	u := srv.URL + path
	if q != nil {
		u += "?" + q.Encode()
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestCreatePaymentRequiresCompletedCallback(t *testing.T) {
	srv, _ := newServer(t, nil)
	defer srv.Close()

	resp, _ := getJSON(t, srv, "/create_payment", url.Values{"price": {"1.5"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePaymentDefaults(t *testing.T) {
	srv, store := newServer(t, nil)
	defer srv.Close()

	resp, body := getJSON(t, srv, "/create_payment", url.Values{
		"completed_callback": {"http://localhost:8080/done"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["url"])
	require.NotNil(t, body["payment_id"])
	require.NotEmpty(t, body["recipient_payment_proof_address"])

	id := uint64(body["payment_id"].(float64))
	p, err := store.GetPaymentInfo(id)
	require.NoError(t, err)
	require.Equal(t, uint32(1), p.RequiredConfirmations)
	require.Nil(t, p.Price)
	require.Nil(t, p.Expires)
}

func TestCreatePaymentWithPriceAndConfirmations(t *testing.T) {
	srv, store := newServer(t, nil)
	defer srv.Close()

	resp, body := getJSON(t, srv, "/create_payment", url.Values{
		"completed_callback":     {"https://example.com:443/cb"},
		"price":                  {"2.5"},
		"required_confirmations": {"10"},
		"timeout":                {"3600"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	id := uint64(body["payment_id"].(float64))
	p, err := store.GetPaymentInfo(id)
	require.NoError(t, err)
	require.Equal(t, uint32(10), p.RequiredConfirmations)
	require.NotNil(t, p.Price)
	require.Equal(t, uint64(2_500_000_000), *p.Price)
	require.NotNil(t, p.Expires)
}

func TestCreatePaymentRejectsBadCallback(t *testing.T) {
	srv, _ := newServer(t, nil)
	defer srv.Close()

	resp, _ := getJSON(t, srv, "/create_payment", url.Values{
		"completed_callback": {"ftp://example.com:21/done"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPaymentInfoUnknown(t *testing.T) {
	srv, _ := newServer(t, nil)
	defer srv.Close()

	resp, _ := getJSON(t, srv, "/get_payment_info", url.Values{"payment_id": {"12345"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPaymentInfoRoundTrip(t *testing.T) {
	srv, _ := newServer(t, nil)
	defer srv.Close()

	_, created := getJSON(t, srv, "/create_payment", url.Values{
		"completed_callback": {"http://localhost:9000/cb"},
		"price":              {"1"},
	})
	id := uint64(created["payment_id"].(float64))

	resp, body := getJSON(t, srv, "/get_payment_info", url.Values{"payment_id": {strconv.FormatUint(id, 10)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1000000000", body["price"])
	require.Equal(t, false, body["received"])
	require.Equal(t, "Not received", body["status"])
	require.NotEmpty(t, body["recipient_payment_proof_address"])
}

func TestGetPriceDisabled(t *testing.T) {
	srv, _ := newServer(t, fixedPrice{disabled: true})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/get_price")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPriceEnabled(t *testing.T) {
	srv, _ := newServer(t, fixedPrice{price: "123.456"})
	defer srv.Close()

	resp, body := getJSON(t, srv, "/get_price", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "123.456", body["price"])
}

func TestGetPriceMissingSource(t *testing.T) {
	srv, _ := newServer(t, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/get_price")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
