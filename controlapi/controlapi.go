// Package controlapi implements the private control surface of spec.md
// section 4.K: a GET-only HTTP API an operator's own backend calls to
// mint new invoices and poll their status. Grounded on
// original_source/private_server.cpp's route table (three fixed routes,
// no auth beyond TLS/network placement) and foreignapi's JSON response
// conventions.
package controlapi

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/paystore"
	"github.com/mwc-pay/mwcpayd/wallet"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

const (
	slugAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"
	slugLength   = 20

	defaultRequiredConfirmations = 1

	maxCallbackSize = 1 << 12
)

// PriceSource is the subset of the price aggregator's API /get_price
// needs. Disabled reports whether --price_disable was set, in which case
// the route answers 404 rather than a stale or zero quote.
type PriceSource interface {
	CurrentPrice() (price string, disabled bool)
}

// Server handles the three control-API routes.
type Server struct {
	store  paystore.Store
	wallet *wallet.Wallet
	price  PriceSource
}

// New constructs a Server. price may be nil, equivalent to a PriceSource
// that always reports disabled.
func New(store paystore.Store, w *wallet.Wallet, price PriceSource) *Server {
	return &Server{store: store, wallet: w, price: price}
}

// ServeHTTP dispatches GET requests across the three routes; anything
// else, including non-GET methods, gets a 404, matching the teacher's
// generic "unrecognized path" catch-all callback.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-transform")

	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	switch r.URL.Path {
	case "/create_payment":
		s.handleCreatePayment(w, r)
	case "/get_payment_info":
		s.handleGetPaymentInfo(w, r)
	case "/get_price":
		s.handleGetPrice(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshaling control api response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(payload)
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, "bad request", http.StatusBadRequest)
}

// parseDecimalPrice parses a "<integer>[.<fraction>]" price string into
// the coin's smallest unit: the whole part is multiplied by numberBase and
// the fraction may carry at most decimalPlaces digits, matching original_source/private_server.cpp's handleCreatePaymentRequest.
func parseDecimalPrice(s string, numberBase uint64, decimalPlaces int) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	intPart := s
	fracPart := ""
	if i := indexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
	}
	if intPart == "" || !isAllDigits(intPart) || (len(intPart) > 1 && intPart[0] == '0') {
		return 0, false
	}
	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	price := whole * numberBase
	if fracPart != "" {
		if !isAllDigits(fracPart) || len(fracPart) > decimalPlaces {
			return 0, false
		}
		frac, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, false
		}
		scale := uint64(1)
		for i := 0; i < decimalPlaces-len(fracPart); i++ {
			scale *= 10
		}
		price += frac * scale
	}
	if price == 0 {
		return 0, false
	}
	return price, true
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validateCallbackURL implements spec.md section 4.K's callback
// validation: http(s) scheme, non-empty host, explicit port.
func validateCallbackURL(raw string) bool {
	if raw == "" || len(raw) > maxCallbackSize {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Hostname() == "" || parsed.Port() == "" {
		return false
	}
	return true
}

func randomU64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, errkind.Wrap(err, errkind.Fatal)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func randomSlug() (string, error) {
	buf := make([]byte, slugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errkind.Wrap(err, errkind.Fatal)
	}
	out := make([]byte, slugLength)
	for i, b := range buf {
		out[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(out), nil
}

const numberBase = 1_000_000_000
const decimalPlaces = 9

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var price *uint64
	if raw := q.Get("price"); raw != "" {
		p, ok := parseDecimalPrice(raw, numberBase, decimalPlaces)
		if !ok {
			badRequest(w)
			return
		}
		price = &p
	}

	requiredConfirmations := uint32(defaultRequiredConfirmations)
	if raw := q.Get("required_confirmations"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 || (len(raw) > 1 && raw[0] == '0') {
			badRequest(w)
			return
		}
		requiredConfirmations = uint32(n)
	}

	var expires *int64
	if raw := q.Get("timeout"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 || (len(raw) > 1 && raw[0] == '0') {
			badRequest(w)
			return
		}
		e := time.Now().Unix() + int64(n)
		expires = &e
	}

	completedCallback := q.Get("completed_callback")
	if !validateCallbackURL(completedCallback) {
		badRequest(w)
		return
	}

	var receivedCallback, confirmedCallback, expiredCallback *string
	for _, pair := range []struct {
		param string
		dest  **string
	}{
		{"received_callback", &receivedCallback},
		{"confirmed_callback", &confirmedCallback},
		{"expired_callback", &expiredCallback},
	} {
		raw := q.Get(pair.param)
		if raw == "" {
			continue
		}
		if !validateCallbackURL(raw) {
			badRequest(w)
			return
		}
		v := raw
		*pair.dest = &v
	}

	var id uint64
	var slug string
	var uniqueNumber uint64
	for attempt := 0; attempt < 100; attempt++ {
		var err error
		id, err = randomU64()
		if err != nil {
			log.Errorf("generating payment id: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		slug, err = randomSlug()
		if err != nil {
			log.Errorf("generating payment url: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		p := &paystore.Payment{
			ID:                    id,
			URL:                   slug,
			Price:                 price,
			RequiredConfirmations: requiredConfirmations,
			Expires:               expires,
			CompletedCallback:     &completedCallback,
			ReceivedCallback:      receivedCallback,
			ConfirmedCallback:     confirmedCallback,
			ExpiredCallback:       expiredCallback,
		}
		err = s.store.CreatePayment(p)
		if err == nil {
			uniqueNumber = p.UniqueNumber
			break
		}
		if !errkind.Is(err, errkind.Conflict) {
			log.Errorf("creating payment: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		// id or slug collided; re-roll both per spec.md section 4.K.
		slug = ""
	}
	if slug == "" {
		log.Errorf("creating payment: exhausted collision retries")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	proofAddress, err := s.wallet.TorPaymentProofAddress(uniqueNumber)
	if err != nil {
		log.Errorf("deriving proof address for payment %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Infof("created payment %d", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payment_id":                     id,
		"url":                            slug,
		"recipient_payment_proof_address": proofAddress,
	})
}

func (s *Server) handleGetPaymentInfo(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("payment_id")
	if raw == "" {
		badRequest(w)
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || (len(raw) > 1 && raw[0] == '0') {
		badRequest(w)
		return
	}

	p, err := s.store.GetPaymentInfo(id)
	if err != nil {
		if errkind.Is(err, errkind.NotFound) {
			badRequest(w)
			return
		}
		log.Errorf("looking up payment %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	proofAddress, err := s.wallet.TorPaymentProofAddress(p.UniqueNumber)
	if err != nil {
		log.Errorf("deriving proof address for payment %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	status := p.ComputeStatus(now)

	var priceField interface{}
	if p.Price != nil {
		priceField = strconv.FormatUint(*p.Price, 10)
	}

	var timeRemaining interface{}
	if p.Received == nil && p.Expires != nil {
		remaining := *p.Expires - now.Unix()
		if remaining < 0 {
			remaining = 0
		}
		timeRemaining = remaining
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":                            p.URL,
		"price":                          priceField,
		"required_confirmations":         p.RequiredConfirmations,
		"received":                       p.Received != nil,
		"confirmations":                  p.Confirmations,
		"time_remaining":                 timeRemaining,
		"status":                         string(status),
		"recipient_payment_proof_address": proofAddress,
	})
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	if s.price == nil {
		http.NotFound(w, r)
		return
	}
	price, disabled := s.price.CurrentPrice()
	if disabled {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"price": price})
}
