// Package paystore implements the payment store of spec.md section 4.G:
// the persisted record of every payment request the daemon has ever
// created, its lifecycle transitions, and the query operations the rest
// of the daemon needs against it. Grounded on channeldb/db.go's
// bucket-per-entity layout (a root bucket per row type, secondary index
// buckets keyed by the field being looked up, values holding the primary
// key) and kept atop the shared kvstore.Store abstraction so the bbolt
// implementation here and the Postgres one in paystore/postgres satisfy
// the same interface.
package paystore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/kvstore"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Payment is a single payment-request row. Field names mirror spec.md
// section 3's data-model table exactly.
type Payment struct {
	UniqueNumber uint64 `json:"unique_number"`
	ID           uint64 `json:"id"`
	URL          string `json:"url"`
	Created      int64  `json:"created"`

	Price                 *uint64 `json:"price,omitempty"`
	RequiredConfirmations uint32  `json:"required_confirmations"`
	Expires               *int64  `json:"expires,omitempty"`

	Received      *int64 `json:"received,omitempty"`
	Confirmations uint32 `json:"confirmations"`
	Completed     *int64 `json:"completed,omitempty"`

	CompletedCallback *string `json:"completed_callback,omitempty"`
	ReceivedCallback  *string `json:"received_callback,omitempty"`
	ConfirmedCallback *string `json:"confirmed_callback,omitempty"`
	ExpiredCallback   *string `json:"expired_callback,omitempty"`

	SenderPaymentProofAddress string `json:"sender_payment_proof_address,omitempty"`
	KernelCommitment          string `json:"kernel_commitment,omitempty"`
	SenderPublicBlindExcess   string `json:"sender_public_blind_excess,omitempty"`
	RecipientPartialSignature string `json:"recipient_partial_signature,omitempty"`
	PublicNonceSum            string `json:"public_nonce_sum,omitempty"`
	KernelData                []byte `json:"kernel_data,omitempty"`

	// RecipientPaymentProofSignature is not one of spec.md section 3's
	// named columns (those cover the aggregate-signature material the
	// observer needs); it is carried alongside so the callback driver's
	// __recipient_payment_proof_signature__ placeholder (section 4.I) can
	// be filled in for the confirmed/completed/expired callbacks, not just
	// the synchronous received callback that has it in hand already.
	RecipientPaymentProofSignature string `json:"recipient_payment_proof_signature,omitempty"`

	ConfirmedHeight *uint64 `json:"confirmed_height,omitempty"`

	CompletedCallbackSuccessful bool `json:"completed_callback_successful"`
	ConfirmedCallbackAcknowledged bool `json:"confirmed_callback_acknowledged"`
	ExpiredCallbackSuccessful   bool `json:"expired_callback_successful"`
}

// Status is the computed lifecycle status exposed to the public/private
// APIs (spec.md section 4.G's get_payment_info contract).
type Status string

const (
	StatusNotReceived Status = "Not received"
	StatusReceived    Status = "Received"
	StatusConfirmed   Status = "Confirmed"
	StatusCompleted   Status = "Completed"
	StatusExpired     Status = "Expired"
)

// ComputeStatus implements spec.md section 4.G's status derivation:
// Expired ← (received is null ∧ now ≥ expires); Completed ← completed is
// not null; Confirmed ← confirmations > 0; Received ← received is not
// null; else Not received.
func (p *Payment) ComputeStatus(now time.Time) Status {
	switch {
	case p.Received == nil && p.Expires != nil && now.Unix() >= *p.Expires:
		return StatusExpired
	case p.Completed != nil:
		return StatusCompleted
	case p.Confirmations > 0:
		return StatusConfirmed
	case p.Received != nil:
		return StatusReceived
	default:
		return StatusNotReceived
	}
}

var (
	bucketPayments          = []byte("payments")
	bucketIndexURL          = []byte("payments-by-url")
	bucketIndexID           = []byte("payments-by-id")
	bucketIndexKernel       = []byte("payments-by-kernel-commitment")
	bucketIdentifierCounter = []byte("identifier-path-counter")
)

// ReceivedParams bundles the atomically-set "receive" columns, spec.md
// section 3's "set atomically at receive" group.
type ReceivedParams struct {
	Price                           uint64
	SenderPaymentProofAddress       string
	KernelCommitment                string
	SenderPublicBlindExcess         string
	RecipientPartialSignature       string
	PublicNonceSum                  string
	KernelData                      []byte
	RecipientPaymentProofSignature  string
}

// Store is the payment-store operation set of spec.md section 4.G,
// consumed by the rest of the daemon (foreignapi, controlapi, observer,
// callback, expiry).
type Store interface {
	// CreatePayment allocates a fresh monotonic unique_number and inserts
	// the row, failing with errkind.Conflict if id or url collides.
	CreatePayment(p *Payment) error

	GetPaymentInfo(id uint64) (*Payment, error)

	// GetCompletedPayments enumerates rows with completed set, newest
	// first — spec.md section 6's `--show_completed_payments`.
	GetCompletedPayments() ([]*Payment, error)

	// GetReceivingPaymentForURL returns the row for url only if
	// received is null and (expires is null or not yet reached).
	GetReceivingPaymentForURL(url string) (*Payment, error)

	// GetUnconfirmedPayment returns the row for kernelCommitment only if
	// confirmed_height is null.
	GetUnconfirmedPayment(kernelCommitment string) (*Payment, error)

	// GetIncompletePayments enumerates rows with completed is null and
	// received is not null.
	GetIncompletePayments() ([]*Payment, error)

	// GetConfirmingPayments enumerates rows with completed is null and
	// confirmed_height is not null.
	GetConfirmingPayments() ([]*Payment, error)

	// GetExpirablePayments enumerates rows with received is null,
	// expires <= now, an expired_callback set, and not yet successful —
	// the expiry monitor's work queue (spec.md section 4.L).
	GetExpirablePayments(now time.Time) ([]*Payment, error)

	// GetPendingCompletedCallbacks enumerates rows with completed is not
	// null and completed_callback_successful is false — the callback
	// driver's "completed" retry queue (spec.md section 4.G/4.I).
	GetPendingCompletedCallbacks() ([]*Payment, error)

	SetPaymentReceived(id uint64, params ReceivedParams) error

	// SetPaymentConfirmed implements spec.md section 4.G exactly: sets
	// confirmations and confirmedHeight; completes the row when
	// confirmations >= required_confirmations; clears confirmedHeight
	// when confirmations == 0.
	SetPaymentConfirmed(id uint64, confirmations uint32, confirmedHeight uint64) error

	// ReorgIncompletePayments resets confirmations=0, confirmed_height=null
	// for every row with completed is null and confirmed_height >= reorgHeight.
	ReorgIncompletePayments(reorgHeight uint64) error

	MarkCompletedCallbackSuccessful(id uint64) error
	MarkConfirmedCallbackAcknowledged(id uint64) error
	MarkExpiredCallbackSuccessful(id uint64) error

	Close() error
}

// BoltPaymentStore is the bbolt-backed Store implementation.
type BoltPaymentStore struct {
	kv kvstore.Store
}

// Open opens (creating if necessary) the payment database at dir/dbName.
func Open(dir, dbName string) (*BoltPaymentStore, error) {
	bs, err := kvstore.OpenBolt(dir, dbName)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	err = bs.Update(func(tx kvstore.Tx) error {
		for _, b := range [][]byte{bucketPayments, bucketIndexURL, bucketIndexID, bucketIndexKernel, bucketIdentifierCounter} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	return &BoltPaymentStore{kv: bs}, nil
}

func (s *BoltPaymentStore) Close() error {
	return s.kv.Close()
}

func idKey(id uint64) []byte {
	return []byte(formatUint(id))
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func encodePayment(p *Payment) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	return b, nil
}

func decodePayment(b []byte) (*Payment, error) {
	p := &Payment{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	return p, nil
}

// CreatePayment implements Store.CreatePayment.
func (s *BoltPaymentStore) CreatePayment(p *Payment) error {
	err := s.kv.Update(func(tx kvstore.Tx) error {
		idIdx, err := tx.Bucket(bucketIndexID)
		if err != nil {
			return err
		}
		if _, ok := idIdx.Get(idKey(p.ID)); ok {
			return errkind.New(errkind.Conflict, "payment id already in use: %d", p.ID)
		}

		urlIdx, err := tx.Bucket(bucketIndexURL)
		if err != nil {
			return err
		}
		if _, ok := urlIdx.Get([]byte(p.URL)); ok {
			return errkind.New(errkind.Conflict, "url already in use: %s", p.URL)
		}

		counter, err := tx.Bucket(bucketIdentifierCounter)
		if err != nil {
			return err
		}
		next, err := counter.NextSequence()
		if err != nil {
			return err
		}
		p.UniqueNumber = next

		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		encoded, err := encodePayment(p)
		if err != nil {
			return err
		}
		storeKey := idKey(p.UniqueNumber)
		if err := payments.Put(storeKey, encoded); err != nil {
			return err
		}
		if err := idIdx.Put(idKey(p.ID), storeKey); err != nil {
			return err
		}
		if err := urlIdx.Put([]byte(p.URL), storeKey); err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		log.Debugf("payment %d created (unique_number=%d, url=%s)", p.ID, p.UniqueNumber, p.URL)
	}
	return err
}

func (s *BoltPaymentStore) getByStoreKey(payments kvstore.Bucket, key []byte) (*Payment, error) {
	raw, ok := payments.Get(key)
	if !ok {
		return nil, errkind.New(errkind.NotFound, "payment not found")
	}
	return decodePayment(raw)
}

func (s *BoltPaymentStore) GetPaymentInfo(id uint64) (*Payment, error) {
	var p *Payment
	err := s.kv.View(func(tx kvstore.Tx) error {
		idIdx, err := tx.Bucket(bucketIndexID)
		if err != nil {
			return err
		}
		storeKey, ok := idIdx.Get(idKey(id))
		if !ok {
			return errkind.New(errkind.NotFound, "payment not found: %d", id)
		}
		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		got, err := s.getByStoreKey(payments, storeKey)
		if err != nil {
			return err
		}
		p = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BoltPaymentStore) GetReceivingPaymentForURL(url string) (*Payment, error) {
	now := time.Now()
	var p *Payment
	err := s.kv.View(func(tx kvstore.Tx) error {
		urlIdx, err := tx.Bucket(bucketIndexURL)
		if err != nil {
			return err
		}
		storeKey, ok := urlIdx.Get([]byte(url))
		if !ok {
			return errkind.New(errkind.NotFound, "no payment for url: %s", url)
		}
		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		got, err := s.getByStoreKey(payments, storeKey)
		if err != nil {
			return err
		}
		if got.Received != nil {
			return errkind.New(errkind.NotFound, "payment for url already received: %s", url)
		}
		if got.Expires != nil && now.Unix() >= *got.Expires {
			return errkind.New(errkind.NotFound, "payment for url has expired: %s", url)
		}
		p = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BoltPaymentStore) GetUnconfirmedPayment(kernelCommitment string) (*Payment, error) {
	var p *Payment
	err := s.kv.View(func(tx kvstore.Tx) error {
		kernelIdx, err := tx.Bucket(bucketIndexKernel)
		if err != nil {
			return err
		}
		storeKey, ok := kernelIdx.Get([]byte(kernelCommitment))
		if !ok {
			return errkind.New(errkind.NotFound, "no payment for kernel commitment: %s", kernelCommitment)
		}
		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		got, err := s.getByStoreKey(payments, storeKey)
		if err != nil {
			return err
		}
		if got.ConfirmedHeight != nil {
			return errkind.New(errkind.NotFound, "payment already confirmed: %s", kernelCommitment)
		}
		p = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BoltPaymentStore) scanFiltered(filter func(*Payment) bool) ([]*Payment, error) {
	var out []*Payment
	err := s.kv.View(func(tx kvstore.Tx) error {
		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		return payments.ForEach(func(key, value []byte) error {
			p, err := decodePayment(value)
			if err != nil {
				return err
			}
			if filter(p) {
				out = append(out, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltPaymentStore) GetIncompletePayments() ([]*Payment, error) {
	return s.scanFiltered(func(p *Payment) bool {
		return p.Completed == nil && p.Received != nil
	})
}

func (s *BoltPaymentStore) GetConfirmingPayments() ([]*Payment, error) {
	return s.scanFiltered(func(p *Payment) bool {
		return p.Completed == nil && p.ConfirmedHeight != nil
	})
}

func (s *BoltPaymentStore) GetCompletedPayments() ([]*Payment, error) {
	out, err := s.scanFiltered(func(p *Payment) bool {
		return p.Completed != nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].Completed > *out[j].Completed
	})
	return out, nil
}

func (s *BoltPaymentStore) GetExpirablePayments(now time.Time) ([]*Payment, error) {
	return s.scanFiltered(func(p *Payment) bool {
		return p.Received == nil &&
			p.Expires != nil && now.Unix() >= *p.Expires &&
			p.ExpiredCallback != nil && !p.ExpiredCallbackSuccessful
	})
}

func (s *BoltPaymentStore) GetPendingCompletedCallbacks() ([]*Payment, error) {
	return s.scanFiltered(func(p *Payment) bool {
		return p.Completed != nil && !p.CompletedCallbackSuccessful && p.CompletedCallback != nil
	})
}

func (s *BoltPaymentStore) mutate(id uint64, fn func(p *Payment) error) error {
	return s.kv.Update(func(tx kvstore.Tx) error {
		idIdx, err := tx.Bucket(bucketIndexID)
		if err != nil {
			return err
		}
		storeKey, ok := idIdx.Get(idKey(id))
		if !ok {
			return errkind.New(errkind.NotFound, "payment not found: %d", id)
		}

		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}
		p, err := s.getByStoreKey(payments, storeKey)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		encoded, err := encodePayment(p)
		if err != nil {
			return err
		}
		if err := payments.Put(storeKey, encoded); err != nil {
			return err
		}

		if p.KernelCommitment != "" {
			kernelIdx, err := tx.Bucket(bucketIndexKernel)
			if err != nil {
				return err
			}
			if err := kernelIdx.Put([]byte(p.KernelCommitment), storeKey); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetPaymentReceived implements spec.md section 3's write-once "received"
// column group: every receive-set column must be absent beforehand.
func (s *BoltPaymentStore) SetPaymentReceived(id uint64, params ReceivedParams) error {
	return s.mutate(id, func(p *Payment) error {
		if p.Received != nil {
			return errkind.New(errkind.InvariantViolation, "payment %d already received", id)
		}
		if p.Price != nil && *p.Price != params.Price {
			return errkind.New(errkind.Conflict, "price is frozen once set for payment %d", id)
		}

		now := time.Now().Unix()
		price := params.Price
		p.Price = &price
		p.Received = &now
		p.SenderPaymentProofAddress = params.SenderPaymentProofAddress
		p.KernelCommitment = params.KernelCommitment
		p.SenderPublicBlindExcess = params.SenderPublicBlindExcess
		p.RecipientPartialSignature = params.RecipientPartialSignature
		p.PublicNonceSum = params.PublicNonceSum
		p.KernelData = params.KernelData
		p.RecipientPaymentProofSignature = params.RecipientPaymentProofSignature
		return nil
	})
}

// SetPaymentConfirmed implements spec.md section 4.G's set_payment_confirmed
// contract precisely, including auto-completion and the confirmations=0
// clear-confirmed-height rule.
func (s *BoltPaymentStore) SetPaymentConfirmed(id uint64, confirmations uint32, confirmedHeight uint64) error {
	return s.mutate(id, func(p *Payment) error {
		if p.Completed != nil {
			return errkind.New(errkind.InvariantViolation, "payment %d already completed", id)
		}
		if confirmations > p.Confirmations {
			p.ConfirmedCallbackAcknowledged = false
		}
		p.Confirmations = confirmations
		if confirmations == 0 {
			p.ConfirmedHeight = nil
		} else {
			h := confirmedHeight
			p.ConfirmedHeight = &h
		}
		if confirmations >= p.RequiredConfirmations && p.Received != nil {
			now := time.Now().Unix()
			p.Completed = &now
		}
		return nil
	})
}

// ReorgIncompletePayments implements spec.md section 4.H's reorg
// handling: rows with completed is null and confirmed_height >=
// reorgHeight reset confirmations=0, confirmed_height=null. This is
// idempotent — a second call with the same height touches rows that are
// already reset and leaves them unchanged (spec.md section 8's
// "reorg idempotence" property).
func (s *BoltPaymentStore) ReorgIncompletePayments(reorgHeight uint64) error {
	return s.kv.Update(func(tx kvstore.Tx) error {
		payments, err := tx.Bucket(bucketPayments)
		if err != nil {
			return err
		}

		var toReset [][]byte
		var decoded []*Payment
		err = payments.ForEach(func(key, value []byte) error {
			p, err := decodePayment(value)
			if err != nil {
				return err
			}
			if p.Completed == nil && p.ConfirmedHeight != nil && *p.ConfirmedHeight >= reorgHeight {
				k := make([]byte, len(key))
				copy(k, key)
				toReset = append(toReset, k)
				decoded = append(decoded, p)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for i, p := range decoded {
			p.Confirmations = 0
			p.ConfirmedHeight = nil
			encoded, err := encodePayment(p)
			if err != nil {
				return err
			}
			if err := payments.Put(toReset[i], encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltPaymentStore) MarkCompletedCallbackSuccessful(id uint64) error {
	return s.mutate(id, func(p *Payment) error {
		p.CompletedCallbackSuccessful = true
		return nil
	})
}

func (s *BoltPaymentStore) MarkConfirmedCallbackAcknowledged(id uint64) error {
	return s.mutate(id, func(p *Payment) error {
		p.ConfirmedCallbackAcknowledged = true
		return nil
	})
}

func (s *BoltPaymentStore) MarkExpiredCallbackSuccessful(id uint64) error {
	return s.mutate(id, func(p *Payment) error {
		p.ExpiredCallbackSuccessful = true
		return nil
	})
}

var _ Store = (*BoltPaymentStore)(nil)
