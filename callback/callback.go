// Package callback implements the webhook delivery driver of spec.md
// section 4.I: at most one HTTP GET per lifecycle transition, with
// placeholder substitution on the URL, and the per-transition delivery
// semantics (best-effort-once for received, retry-until-success for the
// rest). Grounded on the teacher's htlcswitch link-failure retry loop
// shape (a ticker-driven poll over a small set of pending items, each
// attempted independently). The received callback is delivered in-line
// by the caller through FireReceived; completed and confirmed run as two
// background retry workers; expired is attempted by AttemptExpired,
// which the expiry monitor calls on each tick.
package callback

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/clock"
	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/paystore"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger, following the teacher's
// per-subsystem logger convention.
func UseLogger(logger btclog.Logger) {
	log = logger
}

const (
	tokenID                        = "__id__"
	tokenPrice                     = "__price__"
	tokenSenderProofAddress         = "__sender_payment_proof_address__"
	tokenKernelCommitment           = "__kernel_commitment__"
	tokenRecipientProofSignature    = "__recipient_payment_proof_signature__"
)

// ReceivedNotice carries the in-memory fields the synchronous "received"
// callback needs before anything has been committed to the store.
type ReceivedNotice struct {
	ID                              uint64
	Price                           uint64
	SenderPaymentProofAddress       string
	KernelCommitment                string
	RecipientPaymentProofSignature  string
}

func substitute(rawURL, id, price, senderAddr, kernelCommitment, recipientProofSig string) string {
	replacer := strings.NewReplacer(
		tokenID, id,
		tokenPrice, price,
		tokenSenderProofAddress, senderAddr,
		tokenKernelCommitment, kernelCommitment,
		tokenRecipientProofSignature, recipientProofSig,
	)
	return replacer.Replace(rawURL)
}

func priceString(p *uint64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(*p, 10)
}

// Driver fires the webhook deliveries spec.md section 4.I describes. The
// http.Client passed in is expected to already route through the Tor
// proxy when the operator enabled one (spec.md section 6).
type Driver struct {
	store      paystore.Store
	client     *http.Client
	clk        clock.Clock
	retryEvery time.Duration
	quit       chan struct{}
}

// New constructs a Driver. retryEvery is the fixed retry period for the
// completed and confirmed background workers.
func New(store paystore.Store, client *http.Client, clk clock.Clock, retryEvery time.Duration) *Driver {
	return &Driver{
		store:      store,
		client:     client,
		clk:        clk,
		retryEvery: retryEvery,
		quit:       make(chan struct{}),
	}
}

func (d *Driver) deliver(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errkind.New(errkind.InvalidInput, "invalid callback url: %s", rawURL)
	}

	resp, err := d.client.Get(parsed.String())
	if err != nil {
		return errkind.Wrap(err, errkind.Transient)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errkind.New(errkind.Transient, "callback %s returned status %d", parsed.Host, resp.StatusCode)
	}
	return nil
}

// FireReceived delivers the "received" callback synchronously, spec.md
// section 4.I: best-effort once, and its failure must abort the
// slate-exchange before anything is persisted.
func (d *Driver) FireReceived(rawURL string, notice ReceivedNotice) error {
	substituted := substitute(rawURL,
		strconv.FormatUint(notice.ID, 10),
		strconv.FormatUint(notice.Price, 10),
		notice.SenderPaymentProofAddress,
		notice.KernelCommitment,
		notice.RecipientPaymentProofSignature,
	)
	if err := d.deliver(substituted); err != nil {
		return fmt.Errorf("received callback: %w", err)
	}
	return nil
}

func paymentURL(rawURL string, p *paystore.Payment) string {
	return substitute(rawURL,
		strconv.FormatUint(p.ID, 10),
		priceString(p.Price),
		p.SenderPaymentProofAddress,
		p.KernelCommitment,
		p.RecipientPaymentProofSignature,
	)
}

// Start launches the completed and confirmed retry workers as background
// goroutines, each polling the store on retryEvery and attempting
// delivery for every row still pending its callback. The expired
// callback is driven separately by the expiry monitor (spec.md section
// 4.L) on its own 1-second cadence via AttemptExpired.
func (d *Driver) Start() {
	go d.runCompleted()
	go d.runConfirmed()
}

// Stop signals all retry workers to exit.
func (d *Driver) Stop() {
	close(d.quit)
}

func (d *Driver) runCompleted() {
	ticker := d.clk.TickAfter(d.retryEvery)
	for {
		select {
		case <-ticker:
			d.attemptCompleted()
			ticker = d.clk.TickAfter(d.retryEvery)
		case <-d.quit:
			return
		}
	}
}

func (d *Driver) attemptCompleted() {
	pending, err := d.store.GetPendingCompletedCallbacks()
	if err != nil {
		log.Errorf("completed callback scan failed: %v", err)
		return
	}
	for _, p := range pending {
		if p.CompletedCallback == nil {
			continue
		}
		if err := d.deliver(paymentURL(*p.CompletedCallback, p)); err != nil {
			log.Debugf("completed callback for payment %d not yet acknowledged: %v", p.ID, err)
			continue
		}
		if err := d.store.MarkCompletedCallbackSuccessful(p.ID); err != nil {
			log.Errorf("marking completed callback successful for payment %d: %v", p.ID, err)
		}
	}
}

func (d *Driver) runConfirmed() {
	ticker := d.clk.TickAfter(d.retryEvery)
	for {
		select {
		case <-ticker:
			d.attemptConfirmed()
			ticker = d.clk.TickAfter(d.retryEvery)
		case <-d.quit:
			return
		}
	}
}

func (d *Driver) attemptConfirmed() {
	confirming, err := d.store.GetConfirmingPayments()
	if err != nil {
		log.Errorf("confirmed callback scan failed: %v", err)
		return
	}
	for _, p := range confirming {
		if p.ConfirmedCallback == nil || p.ConfirmedCallbackAcknowledged {
			continue
		}
		if err := d.deliver(paymentURL(*p.ConfirmedCallback, p)); err != nil {
			log.Debugf("confirmed callback for payment %d not yet acknowledged: %v", p.ID, err)
			continue
		}
		if err := d.store.MarkConfirmedCallbackAcknowledged(p.ID); err != nil {
			log.Errorf("marking confirmed callback acknowledged for payment %d: %v", p.ID, err)
		}
	}
}

// AttemptExpired scans for rows due an expired callback and attempts
// delivery once. The expiry monitor (spec.md section 4.L) calls this on
// its own 1-second ticker; it is exported rather than run as an internal
// retry worker so that cadence lives in one place.
func (d *Driver) AttemptExpired() {
	now := d.clk.Now()
	expirable, err := d.store.GetExpirablePayments(now)
	if err != nil {
		log.Errorf("expired callback scan failed: %v", err)
		return
	}
	for _, p := range expirable {
		if p.ExpiredCallback == nil {
			continue
		}
		if err := d.deliver(paymentURL(*p.ExpiredCallback, p)); err != nil {
			log.Debugf("expired callback for payment %d not yet successful: %v", p.ID, err)
			continue
		}
		if err := d.store.MarkExpiredCallbackSuccessful(p.ID); err != nil {
			log.Errorf("marking expired callback successful for payment %d: %v", p.ID, err)
		}
	}
}
