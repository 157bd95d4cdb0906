// Package postgres is the optional Postgres-backed implementation of
// paystore.Store, for operators who prefer a managed relational database
// over the embedded bbolt file (spec.md section 6's "a SQL backend MAY be
// substituted for the embedded store"). It speaks the database/sql
// interface through jackc/pgx's stdlib driver, with lib/pq's connection-
// string parsing reused for DSN normalization the way the teacher's
// channeldb callers accept either a file path or a DSN.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"

	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/paystore"
)

const schema = `
CREATE TABLE IF NOT EXISTS payments (
	unique_number                   BIGSERIAL PRIMARY KEY,
	id                               BIGINT NOT NULL UNIQUE,
	url                              TEXT NOT NULL UNIQUE,
	created                          BIGINT NOT NULL,

	price                            BIGINT,
	required_confirmations           INTEGER NOT NULL,
	expires                          BIGINT,

	received                         BIGINT,
	confirmations                    INTEGER NOT NULL DEFAULT 0,
	completed                        BIGINT,

	completed_callback               TEXT,
	received_callback                TEXT,
	confirmed_callback               TEXT,
	expired_callback                 TEXT,

	sender_payment_proof_address     TEXT,
	kernel_commitment                TEXT UNIQUE,
	sender_public_blind_excess       TEXT,
	recipient_partial_signature      TEXT,
	public_nonce_sum                 TEXT,
	kernel_data                      BYTEA,
	recipient_payment_proof_signature TEXT,

	confirmed_height                 BIGINT,

	completed_callback_successful    BOOLEAN NOT NULL DEFAULT FALSE,
	confirmed_callback_acknowledged  BOOLEAN NOT NULL DEFAULT FALSE,
	expired_callback_successful      BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Store is the Postgres-backed paystore.Store.
type Store struct {
	db *sql.DB
}

// Open parses dsn with lib/pq's connection-string normalizer (accepting
// both "postgres://" URLs and "key=value" DSNs) and opens a pool through
// the pgx stdlib driver, creating the schema if absent.
func Open(dsn string) (*Store, error) {
	normalized, err := pq.ParseURL(dsn)
	if err != nil {
		// Not a URL-form DSN; assume it is already key=value form.
		normalized = dsn
	}

	db, err := sql.Open("pgx", normalized)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	if err := db.Ping(); err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil &&
		(contains(err.Error(), "duplicate key") || contains(err.Error(), "unique constraint"))
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// CreatePayment implements paystore.Store.CreatePayment against Postgres,
// using the unique_number BIGSERIAL for the monotonic counter the bbolt
// implementation gets from Bucket.NextSequence.
func (s *Store) CreatePayment(p *paystore.Payment) error {
	ctx := context.Background()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO payments (
			id, url, created, price, required_confirmations, expires,
			completed_callback, received_callback, confirmed_callback, expired_callback
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING unique_number`,
		p.ID, p.URL, p.Created, p.Price, p.RequiredConfirmations, p.Expires,
		p.CompletedCallback, p.ReceivedCallback, p.ConfirmedCallback, p.ExpiredCallback)

	if err := row.Scan(&p.UniqueNumber); err != nil {
		if isUniqueViolation(err) {
			return errkind.New(errkind.Conflict, "id or url already in use: %d / %s", p.ID, p.URL)
		}
		return errkind.Wrap(err, errkind.Fatal)
	}
	return nil
}

const selectColumns = `
	unique_number, id, url, created, price, required_confirmations, expires,
	received, confirmations, completed,
	completed_callback, received_callback, confirmed_callback, expired_callback,
	sender_payment_proof_address, kernel_commitment, sender_public_blind_excess,
	recipient_partial_signature, public_nonce_sum, kernel_data,
	recipient_payment_proof_signature,
	confirmed_height,
	completed_callback_successful, confirmed_callback_acknowledged, expired_callback_successful
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row scanner) (*paystore.Payment, error) {
	p := &paystore.Payment{}
	var price, expires, received, completed, confirmedHeight sql.NullInt64
	var completedCallback, receivedCallback, confirmedCallback, expiredCallback sql.NullString
	var senderProofAddr, kernelCommitment, senderBlindExcess, recipientSig, nonceSum sql.NullString
	var recipientProofSig sql.NullString
	var kernelData []byte

	err := row.Scan(
		&p.UniqueNumber, &p.ID, &p.URL, &p.Created, &price, &p.RequiredConfirmations, &expires,
		&received, &p.Confirmations, &completed,
		&completedCallback, &receivedCallback, &confirmedCallback, &expiredCallback,
		&senderProofAddr, &kernelCommitment, &senderBlindExcess,
		&recipientSig, &nonceSum, &kernelData,
		&recipientProofSig,
		&confirmedHeight,
		&p.CompletedCallbackSuccessful, &p.ConfirmedCallbackAcknowledged, &p.ExpiredCallbackSuccessful,
	)
	if err == sql.ErrNoRows {
		return nil, errkind.New(errkind.NotFound, "payment not found")
	}
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	if price.Valid {
		v := uint64(price.Int64)
		p.Price = &v
	}
	if expires.Valid {
		p.Expires = &expires.Int64
	}
	if received.Valid {
		p.Received = &received.Int64
	}
	if completed.Valid {
		p.Completed = &completed.Int64
	}
	if confirmedHeight.Valid {
		v := uint64(confirmedHeight.Int64)
		p.ConfirmedHeight = &v
	}
	if completedCallback.Valid {
		p.CompletedCallback = &completedCallback.String
	}
	if receivedCallback.Valid {
		p.ReceivedCallback = &receivedCallback.String
	}
	if confirmedCallback.Valid {
		p.ConfirmedCallback = &confirmedCallback.String
	}
	if expiredCallback.Valid {
		p.ExpiredCallback = &expiredCallback.String
	}
	p.SenderPaymentProofAddress = senderProofAddr.String
	p.KernelCommitment = kernelCommitment.String
	p.SenderPublicBlindExcess = senderBlindExcess.String
	p.RecipientPartialSignature = recipientSig.String
	p.PublicNonceSum = nonceSum.String
	p.KernelData = kernelData
	p.RecipientPaymentProofSignature = recipientProofSig.String
	return p, nil
}

func (s *Store) GetPaymentInfo(id uint64) (*paystore.Payment, error) {
	row := s.db.QueryRow("SELECT "+selectColumns+" FROM payments WHERE id = $1", id)
	return scanPayment(row)
}

func (s *Store) GetReceivingPaymentForURL(url string) (*paystore.Payment, error) {
	row := s.db.QueryRow(`
		SELECT `+selectColumns+` FROM payments
		WHERE url = $1 AND received IS NULL AND (expires IS NULL OR expires > $2)`,
		url, time.Now().Unix())
	return scanPayment(row)
}

func (s *Store) GetUnconfirmedPayment(kernelCommitment string) (*paystore.Payment, error) {
	row := s.db.QueryRow(`
		SELECT `+selectColumns+` FROM payments
		WHERE kernel_commitment = $1 AND confirmed_height IS NULL`, kernelCommitment)
	return scanPayment(row)
}

func (s *Store) queryRows(query string, args ...interface{}) ([]*paystore.Payment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}
	defer rows.Close()

	var out []*paystore.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, errkind.Wrap(rows.Err(), errkind.Fatal)
}

func (s *Store) GetIncompletePayments() ([]*paystore.Payment, error) {
	return s.queryRows("SELECT " + selectColumns + " FROM payments WHERE completed IS NULL AND received IS NOT NULL")
}

func (s *Store) GetConfirmingPayments() ([]*paystore.Payment, error) {
	return s.queryRows("SELECT " + selectColumns + " FROM payments WHERE completed IS NULL AND confirmed_height IS NOT NULL")
}

func (s *Store) GetCompletedPayments() ([]*paystore.Payment, error) {
	return s.queryRows("SELECT " + selectColumns + " FROM payments WHERE completed IS NOT NULL ORDER BY completed DESC")
}

func (s *Store) GetExpirablePayments(now time.Time) ([]*paystore.Payment, error) {
	return s.queryRows(`
		SELECT `+selectColumns+` FROM payments
		WHERE received IS NULL AND expires IS NOT NULL AND expires <= $1
			AND expired_callback IS NOT NULL AND NOT expired_callback_successful`, now.Unix())
}

func (s *Store) GetPendingCompletedCallbacks() ([]*paystore.Payment, error) {
	return s.queryRows(`
		SELECT ` + selectColumns + ` FROM payments
		WHERE completed IS NOT NULL AND NOT completed_callback_successful
			AND completed_callback IS NOT NULL`)
}

func (s *Store) SetPaymentReceived(id uint64, params paystore.ReceivedParams) error {
	res, err := s.db.Exec(`
		UPDATE payments SET
			price = $2, received = $3,
			sender_payment_proof_address = $4, kernel_commitment = $5,
			sender_public_blind_excess = $6, recipient_partial_signature = $7,
			public_nonce_sum = $8, kernel_data = $9, recipient_payment_proof_signature = $10
		WHERE id = $1 AND received IS NULL AND (price IS NULL OR price = $2)`,
		id, params.Price, time.Now().Unix(),
		params.SenderPaymentProofAddress, params.KernelCommitment,
		params.SenderPublicBlindExcess, params.RecipientPartialSignature,
		params.PublicNonceSum, params.KernelData, params.RecipientPaymentProofSignature)
	if err != nil {
		if isUniqueViolation(err) {
			return errkind.New(errkind.Conflict, "kernel commitment already recorded: %s", params.KernelCommitment)
		}
		return errkind.Wrap(err, errkind.Fatal)
	}
	return requireRowsAffected(res, id)
}

// SetPaymentConfirmed implements spec.md section 4.G's set_payment_confirmed
// contract: completing the row when confirmations >= required, clearing
// confirmed_height when confirmations == 0.
func (s *Store) SetPaymentConfirmed(id uint64, confirmations uint32, confirmedHeight uint64) error {
	var confirmedHeightArg interface{}
	if confirmations == 0 {
		confirmedHeightArg = nil
	} else {
		confirmedHeightArg = confirmedHeight
	}

	res, err := s.db.Exec(`
		UPDATE payments SET
			confirmed_callback_acknowledged = CASE WHEN $2 > confirmations
				THEN FALSE ELSE confirmed_callback_acknowledged END,
			confirmations = $2,
			confirmed_height = $3,
			completed = CASE WHEN $2 >= required_confirmations AND received IS NOT NULL
				THEN $4 ELSE completed END
		WHERE id = $1 AND completed IS NULL`,
		id, confirmations, confirmedHeightArg, time.Now().Unix())
	if err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return requireRowsAffected(res, id)
}

func (s *Store) ReorgIncompletePayments(reorgHeight uint64) error {
	_, err := s.db.Exec(`
		UPDATE payments SET confirmations = 0, confirmed_height = NULL
		WHERE completed IS NULL AND confirmed_height IS NOT NULL AND confirmed_height >= $1`,
		reorgHeight)
	return errkind.Wrap(err, errkind.Fatal)
}

func (s *Store) MarkCompletedCallbackSuccessful(id uint64) error {
	res, err := s.db.Exec(`UPDATE payments SET completed_callback_successful = TRUE WHERE id = $1`, id)
	if err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return requireRowsAffected(res, id)
}

func (s *Store) MarkConfirmedCallbackAcknowledged(id uint64) error {
	res, err := s.db.Exec(`UPDATE payments SET confirmed_callback_acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return requireRowsAffected(res, id)
}

func (s *Store) MarkExpiredCallbackSuccessful(id uint64) error {
	res, err := s.db.Exec(`UPDATE payments SET expired_callback_successful = TRUE WHERE id = $1`, id)
	if err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	return requireRowsAffected(res, id)
}

func requireRowsAffected(res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errkind.Wrap(err, errkind.Fatal)
	}
	if n == 0 {
		return errkind.New(errkind.InvariantViolation, "payment %s did not satisfy the expected prior state", fmt.Sprint(id))
	}
	return nil
}

var _ paystore.Store = (*Store)(nil)
