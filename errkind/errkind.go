// Package errkind classifies errors raised anywhere in mwcpayd into the
// fixed set of kinds the daemon's callers (JSON-RPC handlers, the
// supervisor, the callback driver) need to react to differently.
//
// A kind is attached with Wrap and recovered with Is; the original error is
// preserved as the cause via github.com/go-errors/errors so a diagnostic
// stack trace survives the trip from a deeply nested crypto or storage
// routine up to the HTTP handler that logs it.
package errkind

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind tags an error with the high-level category from which the caller
// decides how to respond: retry, surface to the wallet, or shut the
// daemon down.
type Kind int

const (
	// InvalidInput covers parse and validation failures: malformed
	// slates, bad compressed integers, addresses that fail a checksum.
	InvalidInput Kind = iota

	// AuthFailed covers a wrong wallet password.
	AuthFailed

	// Crypto covers a zero scalar, an invalid point, or a signature that
	// fails to verify.
	Crypto

	// Conflict covers a unique-index violation or a price mismatch.
	Conflict

	// NotFound covers a missing row or unknown JSON-RPC method.
	NotFound

	// InvariantViolation covers a declared payment-store invariant
	// (spec.md section 3) failing inside a transaction. It should never
	// happen; seeing one terminates the supervisor.
	InvariantViolation

	// Transient covers network and timeout failures that are safe to
	// retry: webhook delivery, oracle polling.
	Transient

	// Fatal covers storage corruption and observer inconsistency. The
	// daemon must not keep running with a half-applied chain view.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case AuthFailed:
		return "auth_failed"
	case Crypto:
		return "crypto"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case InvariantViolation:
		return "invariant_violation"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// kindError pairs a Kind with its cause. Cause is kept as an
// *goerrors.Error so a stack trace is available to diagnostics without
// ever being printed to an end user (spec.md section 4.D: a failed wallet
// decrypt must never print a backtrace).
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *kindError) Unwrap() error {
	return e.cause
}

// Wrap attaches kind to err, capturing a stack trace for err if it doesn't
// already carry one. Wrap(nil, ...) returns nil.
func Wrap(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*goerrors.Error); !ok {
		err = goerrors.Wrap(err, 1)
	}
	return &kindError{kind: kind, cause: err}
}

// New builds a fresh error of the given kind from a format string.
func New(kind Kind, format string, args ...interface{}) error {
	return Wrap(fmt.Errorf(format, args...), kind)
}

// Is reports whether err (or anything it wraps) was tagged with kind.
func Is(err error, kind Kind) bool {
	var ke *kindError
	for errors.As(err, &ke) {
		if ke.kind == kind {
			return true
		}
		err = errors.Unwrap(ke)
	}
	return false
}

// KindOf extracts the attached Kind, defaulting to Fatal for an untagged
// error — an error escaping every kind-aware layer is itself a bug we'd
// rather fail closed on than silently treat as transient.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Fatal
}

// StackTrace renders the diagnostic trace for logging, never for a
// user-facing message.
func StackTrace(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		if ge, ok := ke.cause.(*goerrors.Error); ok {
			return ge.ErrorStack()
		}
	}
	return err.Error()
}
