// Package tlsutil manages the self-signed TLS certificates the private
// and public APIs listen behind when an operator doesn't supply their
// own (spec.md section 6's `--private_certificate`/`--public_certificate`
// pair, and their public-API equivalents). Thin wrapper around
// github.com/lightningnetwork/lnd/cert, the same library the teacher
// uses to generate lnd's own rpc.cert/rpc.key pair.
package tlsutil

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/lightningnetwork/lnd/cert"

	"github.com/mwc-pay/mwcpayd/errkind"
)

// certValidityDuration mirrors lnd's own default autogenerated-cert
// lifetime.
const certValidityDuration = 14 * 30 * 24 * time.Hour

// EnsureCert loads certPath/keyPath if both exist, or else generates a
// fresh self-signed certificate covering host (and "localhost") and
// writes it to certPath/keyPath before loading it.
func EnsureCert(certPath, keyPath, host string) (tls.Certificate, error) {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	if certErr == nil && keyErr == nil {
		tlsCert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return tls.Certificate{}, errkind.Wrap(err, errkind.Fatal)
		}
		return tlsCert, nil
	}

	certBytes, keyBytes, err := cert.GenCertPair(
		"mwcpayd autogenerated cert",
		[]string{host, "localhost"},
		nil,
		false,
		certValidityDuration,
	)
	if err != nil {
		return tls.Certificate{}, errkind.Wrap(err, errkind.Fatal)
	}

	if err := os.WriteFile(certPath, certBytes, 0600); err != nil {
		return tls.Certificate{}, errkind.Wrap(err, errkind.Fatal)
	}
	if err := os.WriteFile(keyPath, keyBytes, 0600); err != nil {
		return tls.Certificate{}, errkind.Wrap(err, errkind.Fatal)
	}

	tlsCert, err := tls.X509KeyPair(certBytes, keyBytes)
	if err != nil {
		return tls.Certificate{}, errkind.Wrap(err, errkind.Fatal)
	}
	return tlsCert, nil
}
