// mqs.go implements the secp256k1 ECDSA-DER signing mwcpayd uses for the
// MQS (Mimblewimble QR Service) payment-proof analogue to the Tor/Ed25519
// payment-proof scheme (spec.md section 4.D).
package ecc

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// MqsSignDER signs SHA-256(msg) with priv and returns the DER-encoded
// ECDSA signature (spec.md section 4.D, "mqs_* analogues use secp256k1
// ECDSA-DER with SHA-256").
func MqsSignDER(priv Scalar, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig := ecdsa.Sign(priv.privKey(), digest[:])
	return sig.Serialize(), nil
}

// MqsVerifyDER verifies a DER-encoded ECDSA signature against pub over
// SHA-256(msg).
func MqsVerifyDER(pub Point, sig, msg []byte) (bool, error) {
	parsedSig, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, err
	}
	parsedPub, err := parsePubKey(pub)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(msg)
	return parsedSig.Verify(digest[:], parsedPub), nil
}
