package wallet

import (
	"crypto/ed25519"

	"github.com/mwc-pay/mwcpayd/addrenc"
	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/errkind"
)

// addressChild derives the payment-proof subtree's child extended key for
// invoice index i: addrMaster = switch-blind(root, 713) run through
// HMAC-SHA-512(key="Grinbox_seed", ...), then BIP32-derive(addrMaster,
// [i_hi, i_lo]). This is a distinct subtree from the per-payment
// identifier_path blinding-factor derivation, so every invoice gets its
// own Tor/MQS payment-proof address rather than the wallet sharing one
// (spec.md section 3).
func (w *Wallet) addressChild(i uint64) (ecc.ExtendedKey, error) {
	master, err := ecc.AddressMasterKey(w.root.Scalar)
	if err != nil {
		return ecc.ExtendedKey{}, errkind.Wrap(err, errkind.Crypto)
	}
	defer master.Zeroize()

	child, err := ecc.DerivePath(master, ecc.AddressPath(i))
	if err != nil {
		return ecc.ExtendedKey{}, errkind.Wrap(err, errkind.Crypto)
	}
	return child, nil
}

// TorPaymentProofAddress returns invoice i's Tor-style payment-proof
// address: the lowercase base32 encoding of an Ed25519 public key derived
// directly (unclamped) from the address subtree's child scalar, matching
// Grin's onion service address convention (spec.md section 4.D).
func (w *Wallet) TorPaymentProofAddress(i uint64) (string, error) {
	_, pub, err := w.torKeyPair(i)
	if err != nil {
		return "", err
	}
	return addrenc.EncodeBase32(pub), nil
}

// TorPublicKey returns the raw Ed25519 public key backing invoice i's Tor
// payment-proof address, for callers that need the point itself rather
// than its base32 address encoding (e.g. the slate package's
// "sender/recipient proof keys are equal" convention check, and
// slatepack's sender-authenticated encryption).
func (w *Wallet) TorPublicKey(i uint64) (ed25519.PublicKey, error) {
	_, pub, err := w.torKeyPair(i)
	return pub, err
}

func (w *Wallet) torKeyPair(i uint64) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	child, err := w.addressChild(i)
	if err != nil {
		return nil, nil, err
	}
	defer child.Zeroize()

	priv, pub := ecc.Ed25519KeyPair(child.Scalar)
	return priv, pub, nil
}

// SignTorPaymentProof signs msg (the kernel-excess-derived payment proof
// message, spec.md section 4.E step 8) with invoice i's Tor identity key.
func (w *Wallet) SignTorPaymentProof(i uint64, msg []byte) ([]byte, error) {
	priv, _, err := w.torKeyPair(i)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, msg), nil
}

// VerifyTorPaymentProof verifies a payment proof signature produced by
// SignTorPaymentProof against a counterparty's base32 Tor address.
func VerifyTorPaymentProof(address string, msg, sig []byte) (bool, error) {
	pub, err := addrenc.DecodeBase32(address)
	if err != nil {
		return false, errkind.Wrap(err, errkind.InvalidInput)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, errkind.New(errkind.InvalidInput, "not an ed25519 tor address: %s", address)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
}

// MqsPaymentProofAddress returns invoice i's MQS (MWC QR/address scheme)
// payment-proof address: a base58check-encoded secp256k1 public key,
// Bitcoin-address-style, derived from the same address-subtree scalar as
// the Tor address (spec.md section 4.D).
func (w *Wallet) MqsPaymentProofAddress(i uint64) (string, error) {
	pub, err := w.mqsPublicKey(i)
	if err != nil {
		return "", err
	}
	return addrenc.EncodeBase58Checksum(pub[:]), nil
}

func (w *Wallet) mqsScalar(i uint64) (ecc.Scalar, error) {
	child, err := w.addressChild(i)
	if err != nil {
		return ecc.Scalar{}, err
	}
	return child.Scalar, nil
}

func (w *Wallet) mqsPublicKey(i uint64) (ecc.Point, error) {
	s, err := w.mqsScalar(i)
	if err != nil {
		return ecc.Point{}, err
	}
	return ecc.ScalarBaseMult(s), nil
}

// SignMqsPaymentProof DER-signs msg with invoice i's MQS key, for
// counterparties that speak the legacy ECDSA payment-proof scheme rather
// than the Tor/Ed25519 one.
func (w *Wallet) SignMqsPaymentProof(i uint64, msg []byte) ([]byte, error) {
	s, err := w.mqsScalar(i)
	if err != nil {
		return nil, err
	}
	sig, err := ecc.MqsSignDER(s, msg)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	return sig, nil
}

// VerifyMqsPaymentProof verifies a DER signature against a base58check
// MQS address.
func VerifyMqsPaymentProof(address string, msg, sig []byte) (bool, error) {
	raw, err := addrenc.DecodeBase58Checksum(address)
	if err != nil {
		return false, errkind.Wrap(err, errkind.InvalidInput)
	}
	pub, err := ecc.NewPoint(raw)
	if err != nil {
		return false, errkind.Wrap(err, errkind.InvalidInput)
	}
	ok, err := ecc.MqsVerifyDER(pub, sig, msg)
	if err != nil {
		return false, errkind.Wrap(err, errkind.Crypto)
	}
	return ok, nil
}
