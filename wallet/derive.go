package wallet

import (
	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/errkind"
)

// Wallet is the long-lived holder of a decrypted root extended key,
// mirroring the teacher's lnwallet.LightningWallet split between a
// long-lived signer and short-lived per-call derivations. Every method
// derives a fresh child key for its identifier_path rather than caching
// derived material, so Close need only zeroize the one root key.
type Wallet struct {
	root ecc.ExtendedKey
}

// Open constructs a Wallet around an already-decrypted root extended key.
// Callers obtain root via DecryptSeed + ecc.RootExtendedKey.
func Open(root ecc.ExtendedKey) *Wallet {
	return &Wallet{root: root}
}

// Close zeroizes the in-memory root key. The Wallet must not be used
// afterward.
func (w *Wallet) Close() {
	w.root.Zeroize()
}

func (w *Wallet) deriveChild(identifierPath uint64) (ecc.ExtendedKey, error) {
	path := ecc.IdentifierPath(identifierPath)
	child, err := ecc.DerivePath(w.root, path)
	if err != nil {
		return ecc.ExtendedKey{}, errkind.Wrap(err, errkind.Crypto)
	}
	return child, nil
}

// BlindingFactor returns the switch-commitment blinding factor for a
// payment's identifier_path and value, per spec.md section 4.D /
// section 8's switch commitment construction.
func (w *Wallet) BlindingFactor(identifierPath uint64, value uint64) (ecc.Scalar, error) {
	child, err := w.deriveChild(identifierPath)
	if err != nil {
		return ecc.Scalar{}, err
	}
	defer child.Zeroize()

	switched, err := ecc.SwitchBlind(child.Scalar, value)
	if err != nil {
		return ecc.Scalar{}, errkind.Wrap(err, errkind.Crypto)
	}
	return switched, nil
}

// Commitment returns the Pedersen commitment to value under the switch
// blinding factor derived for identifierPath.
func (w *Wallet) Commitment(identifierPath uint64, value uint64) (ecc.Commitment, error) {
	blind, err := w.BlindingFactor(identifierPath, value)
	if err != nil {
		return ecc.Commitment{}, err
	}
	defer blind.Zeroize()

	commit, err := ecc.Commit(blind, value)
	if err != nil {
		return ecc.Commitment{}, errkind.Wrap(err, errkind.Crypto)
	}
	return commit, nil
}

// Bulletproof derives the rewind/private nonces for identifierPath and
// generates the rangeproof envelope (spec.md section 4.D, section 9).
func (w *Wallet) Bulletproof(identifierPath uint64, value uint64) ([ecc.BulletproofSize]byte, error) {
	child, err := w.deriveChild(identifierPath)
	if err != nil {
		return [ecc.BulletproofSize]byte{}, err
	}
	defer child.Zeroize()

	blind, err := ecc.SwitchBlind(child.Scalar, value)
	if err != nil {
		return [ecc.BulletproofSize]byte{}, errkind.Wrap(err, errkind.Crypto)
	}
	defer blind.Zeroize()

	commit, err := ecc.Commit(blind, value)
	if err != nil {
		return [ecc.BulletproofSize]byte{}, errkind.Wrap(err, errkind.Crypto)
	}

	rootPub := ecc.ScalarBaseMult(w.root.Scalar)
	rewindNonce, err := ecc.RewindNonce(commit, rootPub)
	if err != nil {
		return [ecc.BulletproofSize]byte{}, errkind.Wrap(err, errkind.Crypto)
	}
	privateNonce, err := ecc.PrivateNonce(commit, w.root.Scalar)
	if err != nil {
		return [ecc.BulletproofSize]byte{}, errkind.Wrap(err, errkind.Crypto)
	}

	message := ecc.BulletproofMessage(ecc.IdentifierPath(identifierPath))
	return ecc.Bulletproof(value, blind, rewindNonce, privateNonce, message)
}

// RootPublicKey returns the public key corresponding to the root
// extended key's scalar, used only by mwcpayd's --root_public_key
// diagnostic flag (spec.md section 4.D's expansion).
func (w *Wallet) RootPublicKey() ecc.Point {
	return ecc.ScalarBaseMult(w.root.Scalar)
}
