package ecc

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

// ExtendedKey is a 64-byte root/child extended key: a 32-byte scalar and a
// 32-byte chain code, per spec.md section 3's "Root extended key".
type ExtendedKey struct {
	Scalar    Scalar
	ChainCode [32]byte
}

// Zeroize scrubs both the scalar and the chain code.
func (k *ExtendedKey) Zeroize() {
	k.Scalar.Zeroize()
	for i := range k.ChainCode {
		k.ChainCode[i] = 0
	}
}

// HardenedBit marks a derivation path element as hardened (private
// derivation) per BIP32 convention, reused by spec.md section 3's 4-level
// identifier path even though mwcpayd never sets it.
const HardenedBit = uint32(1) << 31

// RootExtendedKey derives the 64-byte root extended key from the wallet
// seed via HMAC-SHA-512(key="IamVoldemort", msg=seed) (spec.md section 3).
// The ASCII key is load-bearing: it cannot change without breaking
// compatibility with existing wallets (spec.md section 9).
func RootExtendedKey(seed []byte) (ExtendedKey, error) {
	mac := hmac.New(sha512.New, []byte("IamVoldemort"))
	mac.Write(seed)
	digest := mac.Sum(nil)

	scalar, err := NewScalar(digest[:32])
	if err != nil {
		return ExtendedKey{}, err
	}

	var key ExtendedKey
	key.Scalar = scalar
	copy(key.ChainCode[:], digest[32:])
	return key, nil
}

// DeriveChild derives one BIP32-style child of parent along path element p
// (spec.md section 4.C). Hardened derivation hashes the parent's private
// scalar; normal derivation hashes the parent's compressed public point.
// Any invalid intermediate scalar fails the whole derivation — never
// silently retries with p+1.
func DeriveChild(parent ExtendedKey, p uint32) (ExtendedKey, error) {
	mac := hmac.New(sha512.New, parent.ChainCode[:])

	var beP [4]byte
	binary.BigEndian.PutUint32(beP[:], p)

	if p&HardenedBit != 0 {
		mac.Write([]byte{0x00})
		mac.Write(parent.Scalar[:])
		mac.Write(beP[:])
	} else {
		pub := ScalarBaseMult(parent.Scalar)
		mac.Write(pub[:])
		mac.Write(beP[:])
	}

	digest := mac.Sum(nil)

	left, err := NewScalar(digest[:32])
	if err != nil {
		return ExtendedKey{}, err
	}

	childScalar, err := left.Add(parent.Scalar)
	if err != nil {
		return ExtendedKey{}, err
	}

	var child ExtendedKey
	child.Scalar = childScalar
	copy(child.ChainCode[:], digest[32:])
	return child, nil
}

// DerivePath walks DeriveChild across every element of path in order.
func DerivePath(root ExtendedKey, path []uint32) (ExtendedKey, error) {
	current := root
	for _, p := range path {
		next, err := DeriveChild(current, p)
		if err != nil {
			return ExtendedKey{}, err
		}
		current = next
	}
	return current, nil
}

// IdentifierPath builds the non-standard 4-level derivation path
// [i_hi, i_lo, 0, 0] from a 64-bit identifier, with the hardened bit left
// unset so this subtree is disjoint from any standard BIP-44-like wallet
// (spec.md section 3).
func IdentifierPath(i uint64) []uint32 {
	return []uint32{
		uint32(i >> 32),
		uint32(i),
		0,
		0,
	}
}

// AddressPath builds the 2-level derivation path [i_hi, i_lo] used under
// the payment-proof address subtree, one level shallower than
// IdentifierPath since the subtree root already isolates it from the
// blinding-factor derivation (spec.md section 3).
func AddressPath(i uint64) []uint32 {
	return []uint32{
		uint32(i >> 32),
		uint32(i),
	}
}

// AddressMasterKey derives the payment-proof address subtree's root
// extended key from the wallet's root scalar: switch-blind it against a
// fixed committed value of 713 to get addrBlind, then
// HMAC-SHA-512(key="Grinbox_seed", msg=addrBlind) splits into a scalar and
// chain code exactly as RootExtendedKey does for the wallet seed itself
// (spec.md section 3). The 713 constant and "Grinbox_seed" key are
// load-bearing and must not change.
func AddressMasterKey(root Scalar) (ExtendedKey, error) {
	addrBlind, err := SwitchBlind(root, 713)
	if err != nil {
		return ExtendedKey{}, err
	}
	defer addrBlind.Zeroize()

	mac := hmac.New(sha512.New, []byte("Grinbox_seed"))
	mac.Write(addrBlind[:])
	digest := mac.Sum(nil)

	scalar, err := NewScalar(digest[:32])
	if err != nil {
		return ExtendedKey{}, err
	}

	var key ExtendedKey
	key.Scalar = scalar
	copy(key.ChainCode[:], digest[32:])
	return key, nil
}
