package ecc

import (
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"math/big"

	"golang.org/x/crypto/curve25519"
)

// ErrZeroSharedKey is returned by X25519Shared when the computed shared
// secret is all-zero, a degenerate case that must be rejected rather than
// used as an encryption key (spec.md section 4.D).
var ErrZeroSharedKey = errors.New("ecc: x25519 shared key is all-zero")

// Ed25519KeyPair derives an Ed25519 key pair directly from a 32-byte
// scalar, treated as the private key "directly, not clamped-hashed" per
// spec.md section 3's payment-proof key description.
func Ed25519KeyPair(scalar Scalar) (ed25519.PrivateKey, ed25519.PublicKey) {
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, scalar[:])
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return priv, pub
}

// x25519Clamp applies the standard X25519 scalar clamp.
func x25519Clamp(in []byte) [32]byte {
	var out [32]byte
	copy(out[:], in)
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return out
}

// X25519PrivateFromEd25519 derives the Curve25519 private scalar from an
// Ed25519 private key via the standard clamp of SHA512(priv)[:32]
// (spec.md section 4.C).
func X25519PrivateFromEd25519(edPriv ed25519.PrivateKey) [32]byte {
	seed := edPriv.Seed()
	digest := sha512.Sum512(seed)
	return x25519Clamp(digest[:32])
}

// edwardsYFromPublicKey extracts the Edwards y-coordinate (as a big.Int
// modulo 2^255-19) from a compressed Ed25519 public key: the standard
// encoding stores y in the low 255 bits with the sign of x in the top bit.
func edwardsYFromPublicKey(pub ed25519.PublicKey) *big.Int {
	b := make([]byte, 32)
	copy(b, pub)
	b[31] &= 0x7f

	// Ed25519 public keys are little-endian.
	y := new(big.Int)
	for i := 31; i >= 0; i-- {
		y.Lsh(y, 8)
		y.Or(y, big.NewInt(int64(b[i])))
	}
	return y
}

// fieldPrime is 2^255 - 19.
var fieldPrime = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))

// X25519PublicFromEd25519 obtains the Curve25519 public key from an
// Ed25519 public key's y-coordinate via the birational map
// u = (1+y)/(1-y) mod (2^255-19) (spec.md section 4.C).
func X25519PublicFromEd25519(pub ed25519.PublicKey) ([32]byte, error) {
	y := edwardsYFromPublicKey(pub)

	num := new(big.Int).Add(big.NewInt(1), y)
	num.Mod(num, fieldPrime)

	den := new(big.Int).Sub(big.NewInt(1), y)
	den.Mod(den, fieldPrime)

	denInv := new(big.Int).ModInverse(den, fieldPrime)
	if denInv == nil {
		return [32]byte{}, errors.New("ecc: non-invertible denominator in birational map")
	}

	u := new(big.Int).Mul(num, denInv)
	u.Mod(u, fieldPrime)

	var out [32]byte
	ub := u.Bytes()
	// Field elements are little-endian on the wire.
	for i, b := range ub {
		out[len(ub)-1-i] = b
	}
	return out, nil
}

// X25519Shared computes the Diffie-Hellman shared secret, rejecting an
// all-zero result (spec.md section 4.D).
func X25519Shared(priv [32]byte, pub [32]byte) ([32]byte, error) {
	var shared [32]byte
	out, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return shared, err
	}
	copy(shared[:], out)

	var zero [32]byte
	if shared == zero {
		return shared, ErrZeroSharedKey
	}
	return shared, nil
}
