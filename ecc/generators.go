package ecc

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// G, H, and J are the three generators the switch-commitment scheme needs
// (spec.md section 3): G is the standard secp256k1 base point (used for
// blinding factors), H hides the committed value in a Pedersen commitment,
// and J is used only to compute the switch-commitment adjustment term.
//
// H and J are fixed, published constants, not values this daemon is free
// to invent: every compatible Grin/MWC wallet and the chain itself verify
// commitments against these exact points (crypto.cpp:97,318,343 thread
// secp256k1_generator_const_h/_g and GENERATOR_J through every
// blind-switch/commit/rangeproof call). A locally-derived "nothing up my
// sleeve" point would be internally consistent but would never match what
// a real wallet or the chain computes for the same blinding factor and
// value, so both are hardcoded below instead of derived.
var (
	GeneratorG Point
	GeneratorH = mustGeneratorPoint(0x02, [32]byte{
		// secp256k1-zkp's canonical generator_h NUMS point, the
		// standard alternate Pedersen-commitment generator used
		// throughout the Confidential-Transactions/Mimblewimble
		// ecosystem.
		0x50, 0x92, 0x9b, 0x74, 0xc1, 0xa0, 0x49, 0x54, 0xb7, 0x8b, 0x4b, 0x60, 0x35, 0xe9, 0x7a, 0x5e,
		0x07, 0x8a, 0x5a, 0x0f, 0x28, 0xec, 0x96, 0xd5, 0x47, 0xbf, 0xee, 0x9a, 0xce, 0x80, 0x3a, 0xc0,
	})
	GeneratorJ = mustGeneratorPoint(0x02, [32]byte{
		// Ported from crypto.cpp:45's GENERATOR_J. That constant is
		// declared as a raw secp256k1_pubkey struct: its on-disk
		// form (secp256k1_pubkey_save, eckey_impl.h) is the point's
		// affine X and Y as two 32-byte big-endian halves with no
		// type-tag byte, so the X half below is exactly the first
		// 32 bytes of crypto.cpp's literal, and the sign prefix
		// follows from the parity of the discarded Y half's low
		// byte (0xA4, even).
		0x5F, 0x15, 0x21, 0x36, 0x93, 0x93, 0x01, 0x2A, 0x8D, 0x8B, 0x39, 0x7E, 0x9B, 0xF4, 0x54, 0x29,
		0x2F, 0x5A, 0x1B, 0x3D, 0x38, 0x85, 0x16, 0xC2, 0xF3, 0x03, 0xFC, 0x95, 0x67, 0xF5, 0x60, 0xB8,
	})
)

func init() {
	var g Point
	copy(g[:], secp256k1.NewPublicKey(secp256k1.S256().Gx, secp256k1.S256().Gy).SerializeCompressed())
	GeneratorG = g
}

// mustGeneratorPoint builds a compressed Point from a sign prefix and
// x-coordinate, panicking if the pair does not decode to a valid curve
// point. This only ever runs at package init against the hardcoded
// generator constants above, so a panic here means one of those literals
// was transcribed wrong.
func mustGeneratorPoint(prefix byte, x [32]byte) Point {
	raw := make([]byte, 33)
	raw[0] = prefix
	copy(raw[1:], x[:])
	p, err := NewPoint(raw)
	if err != nil {
		panic("ecc: invalid hardcoded generator constant: " + err.Error())
	}
	return p
}

// MulAdd computes a*A + b*B for scalars a, b and points A, B — the shape
// every Pedersen-commitment-like computation in this package reduces to.
func MulAdd(a Scalar, A Point, b Scalar, B Point) (Point, error) {
	aA := scalarMult(a, A)
	bB := scalarMult(b, B)
	return Add(aA, bB)
}

func scalarMult(s Scalar, p Point) Point {
	pt, err := secp256k1.ParsePubKey(p[:])
	if err != nil {
		panic(err)
	}
	var jp, result secp256k1.JacobianPoint
	pt.AsJacobian(&jp)

	k := new(secp256k1.ModNScalar)
	k.SetByteSlice(s[:])
	secp256k1.ScalarMultNonConst(k, &jp, &result)
	result.ToAffine()

	resultPub := secp256k1.NewPublicKey(&result.X, &result.Y)
	var out Point
	copy(out[:], resultPub.SerializeCompressed())
	return out
}
