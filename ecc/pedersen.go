package ecc

import (
	"crypto/sha256"
	"encoding/binary"
)

// Commitment is a 33-byte compressed Pedersen commitment C = b*G + v*H.
type Commitment [33]byte

// Commit computes the Pedersen commitment to value under blinding factor
// blind (spec.md section 3).
func Commit(blind Scalar, value uint64) (Commitment, error) {
	vScalar, err := scalarFromUint64(value)
	if err != nil {
		return Commitment{}, err
	}
	p, err := MulAdd(blind, GeneratorG, vScalar, GeneratorH)
	if err != nil {
		return Commitment{}, err
	}
	var c Commitment
	copy(c[:], p[:])
	return c, nil
}

func scalarFromUint64(v uint64) (Scalar, error) {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], v)
	if v == 0 {
		// A zero value is a legitimate committed amount (e.g. the
		// switch-commitment adjustment's "committed-value=0" case
		// does not occur in this spec, but scalarFromUint64 must
		// stay total); represent it as the all-zero scalar without
		// routing through NewScalar's non-zero check.
		return Scalar(buf), nil
	}
	return NewScalar(buf[:])
}

// SwitchBlind computes the switch-commitment blinding factor for a raw
// blinding factor b and committed value v (spec.md section 3):
//
//	b' = b + SHA256( commit(b*G + v*H) || (b*J) )  (mod n)
func SwitchBlind(b Scalar, value uint64) (Scalar, error) {
	commitment, err := Commit(b, value)
	if err != nil {
		return Scalar{}, err
	}

	bJ := scalarMult(b, GeneratorJ)

	h := sha256.New()
	h.Write(commitment[:])
	h.Write(bJ[:])
	adjustment := h.Sum(nil)

	adjScalar, err := NewScalar(adjustment)
	if err != nil {
		return Scalar{}, err
	}

	return b.Add(adjScalar)
}
