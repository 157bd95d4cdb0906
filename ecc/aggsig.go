package ecc

import (
	"crypto/sha256"
)

// PartialSignature is the 64-byte wire form of one participant's share of a
// two-party aggregate (single-signer, BIP-340-style Schnorr) signature:
// the shared aggregate nonce's x-coordinate followed by the signer's
// scalar share (spec.md section 3 / 4.C). Because every participant signs
// against the same aggregate nonce, the R half of every partial and of the
// combined signature is identical; only the s half differs.
type PartialSignature [64]byte

func (p PartialSignature) rX() [32]byte {
	var x [32]byte
	copy(x[:], p[:32])
	return x
}

func (p PartialSignature) s() Scalar {
	var s Scalar
	copy(s[:], p[32:])
	return s
}

func newPartialSignature(nonceSum Point, s Scalar) PartialSignature {
	var p PartialSignature
	copy(p[:32], nonceSum[1:]) // x-coordinate only, per BIP-340 convention
	copy(p[32:], s[:])
	return p
}

// challenge computes e = H(R_x || P || m) reduced to a valid scalar, the
// Schnorr-style challenge shared by every participant's partial signature
// and the final combined signature.
func challenge(nonceSum, pubSum Point, msgHash [32]byte) (Scalar, error) {
	h := sha256.New()
	h.Write(nonceSum[1:])
	h.Write(pubSum[:])
	h.Write(msgHash[:])
	digest := h.Sum(nil)

	// A challenge hash landing on zero or >= n is vanishingly unlikely;
	// fail rather than silently reduce it to something else.
	return NewScalar(digest)
}

// PartialSign computes this participant's share of the aggregate
// signature over msgHash (spec.md section 4.C):
//
//	s_i = k_i + e * x_i  (mod n),  e = H(nonceSum || pubSum || msgHash)
func PartialSign(priv, privNonce Scalar, pubSum, nonceSum Point, msgHash [32]byte) (PartialSignature, error) {
	e, err := challenge(nonceSum, pubSum, msgHash)
	if err != nil {
		return PartialSignature{}, err
	}

	ex := scalarMultMod(e, priv)
	s, err := privNonce.Add(ex)
	if err != nil {
		return PartialSignature{}, err
	}

	return newPartialSignature(nonceSum, s), nil
}

// VerifyPartial checks that partial is a valid share for pub against the
// forced aggregate nonce nonceSum and aggregate public key pubSum
// (spec.md section 4.C): s_i*G == nonceSum + e*pub.
func VerifyPartial(partial PartialSignature, pub, nonceSum, pubSum Point, msgHash [32]byte) bool {
	e, err := challenge(nonceSum, pubSum, msgHash)
	if err != nil {
		return false
	}

	lhs := ScalarBaseMult(partial.s())

	ePub := scalarMult(e, pub)
	rhs, err := Add(nonceSum, ePub)
	if err != nil {
		return false
	}

	return lhs == rhs
}

// SubtractPartial recovers the counterparty's partial signature from a
// complete kernel signature and this participant's own partial
// (spec.md section 4.C). Because the combined signature only carries the
// x-coordinate of the shared nonce, the sign convention used when summing
// s-values is ambiguous from the outside; both candidates must be tried
// with VerifyPartial against the counterparty's public key.
func SubtractPartial(complete, own PartialSignature) (candidate1, candidate2 PartialSignature, err error) {
	diff, err := complete.s().Sub(own.s())
	if err != nil {
		return PartialSignature{}, PartialSignature{}, err
	}
	negDiff, err := diff.Negate()
	if err != nil {
		return PartialSignature{}, PartialSignature{}, err
	}

	nonceSum := complete.nonceSumPoint()
	return newPartialSignature(nonceSum, diff),
		newPartialSignature(nonceSum, negDiff),
		nil
}

// nonceSumPoint reconstructs a Point from the partial signature's stored
// x-coordinate, assuming the conventional even-y compression prefix (the
// sign ambiguity this introduces is exactly what SubtractPartial's two
// candidates account for).
func (p PartialSignature) nonceSumPoint() Point {
	var pt Point
	pt[0] = 0x02
	copy(pt[1:], p[:32])
	return pt
}

// Combine sums partial signatures' s-values into the complete 64-byte
// kernel signature, sharing their common aggregate nonce.
func Combine(nonceSum Point, partials ...PartialSignature) (PartialSignature, error) {
	if len(partials) == 0 {
		return PartialSignature{}, ErrInvalidScalar{}
	}
	total := partials[0].s()
	var err error
	for _, p := range partials[1:] {
		total, err = total.Add(p.s())
		if err != nil {
			return PartialSignature{}, err
		}
	}
	return newPartialSignature(nonceSum, total), nil
}

// scalarMultMod returns (a*b) mod n as a Scalar.
func scalarMultMod(a, b Scalar) Scalar {
	// Re-expressed via big.Int to stay independent of point
	// representation; kept local to avoid exporting a raw multiply
	// that callers might mistake for point scalar-mult.
	return scalarMultModBig(a, b)
}
