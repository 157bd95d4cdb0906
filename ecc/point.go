package ecc

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Point is a 33-byte compressed secp256k1 public point.
type Point [33]byte

// ErrInvalidPoint is returned when a candidate compressed point does not
// decode to a point on the curve.
type ErrInvalidPoint struct{}

func (ErrInvalidPoint) Error() string { return "ecc: invalid point" }

// parsePubKey decodes a Point into the library's native public-key type
// for use with signature verification routines.
func parsePubKey(p Point) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(p[:])
}

// NewPoint validates raw as a compressed secp256k1 point.
func NewPoint(raw []byte) (Point, error) {
	var p Point
	if len(raw) != 33 {
		return p, ErrInvalidPoint{}
	}
	if _, err := secp256k1.ParsePubKey(raw); err != nil {
		return p, ErrInvalidPoint{}
	}
	copy(p[:], raw)
	return p, nil
}

// ScalarBaseMult returns s*G, the generator-point multiple of s.
func ScalarBaseMult(s Scalar) Point {
	pub := s.privKey().PubKey()
	var p Point
	copy(p[:], pub.SerializeCompressed())
	return p
}

// Add returns the curve-point sum p1 + p2.
func Add(p1, p2 Point) (Point, error) {
	pt1, err := secp256k1.ParsePubKey(p1[:])
	if err != nil {
		return Point{}, ErrInvalidPoint{}
	}
	pt2, err := secp256k1.ParsePubKey(p2[:])
	if err != nil {
		return Point{}, ErrInvalidPoint{}
	}

	var sum secp256k1.JacobianPoint
	var j1, j2 secp256k1.JacobianPoint
	pt1.AsJacobian(&j1)
	pt2.AsJacobian(&j2)
	secp256k1.AddNonConst(&j1, &j2, &sum)
	sum.ToAffine()

	resultPub := secp256k1.NewPublicKey(&sum.X, &sum.Y)
	var out Point
	copy(out[:], resultPub.SerializeCompressed())
	return out, nil
}

// Sum folds a non-empty slice of points with Add, returning the combined
// point — used to build pubBlindExcessSum / pubNonceSum for aggregate
// signing (spec.md section 4.E step 6).
func Sum(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrInvalidPoint{}
	}
	acc := points[0]
	var err error
	for _, p := range points[1:] {
		acc, err = Add(acc, p)
		if err != nil {
			return Point{}, err
		}
	}
	return acc, nil
}

// Negate returns -p (the point with the same x-coordinate and negated y).
func Negate(p Point) (Point, error) {
	pt, err := secp256k1.ParsePubKey(p[:])
	if err != nil {
		return Point{}, ErrInvalidPoint{}
	}
	var jp secp256k1.JacobianPoint
	pt.AsJacobian(&jp)
	jp.Y.Negate(1)
	jp.Y.Normalize()
	jp.ToAffine()
	negPub := secp256k1.NewPublicKey(&jp.X, &jp.Y)

	var out Point
	copy(out[:], negPub.SerializeCompressed())
	return out, nil
}
