package ecc

import "crypto/sha256"

// Schnorr64 is a standalone (non-aggregate) 64-byte Schnorr-style
// signature: R's x-coordinate followed by s. Used for the slate
// participant's optional message field (spec.md section 4.E) where a
// single signer, not a two-party aggregate, signs the attached text.
type Schnorr64 [64]byte

// SchnorrSign signs msg with priv, drawing a fresh nonce per call.
func SchnorrSign(priv Scalar, msg []byte) (Schnorr64, error) {
	nonce, err := RandomScalar()
	if err != nil {
		return Schnorr64{}, err
	}
	defer nonce.Zeroize()

	R := ScalarBaseMult(nonce)
	if R[0] == 0x03 {
		// SchnorrVerify rebuilds R from its x-coordinate with the even-y
		// prefix, so sign with whichever of k and -k gives an even-y R.
		nonce, err = nonce.Negate()
		if err != nil {
			return Schnorr64{}, err
		}
		R = ScalarBaseMult(nonce)
	}
	pub := ScalarBaseMult(priv)

	e, err := schnorrChallenge(R, pub, msg)
	if err != nil {
		return Schnorr64{}, err
	}

	ex := scalarMultMod(e, priv)
	s, err := nonce.Add(ex)
	if err != nil {
		return Schnorr64{}, err
	}

	var sig Schnorr64
	copy(sig[:32], R[1:])
	copy(sig[32:], s[:])
	return sig, nil
}

// SchnorrVerify verifies sig against pub over msg.
func SchnorrVerify(sig Schnorr64, pub Point, msg []byte) bool {
	var R Point
	R[0] = 0x02
	copy(R[1:], sig[:32])

	var s Scalar
	copy(s[:], sig[32:])

	e, err := schnorrChallenge(R, pub, msg)
	if err != nil {
		return false
	}

	lhs := ScalarBaseMult(s)
	eP := scalarMult(e, pub)
	rhs, err := Add(R, eP)
	if err != nil {
		return false
	}
	return lhs == rhs
}

func schnorrChallenge(R, pub Point, msg []byte) (Scalar, error) {
	h := sha256.New()
	h.Write(R[1:])
	h.Write(pub[:])
	h.Write(msg)
	return NewScalar(h.Sum(nil))
}
