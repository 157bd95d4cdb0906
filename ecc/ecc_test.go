package ecc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarAddSubRoundTrip(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)

	back, err := sum.Sub(b)
	require.NoError(t, err)
	require.Equal(t, a, back)
}

func TestGeneratorsAreDistinctFixedPoints(t *testing.T) {
	require.NotEqual(t, GeneratorG, GeneratorH)
	require.NotEqual(t, GeneratorG, GeneratorJ)
	require.NotEqual(t, GeneratorH, GeneratorJ)

	// The generators are published constants, not session-random values:
	// they must come out the same on every run.
	require.Equal(t, byte(0x02), GeneratorH[0])
	require.Equal(t, byte(0x50), GeneratorH[1], "generator_h's x-coordinate must match secp256k1-zkp's canonical constant")
	require.Equal(t, byte(0x02), GeneratorJ[0])
	require.Equal(t, byte(0x5F), GeneratorJ[1], "GeneratorJ's x-coordinate must match crypto.cpp's GENERATOR_J constant")
}

func TestSwitchBlindDeterministic(t *testing.T) {
	seed, err := NewScalar(mustBytes(32, 7))
	require.NoError(t, err)

	b1, err := SwitchBlind(seed, 1_000)
	require.NoError(t, err)
	b2, err := SwitchBlind(seed, 1_000)
	require.NoError(t, err)
	require.Equal(t, b1, b2, "same inputs must yield byte-identical switch blind")

	other, err := NewScalar(mustBytes(32, 8))
	require.NoError(t, err)
	b3, err := SwitchBlind(other, 1_000)
	require.NoError(t, err)
	require.NotEqual(t, b1, b3, "changing the blind must change the switch blind")

	b4, err := SwitchBlind(seed, 1_001)
	require.NoError(t, err)
	require.NotEqual(t, b1, b4, "changing the value must change the switch blind")
}

func TestCommitDeterministic(t *testing.T) {
	blind, err := RandomScalar()
	require.NoError(t, err)

	c1, err := Commit(blind, 42)
	require.NoError(t, err)
	c2, err := Commit(blind, 42)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
}

func TestAggSigPartialRoundTrip(t *testing.T) {
	privA, err := RandomScalar()
	require.NoError(t, err)
	privB, err := RandomScalar()
	require.NoError(t, err)
	nonceA, err := RandomScalar()
	require.NoError(t, err)
	nonceB, err := RandomScalar()
	require.NoError(t, err)

	pubA := ScalarBaseMult(privA)
	pubB := ScalarBaseMult(privB)
	nonceSumPub, err := Add(ScalarBaseMult(nonceA), ScalarBaseMult(nonceB))
	require.NoError(t, err)
	pubSum, err := Add(pubA, pubB)
	require.NoError(t, err)

	var msgHash [32]byte
	copy(msgHash[:], []byte("kernel-data-hash-placeholder-32"))

	partialA, err := PartialSign(privA, nonceA, pubSum, nonceSumPub, msgHash)
	require.NoError(t, err)
	require.True(t, VerifyPartial(partialA, pubA, nonceSumPub, pubSum, msgHash))

	partialB, err := PartialSign(privB, nonceB, pubSum, nonceSumPub, msgHash)
	require.NoError(t, err)

	complete, err := Combine(nonceSumPub, partialA, partialB)
	require.NoError(t, err)

	cand1, cand2, err := SubtractPartial(complete, partialA)
	require.NoError(t, err)

	okCand1 := VerifyPartial(cand1, pubB, nonceSumPub, pubSum, msgHash)
	okCand2 := VerifyPartial(cand2, pubB, nonceSumPub, pubSum, msgHash)
	require.True(t, okCand1 || okCand2, "one of the two recovered candidates must verify")
}

func TestBulletproofDeterministic(t *testing.T) {
	blind, err := RandomScalar()
	require.NoError(t, err)
	commitment, err := Commit(blind, 500)
	require.NoError(t, err)
	rootPub := ScalarBaseMult(blind)

	rewind, err := RewindNonce(commitment, rootPub)
	require.NoError(t, err)
	priv, err := PrivateNonce(commitment, blind)
	require.NoError(t, err)

	msg := BulletproofMessage([]uint32{0, 1, 0, 0})

	p1, err := Bulletproof(500, blind, rewind, priv, msg)
	require.NoError(t, err)
	p2, err := Bulletproof(500, blind, rewind, priv, msg)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	require.Len(t, p1, BulletproofSize)
}

func mustBytes(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}
