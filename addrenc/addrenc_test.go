package addrenc

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase32RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 5, 16, 33, 100} {
		raw := randBytes(t, n)
		encoded := EncodeBase32(raw)
		decoded, err := DecodeBase32(encoded)
		require.NoError(t, err)
		require.True(t, bytes.Equal(raw, decoded))
	}
}

func TestBase32RejectsBadAlphabet(t *testing.T) {
	_, err := DecodeBase32("0189!!")
	require.Error(t, err)
}

func TestBase58ChecksumRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 20, 64} {
		raw := randBytes(t, n)
		encoded := EncodeBase58Checksum(raw)
		decoded, err := DecodeBase58Checksum(encoded)
		require.NoError(t, err)
		require.True(t, bytes.Equal(raw, decoded))
	}
}

func TestBase58ChecksumRejectsCorruption(t *testing.T) {
	raw := randBytes(t, 20)
	encoded := EncodeBase58Checksum(raw)
	corrupted := "1" + encoded[1:]
	if corrupted == encoded {
		corrupted = encoded + "1"
	}
	_, err := DecodeBase58Checksum(corrupted)
	require.Error(t, err)
}

func TestBase64RoundTrip(t *testing.T) {
	raw := randBytes(t, 37)
	encoded := EncodeBase64(raw)
	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	require.True(t, bytes.Equal(raw, decoded))
}

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
