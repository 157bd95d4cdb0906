package addrenc

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	base58BigRadix = big.NewInt(58)
	base58Index    = func() map[byte]int64 {
		m := make(map[byte]int64, len(base58Alphabet))
		for i := 0; i < len(base58Alphabet); i++ {
			m[base58Alphabet[i]] = int64(i)
		}
		return m
	}()
)

// ErrInvalidBase58 covers an input character outside the Base58 alphabet.
var ErrInvalidBase58 = fmt.Errorf("addrenc: invalid base58 input")

// ErrChecksumMismatch is returned by DecodeWithChecksum when the trailing
// 4 bytes don't match the recomputed double-SHA256 checksum.
var ErrChecksumMismatch = fmt.Errorf("addrenc: base58 checksum mismatch")

// EncodeBase58 base58-encodes raw, preserving leading zero bytes as
// leading '1' characters per the standard convention (carried from
// original_source/base58.cpp).
func EncodeBase58(raw []byte) string {
	x := new(big.Int).SetBytes(raw)

	var out []byte
	mod := new(big.Int)
	zero := big.NewInt(0)
	for x.Cmp(zero) > 0 {
		x.DivMod(x, base58BigRadix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}

	for _, b := range raw {
		if b != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}
	reverse(out)
	return string(out)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// DecodeBase58 decodes s, rejecting any character outside the alphabet.
func DecodeBase58(s string) ([]byte, error) {
	x := big.NewInt(0)
	for i := 0; i < len(s); i++ {
		v, ok := base58Index[s[i]]
		if !ok {
			return nil, ErrInvalidBase58
		}
		x.Mul(x, base58BigRadix)
		x.Add(x, big.NewInt(v))
	}

	decoded := x.Bytes()

	var leadingZeros int
	for i := 0; i < len(s) && s[i] == base58Alphabet[0]; i++ {
		leadingZeros++
	}

	out := make([]byte, leadingZeros+len(decoded))
	copy(out[leadingZeros:], decoded)
	return out, nil
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// EncodeBase58Checksum appends the first 4 bytes of SHA256(SHA256(raw))
// before Base58-encoding (spec.md section 4.B).
func EncodeBase58Checksum(raw []byte) string {
	checksum := doubleSHA256(raw)
	payload := make([]byte, len(raw)+4)
	copy(payload, raw)
	copy(payload[len(raw):], checksum[:4])
	return EncodeBase58(payload)
}

// DecodeBase58Checksum decodes s and verifies its trailing 4-byte
// checksum, returning ErrChecksumMismatch if it fails to recompute.
func DecodeBase58Checksum(s string) ([]byte, error) {
	decoded, err := DecodeBase58(s)
	if err != nil {
		return nil, err
	}
	if len(decoded) < 4 {
		return nil, ErrChecksumMismatch
	}

	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]

	recomputed := doubleSHA256(payload)
	for i := 0; i < 4; i++ {
		if checksum[i] != recomputed[i] {
			return nil, ErrChecksumMismatch
		}
	}
	return payload, nil
}
