// Package addrenc implements the three text encodings mwcpayd needs for
// addresses and armor (spec.md section 4.B): lowercase RFC 4648 Base32,
// checksummed Base58, and standard Base64. Grounded on the teacher's
// github.com/tv42/zbase32-style onion-address Base32 usage and on
// zpay32's Bech32 "append a checksum, verify on decode" shape, generalized
// to plain Base58Check here since the pack has no Bech32 dependency for
// this coin's address format.
package addrenc

import (
	"encoding/base32"
	"fmt"
)

// base32Alphabet is the lowercase RFC 4648 alphabet spec.md section 4.B
// specifies, distinct from zbase32's human-friendly reordering.
const base32Alphabet = "abcdefghijklmnopqrstuvwxyz234567"

var base32Encoding = base32.NewEncoding(base32Alphabet).WithPadding('=')

// ErrInvalidBase32 is returned for any input containing a character
// outside the alphabet or with a padding-length mismatch.
var ErrInvalidBase32 = fmt.Errorf("addrenc: invalid base32 input")

// EncodeBase32 encodes raw using the lowercase RFC 4648 alphabet.
func EncodeBase32(raw []byte) string {
	return base32Encoding.EncodeToString(raw)
}

// DecodeBase32 decodes s, rejecting characters outside the alphabet and
// any padding-length mismatch.
func DecodeBase32(s string) ([]byte, error) {
	for _, c := range s {
		if c == '=' {
			continue
		}
		if !isBase32Char(byte(c)) {
			return nil, ErrInvalidBase32
		}
	}
	out, err := base32Encoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidBase32
	}
	return out, nil
}

func isBase32Char(c byte) bool {
	for i := 0; i < len(base32Alphabet); i++ {
		if base32Alphabet[i] == c {
			return true
		}
	}
	return false
}
