// Package slatepack implements the armored envelope format of spec.md
// section 4.F that wraps a Slate's raw bytes for transport: a Base58
// payload between a fixed header/footer, in a plain or sender-
// authenticated-encrypted variant. Grounded on addrenc's Base58 codec and
// wallet's X25519 address-message encryption.
package slatepack

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mwc-pay/mwcpayd/addrenc"
	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/wallet"
)

const (
	plainHeader  = "BEGINSLATE_BIN. "
	plainFooter  = ". ENDSLATE_BIN."
	cryptHeader  = "BEGINSLATEPACK. "
	cryptFooter  = ". ENDSLATEPACK."

	plainVersion     = 0
	encryptedVersion = 0
	nonceSize        = 12
)

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func stripArmorWhitespace(body string) string {
	var b strings.Builder
	for _, r := range body {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EncodePlain wraps slateBytes in the unauthenticated plain armor.
func EncodePlain(slateBytes []byte) string {
	payload := make([]byte, 0, 4+1+2+len(slateBytes))
	rest := make([]byte, 1+2+len(slateBytes))
	rest[0] = plainVersion
	binary.BigEndian.PutUint16(rest[1:3], uint16(len(slateBytes)))
	copy(rest[3:], slateBytes)

	checksum := doubleSHA256(rest)
	payload = append(payload, checksum[:4]...)
	payload = append(payload, rest...)

	return plainHeader + addrenc.EncodeBase58(payload) + plainFooter
}

// DecodePlain reverses EncodePlain.
func DecodePlain(armored string) ([]byte, error) {
	body, err := extractBody(armored, plainHeader, plainFooter)
	if err != nil {
		return nil, err
	}

	payload, err := addrenc.DecodeBase58(body)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.InvalidInput)
	}
	if len(payload) < 4+1+2 {
		return nil, errkind.New(errkind.InvalidInput, "slatepack payload too short")
	}

	checksum := payload[:4]
	rest := payload[4:]
	want := doubleSHA256(rest)
	if !bytes.Equal(checksum, want[:4]) {
		return nil, errkind.New(errkind.InvalidInput, "slatepack checksum mismatch")
	}

	version := rest[0]
	if version != plainVersion {
		return nil, errkind.New(errkind.InvalidInput, "unsupported slatepack version: %d", version)
	}
	length := binary.BigEndian.Uint16(rest[1:3])
	slateBytes := rest[3:]
	if int(length) != len(slateBytes) {
		return nil, errkind.New(errkind.InvalidInput, "slatepack length field does not match payload")
	}
	return slateBytes, nil
}

// EncodeEncrypted wraps slateBytes in the sender-authenticated-encrypted
// armor, addressed to recipientPub. i is the invoice index whose Tor
// identity key signs/encrypts on our side.
func EncodeEncrypted(w *wallet.Wallet, i uint64, recipientPub ed25519.PublicKey, slateBytes []byte) (string, error) {
	senderPub, err := w.TorPublicKey(i)
	if err != nil {
		return "", err
	}

	shared, err := w.SharedSecret(i, recipientPub)
	if err != nil {
		return "", err
	}
	defer wallet.Zeroize(shared[:])

	aead, err := chacha20poly1305.New(shared[:])
	if err != nil {
		return "", errkind.Wrap(err, errkind.Crypto)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errkind.Wrap(err, errkind.Fatal)
	}
	ciphertextWithTag := aead.Seal(nil, nonce, slateBytes, nil)

	rest := make([]byte, 0, 1+32+32+nonceSize+2+len(ciphertextWithTag))
	rest = append(rest, encryptedVersion)
	rest = append(rest, senderPub...)
	rest = append(rest, recipientPub...)
	rest = append(rest, nonce...)
	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(ciphertextWithTag)))
	rest = append(rest, lengthField...)
	rest = append(rest, ciphertextWithTag...)

	checksum := doubleSHA256(rest)
	payload := make([]byte, 0, 4+len(rest))
	payload = append(payload, checksum[:4]...)
	payload = append(payload, rest...)

	return cryptHeader + addrenc.EncodeBase58(payload) + cryptFooter, nil
}

// DecodeEncrypted reverses EncodeEncrypted. i is the invoice index whose
// Tor proof key the envelope must be addressed to.
func DecodeEncrypted(w *wallet.Wallet, i uint64, armored string) (slateBytes []byte, senderPub ed25519.PublicKey, err error) {
	body, err := extractBody(armored, cryptHeader, cryptFooter)
	if err != nil {
		return nil, nil, err
	}

	payload, err := addrenc.DecodeBase58(body)
	if err != nil {
		return nil, nil, errkind.Wrap(err, errkind.InvalidInput)
	}
	minLen := 4 + 1 + 32 + 32 + nonceSize + 2
	if len(payload) < minLen {
		return nil, nil, errkind.New(errkind.InvalidInput, "encrypted slatepack payload too short")
	}

	checksum := payload[:4]
	rest := payload[4:]
	want := doubleSHA256(rest)
	if !bytes.Equal(checksum, want[:4]) {
		return nil, nil, errkind.New(errkind.InvalidInput, "slatepack checksum mismatch")
	}

	offset := 0
	version := rest[offset]
	offset++
	if version != encryptedVersion {
		return nil, nil, errkind.New(errkind.InvalidInput, "unsupported slatepack version: %d", version)
	}

	sender := make([]byte, 32)
	copy(sender, rest[offset:offset+32])
	offset += 32

	recipient := rest[offset : offset+32]
	offset += 32

	ourPub, err := w.TorPublicKey(i)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(recipient, ourPub) {
		return nil, nil, errkind.New(errkind.InvalidInput, "encrypted slatepack is not addressed to this wallet")
	}

	nonce := rest[offset : offset+nonceSize]
	offset += nonceSize

	length := binary.BigEndian.Uint16(rest[offset : offset+2])
	offset += 2

	ciphertextWithTag := rest[offset:]
	if int(length) != len(ciphertextWithTag) {
		return nil, nil, errkind.New(errkind.InvalidInput, "slatepack length field does not match payload")
	}

	shared, err := w.SharedSecret(i, ed25519.PublicKey(sender))
	if err != nil {
		return nil, nil, err
	}
	defer wallet.Zeroize(shared[:])

	aead, err := chacha20poly1305.New(shared[:])
	if err != nil {
		return nil, nil, errkind.Wrap(err, errkind.Crypto)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertextWithTag, nil)
	if err != nil {
		return nil, nil, errkind.New(errkind.AuthFailed, "slatepack authentication failed")
	}
	return plaintext, ed25519.PublicKey(sender), nil
}

// Encode symmetrically chooses the armor scheme: encrypted if
// recipientPub is non-nil, plain otherwise.
func Encode(w *wallet.Wallet, i uint64, recipientPub ed25519.PublicKey, slateBytes []byte) (string, error) {
	if recipientPub == nil {
		return EncodePlain(slateBytes), nil
	}
	return EncodeEncrypted(w, i, recipientPub, slateBytes)
}

func extractBody(armored, header, footer string) (string, error) {
	trimmed := strings.TrimSpace(armored)
	if !strings.HasPrefix(trimmed, header) {
		return "", errkind.New(errkind.InvalidInput, "missing slatepack header")
	}
	if !strings.HasSuffix(trimmed, footer) {
		return "", errkind.New(errkind.InvalidInput, "missing slatepack footer")
	}
	body := trimmed[len(header) : len(trimmed)-len(footer)]
	return stripArmorWhitespace(body), nil
}
