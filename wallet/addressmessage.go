package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"hash/crc32"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/errkind"
)

// EncryptAddressMessage encrypts plaintext for recipientEdPub using an
// X25519 shared secret derived from this wallet's Tor identity key and
// the recipient's Ed25519 public key (converted to its birational X25519
// form), sealed with ChaCha20-Poly1305 and framed with a CRC32 checksum
// of the ciphertext — spec.md section 4.D's address-message encryption.
//
// Wire layout: nonce (24 bytes) || ciphertext || crc32(ciphertext) (4
// bytes, big-endian).
func (w *Wallet) EncryptAddressMessage(i uint64, recipientEdPub ed25519.PublicKey, plaintext []byte) ([]byte, error) {
	shared, err := w.x25519Shared(i, recipientEdPub)
	if err != nil {
		return nil, err
	}
	defer Zeroize(shared[:])

	aead, err := chacha20poly1305.NewX(shared[:])
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errkind.Wrap(err, errkind.Fatal)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	checksum := crc32.ChecksumIEEE(ciphertext)

	out := make([]byte, 0, len(nonce)+len(ciphertext)+4)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	out = append(out, byte(checksum>>24), byte(checksum>>16), byte(checksum>>8), byte(checksum))
	return out, nil
}

// DecryptAddressMessage reverses EncryptAddressMessage. The CRC32 trailer
// is verified before the AEAD open is attempted, so a transport-corrupted
// message fails fast with a distinct error from an authentication
// failure.
func (w *Wallet) DecryptAddressMessage(i uint64, senderEdPub ed25519.PublicKey, framed []byte) ([]byte, error) {
	if len(framed) < chacha20poly1305.NonceSizeX+4 {
		return nil, errkind.New(errkind.InvalidInput, "address message too short")
	}

	nonce := framed[:chacha20poly1305.NonceSizeX]
	ciphertext := framed[chacha20poly1305.NonceSizeX : len(framed)-4]
	trailer := framed[len(framed)-4:]

	want := crc32.ChecksumIEEE(ciphertext)
	got := uint32(trailer[0])<<24 | uint32(trailer[1])<<16 | uint32(trailer[2])<<8 | uint32(trailer[3])
	if want != got {
		return nil, errkind.New(errkind.InvalidInput, "address message checksum mismatch")
	}

	shared, err := w.x25519Shared(i, senderEdPub)
	if err != nil {
		return nil, err
	}
	defer Zeroize(shared[:])

	aead, err := chacha20poly1305.NewX(shared[:])
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errkind.New(errkind.AuthFailed, "address message authentication failed")
	}
	return plaintext, nil
}

// SharedSecret exposes the wallet's X25519 key agreement directly, for
// callers (slatepack) that need to frame the AEAD themselves rather than
// use EncryptAddressMessage's self-contained nonce+checksum wire format.
func (w *Wallet) SharedSecret(i uint64, counterpartyEdPub ed25519.PublicKey) ([32]byte, error) {
	return w.x25519Shared(i, counterpartyEdPub)
}

func (w *Wallet) x25519Shared(i uint64, counterpartyEdPub ed25519.PublicKey) ([32]byte, error) {
	torPriv, _, err := w.torKeyPair(i)
	if err != nil {
		return [32]byte{}, err
	}

	ourX25519Priv := ecc.X25519PrivateFromEd25519(torPriv)
	theirX25519Pub, err := ecc.X25519PublicFromEd25519(counterpartyEdPub)
	if err != nil {
		return [32]byte{}, errkind.Wrap(err, errkind.Crypto)
	}

	shared, err := ecc.X25519Shared(ourX25519Priv, theirX25519Pub)
	if err != nil {
		return [32]byte{}, errkind.Wrap(err, errkind.Crypto)
	}
	return shared, nil
}
