package slatepack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/wallet"
)

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	seed, err := wallet.GenerateSeed()
	require.NoError(t, err)
	root, err := ecc.RootExtendedKey(seed)
	require.NoError(t, err)
	return wallet.Open(root)
}

func TestPlainRoundTrip(t *testing.T) {
	slateBytes := []byte("pretend-slate-bytes")
	armored := EncodePlain(slateBytes)

	require.Contains(t, armored, plainHeader)
	require.Contains(t, armored, plainFooter)

	got, err := DecodePlain(armored)
	require.NoError(t, err)
	require.Equal(t, slateBytes, got)
}

func TestPlainRejectsCorruption(t *testing.T) {
	slateBytes := []byte("pretend-slate-bytes")
	armored := EncodePlain(slateBytes)
	corrupted := armored[:len(armored)-10] + "xxxxxxxxxx" + armored[len(armored)-10:]

	_, err := DecodePlain(corrupted)
	require.Error(t, err)
}

func TestEncryptedRoundTrip(t *testing.T) {
	alice := testWallet(t)
	bob := testWallet(t)
	bobPub, err := bob.TorPublicKey(7)
	require.NoError(t, err)

	slateBytes := []byte("pretend-slate-bytes-for-bob")
	armored, err := EncodeEncrypted(alice, 3, bobPub, slateBytes)
	require.NoError(t, err)
	require.Contains(t, armored, cryptHeader)

	got, senderPub, err := DecodeEncrypted(bob, 7, armored)
	require.NoError(t, err)
	require.Equal(t, slateBytes, got)

	alicePub, err := alice.TorPublicKey(3)
	require.NoError(t, err)
	require.Equal(t, []byte(alicePub), []byte(senderPub))
}

func TestEncryptedRejectsWrongRecipient(t *testing.T) {
	alice := testWallet(t)
	bob := testWallet(t)
	eve := testWallet(t)
	bobPub, err := bob.TorPublicKey(1)
	require.NoError(t, err)

	armored, err := EncodeEncrypted(alice, 1, bobPub, []byte("secret"))
	require.NoError(t, err)

	_, _, err = DecodeEncrypted(eve, 1, armored)
	require.Error(t, err)
}

func TestEncryptedRejectsWrongIndex(t *testing.T) {
	alice := testWallet(t)
	bob := testWallet(t)
	bobPub, err := bob.TorPublicKey(1)
	require.NoError(t, err)

	armored, err := EncodeEncrypted(alice, 1, bobPub, []byte("secret"))
	require.NoError(t, err)

	// Same wallet, wrong invoice index: the envelope is addressed to a
	// different derived Tor key and must not decode.
	_, _, err = DecodeEncrypted(bob, 2, armored)
	require.Error(t, err)
}

func TestEncodeChoosesSchemeByRecipient(t *testing.T) {
	w := testWallet(t)
	plain, err := Encode(w, 0, nil, []byte("x"))
	require.NoError(t, err)
	require.Contains(t, plain, plainHeader)

	bobPub, err := testWallet(t).TorPublicKey(5)
	require.NoError(t, err)
	encrypted, err := Encode(w, 0, bobPub, []byte("x"))
	require.NoError(t, err)
	require.Contains(t, encrypted, cryptHeader)
}
