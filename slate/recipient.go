package slate

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mwc-pay/mwcpayd/addrenc"
	"github.com/mwc-pay/mwcpayd/bitcodec"
	"github.com/mwc-pay/mwcpayd/ecc"
	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/wallet"
)

// Invoice is the subset of a payment row the recipient flow needs: the
// expected price (if fixed) and the derivation index to sign/derive
// against.
type Invoice struct {
	Index uint64
	Price uint64 // 0 means "any amount accepted"
}

// ReceiveResult carries the outputs the caller (foreignapi) needs to
// persist once the recipient flow succeeds.
type ReceiveResult struct {
	Response                *Slate
	KernelCommitment         ecc.Commitment
	SenderProofAddress       string
	RecipientProofSignature  []byte
	KernelData               []byte
	NonceSum                 ecc.Point
	SenderPubBlindExcess     ecc.Point
}

// Receive runs spec.md section 4.E's nine-step recipient flow against an
// already-parsed send-initial slate.
func Receive(w *wallet.Wallet, s *Slate, invoice Invoice) (*ReceiveResult, error) {
	// Step 1: validate amount, payment-proof presence, and kernel features.
	if invoice.Price != 0 && s.Amount != invoice.Price {
		return nil, errkind.New(errkind.Conflict, "The amount must be exactly %s", decimalMwc(invoice.Price))
	}
	if s.PaymentProof == nil {
		return nil, errkind.New(errkind.InvalidInput, "slate is missing a sender payment-proof address")
	}
	if s.KernelFeatures != KernelPlain {
		return nil, errkind.New(errkind.InvalidInput, "only plain kernel features are accepted")
	}
	if len(s.Participants) != 1 {
		return nil, errkind.New(errkind.InvalidInput, "send-initial slate must carry exactly one participant")
	}
	sender := s.Participants[0]

	// Step 2: recipient proof-key convention.
	recipientPub, err := w.TorPublicKey(invoice.Index)
	if err != nil {
		return nil, err
	}
	if s.PaymentProof.SenderAddress.IsSecp256k1 {
		return nil, errkind.New(errkind.InvalidInput, "sender payment-proof address must be ed25519")
	}
	if bytesEqual(s.PaymentProof.SenderAddress.Ed25519[:], recipientPub) {
		copy(s.PaymentProof.RecipientAddress.Ed25519[:], recipientPub)
	} else {
		var expected [32]byte
		copy(expected[:], recipientPub)
		if s.PaymentProof.RecipientAddress.Ed25519 != expected {
			return nil, errkind.New(errkind.InvalidInput, "recipient proof address does not match this wallet")
		}
	}

	// Step 3: build the recipient's rangeproof output.
	bp, err := w.Bulletproof(invoice.Index, s.Amount)
	if err != nil {
		return nil, err
	}

	// Step 4: derive blinding, compute and apply the offset.
	blind, err := w.BlindingFactor(invoice.Index, s.Amount)
	if err != nil {
		return nil, err
	}
	offset, err := ecc.RandomScalar()
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	blind, err = blind.Sub(offset)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	copy(s.Offset[:], offset[:])

	commit, err := ecc.Commit(blind, s.Amount)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	s.OutputCommitment = commit
	s.Bulletproof = bp

	// Step 5: draw a fresh nonce, compute the recipient's public points.
	privNonce, err := ecc.RandomScalar()
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	pubBlindExcess := ecc.ScalarBaseMult(blind)
	pubNonce := ecc.ScalarBaseMult(privNonce)

	recipientParticipant := Participant{
		PubBlindExcess: secpCompressedPubKey(pubBlindExcess),
		PubNonce:       secpCompressedPubKey(pubNonce),
	}

	// Step 6: combine public material across both participants.
	senderPub, err := compressedPubKeyToPoint(sender.PubBlindExcess)
	if err != nil {
		return nil, err
	}
	senderNonce, err := compressedPubKeyToPoint(sender.PubNonce)
	if err != nil {
		return nil, err
	}
	pubSum, err := ecc.Sum([]ecc.Point{senderPub, pubBlindExcess})
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	nonceSum, err := ecc.Sum([]ecc.Point{senderNonce, pubNonce})
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}

	// Step 7: partial-sign and self-verify.
	kernelData := KernelData(KernelPlain, s.Fee, 0)
	msgHash := sha256.Sum256(kernelData)
	partial, err := ecc.PartialSign(blind, privNonce, pubSum, nonceSum, msgHash)
	if err != nil {
		return nil, errkind.Wrap(err, errkind.Crypto)
	}
	if !ecc.VerifyPartial(partial, pubBlindExcess, nonceSum, pubSum, msgHash) {
		return nil, errkind.New(errkind.InvariantViolation, "recipient partial signature failed local verification")
	}

	// Step 8: attach partial and sign the payment proof message over
	// hex(excess) || senderAddr || amount, where excess is the commitment
	// form of pubSum.
	recipientParticipant.PartialSigPresent = true
	recipientParticipant.PartialSig = partial

	senderAddr := senderProofAddress(s.PaymentProof.SenderAddress)

	excess := pointToCommitment(pubSum)
	proofMsg := paymentProofMessage(excess, senderAddr, s.Amount)
	proofSig, err := w.SignTorPaymentProof(invoice.Index, proofMsg)
	if err != nil {
		return nil, err
	}
	s.PaymentProof.Signature = proofSig
	copy(s.PaymentProof.RecipientAddress.Ed25519[:], recipientPub)

	// Step 9: assemble the response slate.
	response := &Slate{
		Purpose:          PurposeSendResponse,
		UUID:             s.UUID,
		Network:          s.Network,
		Fee:              s.Fee,
		Height:           s.Height,
		LockHeight:       s.LockHeight,
		HasTTL:           s.HasTTL,
		TTLCutoff:        s.TTLCutoff,
		Participants:     []Participant{recipientParticipant},
		PaymentProof:     s.PaymentProof,
		Offset:           s.Offset,
		OutputCommitment: s.OutputCommitment,
		Bulletproof:      s.Bulletproof,
	}

	return &ReceiveResult{
		Response:                response,
		KernelCommitment:        ecc.Commitment(excess),
		SenderProofAddress:      senderAddr,
		RecipientProofSignature: proofSig,
		KernelData:              kernelData,
		NonceSum:                nonceSum,
		SenderPubBlindExcess:    senderPub,
	}, nil
}

func secpCompressedPubKey(p ecc.Point) bitcodec.CompressedPubKey {
	var k bitcodec.CompressedPubKey
	k.IsSecp256k1 = true
	copy(k.Secp256k1[:], p[:])
	return k
}

func pointToCommitment(p ecc.Point) [33]byte {
	var c [33]byte
	copy(c[:], p[:])
	return c
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// senderProofAddress renders a sender's compressed public key as the ASCII
// address string a real wallet would present and sign against: a base32
// Tor onion address for Ed25519 keys (the same encoding
// wallet.TorPaymentProofAddress uses), or a base58check MQS address for
// secp256k1 keys.
func senderProofAddress(k bitcodec.CompressedPubKey) string {
	if k.IsSecp256k1 {
		return addrenc.EncodeBase58Checksum(k.Secp256k1[:])
	}
	return addrenc.EncodeBase32(k.Ed25519[:])
}

// paymentProofMessage builds hex(excess) || senderAddr || amount as the
// payment-proof signing message, spec.md section 4.D/4.E step 8: senderAddr
// is the sender's ASCII payment-proof address string, not its raw public
// key bytes.
func paymentProofMessage(excess [33]byte, senderAddr string, amount uint64) []byte {
	hexExcess := hex.EncodeToString(excess[:])
	msg := make([]byte, 0, len(hexExcess)+len(senderAddr)+20)
	msg = append(msg, hexExcess...)
	msg = append(msg, senderAddr...)
	msg = append(msg, uintToString(amount)...)
	return msg
}

func decimalMwc(nanogrin uint64) string {
	whole := nanogrin / 1_000_000_000
	frac := nanogrin % 1_000_000_000
	digits := [9]byte{}
	for i := 8; i >= 0; i-- {
		digits[i] = byte('0' + frac%10)
		frac /= 10
	}
	return uintToString(whole) + "." + string(digits[:])
}

func uintToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
