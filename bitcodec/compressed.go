package bitcodec

import (
	"fmt"
	"math/bits"
)

// ErrOverflow is returned when decompressing a value whose raw*100^h form
// overflows uint64.
var ErrOverflow = fmt.Errorf("bitcodec: compressed u64 overflow")

// PutCompressedU64 writes v using spec.md section 4.E's "with hundreds"
// compressed encoding: a 3-bit scale factor h, a 6-bit digit-count-minus-one
// d, then d+1 raw bits MSB-first, where the decoded value is raw*100^h. h
// is maximized during encode until either h=7 or v stops being evenly
// divisible by 100.
func (w *Writer) PutCompressedU64(v uint64) error {
	h, raw := maximizeHundreds(v)
	if err := w.PutBits(uint64(h), 3); err != nil {
		return err
	}
	return putRawDigits(w, raw)
}

// PutCompressedU64NoHundreds writes v using the "without hundreds" variant:
// the same digit-count-minus-one prefix and raw bits, without the leading
// 3-bit scale factor.
func (w *Writer) PutCompressedU64NoHundreds(v uint64) error {
	return putRawDigits(w, v)
}

func putRawDigits(w *Writer, raw uint64) error {
	nbits := bits.Len64(raw)
	if nbits == 0 {
		nbits = 1
	}
	if err := w.PutBits(uint64(nbits-1), 6); err != nil {
		return err
	}
	return w.PutBits(raw, nbits)
}

// maximizeHundreds finds the largest h in [0,7] such that v is divisible
// by 100^h, returning h and v/100^h.
func maximizeHundreds(v uint64) (h int, raw uint64) {
	raw = v
	for h = 0; h < 7; h++ {
		if raw == 0 || raw%100 != 0 {
			break
		}
		raw /= 100
	}
	return h, raw
}

// GetCompressedU64 reads the "with hundreds" encoding back into a uint64,
// failing closed on multiplication overflow.
func (r *Reader) GetCompressedU64() (uint64, error) {
	h, err := r.GetBits(3)
	if err != nil {
		return 0, err
	}
	raw, err := getRawDigits(r)
	if err != nil {
		return 0, err
	}
	return scaleByHundreds(raw, int(h))
}

// GetCompressedU64NoHundreds reads the "without hundreds" encoding.
func (r *Reader) GetCompressedU64NoHundreds() (uint64, error) {
	return getRawDigits(r)
}

func getRawDigits(r *Reader) (uint64, error) {
	d, err := r.GetBits(6)
	if err != nil {
		return 0, err
	}
	return r.GetBits(int(d) + 1)
}

func scaleByHundreds(raw uint64, h int) (uint64, error) {
	result := raw
	for i := 0; i < h; i++ {
		next := result * 100
		if result != 0 && next/100 != result {
			return 0, ErrOverflow
		}
		result = next
	}
	return result, nil
}
