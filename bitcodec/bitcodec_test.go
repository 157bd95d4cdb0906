package bitcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutBits(0b101, 3))
	require.NoError(t, w.PutBits(0xdead, 16))
	require.NoError(t, w.PutBit(true))
	require.NoError(t, w.PutBytes([]byte{0xAB, 0xCD}))

	r := NewReader(w.Bytes())
	v1, err := r.GetBits(3)
	require.NoError(t, err)
	require.EqualValues(t, 0b101, v1)

	v2, err := r.GetBits(16)
	require.NoError(t, err)
	require.EqualValues(t, 0xdead, v2)

	bit, err := r.GetBit()
	require.NoError(t, err)
	require.True(t, bit)

	by, err := r.GetBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xCD}, by)
}

func TestBitReaderFailsClosed(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := r.GetBits(9)
	require.Error(t, err)
}

func TestCompressedU64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 99, 100, 100 * 100, 1234567890, 713, ^uint64(0)}
	for _, v := range values {
		w := NewWriter()
		require.NoError(t, w.PutCompressedU64(v))
		r := NewReader(w.Bytes())
		got, err := r.GetCompressedU64()
		require.NoError(t, err)
		require.Equal(t, v, got, "value %d", v)
	}
}

func TestCompressedU64NoHundredsRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutCompressedU64NoHundreds(123456))
	r := NewReader(w.Bytes())
	got, err := r.GetCompressedU64NoHundreds()
	require.NoError(t, err)
	require.EqualValues(t, 123456, got)
}
