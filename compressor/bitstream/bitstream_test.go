package bitstream

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
)

func TestWriteBitsLSBFirst(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteBits(1, 1))
	require.NoError(t, w.WriteBits(0b01, 2))
	require.NoError(t, w.WriteBits(0b11111, 5))
	require.NoError(t, w.WriteBits(0xABCD, 16))
	assert.Equal(t, []byte{0b11111011, 0xCD, 0xAB}, w.Bytes())
}

func TestWriteCodeIsBitReversed(t *testing.T) {
	w := NewWriter()
	// code 110 goes out as 1,1,0
	require.NoError(t, w.WriteCode(0b110, 3))
	assert.Equal(t, []byte{0b011}, w.Bytes())
}

func TestWriteThirtyTwoBitsUnaligned(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteBits(1, 3))
	require.NoError(t, w.WriteBits(0xFFFFFFFF, 32))
	require.NoError(t, w.WriteBits(0, 5))
	assert.Equal(t, []byte{0xF9, 0xFF, 0xFF, 0xFF, 0x07}, w.Bytes())

	r := NewReader(w.Bytes())
	v, err := r.ReadBits(3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	v, err = r.ReadBits(16)
	require.NoError(t, err)
	assert.EqualValues(t, 0xFFFF, v)
	v, err = r.ReadBits(16)
	require.NoError(t, err)
	assert.EqualValues(t, 0xFFFF, v)
}

func TestWriteTooWide(t *testing.T) {
	err := NewWriter().WriteBits(0, 33)
	assert.True(t, errors.Is(err, codecerr.ErrBufferOverflow))
	assert.True(t, errors.Is(err, codecerr.ErrMalformedCode))
}

func TestWriteBytesNeedsAlignment(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteBits(1, 1))
	assert.Error(t, w.WriteBytes([]byte("x")))
	w.AlignToByte()
	require.NoError(t, w.WriteBytes([]byte("x")))
	assert.Equal(t, []byte{0x01, 'x'}, w.Bytes())
}

func TestReadBitsRoundTrip(t *testing.T) {
	fields := []struct {
		value uint32
		nbits uint
	}{
		{0, 0}, {1, 1}, {5, 3}, {0x1F, 5}, {0x3FF, 10}, {8191, 13}, {0, 2}, {0xADBEEF, 24}, {0x7, 3},
	}
	w := NewWriter()
	for _, f := range fields {
		require.NoError(t, w.WriteBits(f.value, f.nbits))
	}
	w.AlignToByte()
	require.NoError(t, w.WriteBits(0xDEADBEEF, 32))
	data := w.Bytes()

	r := NewReader(data)
	for _, f := range fields {
		got, err := r.ReadBits(f.nbits)
		require.NoError(t, err)
		assert.Equal(t, f.value, got, "field of %d bits", f.nbits)
	}
	r.AlignToByte()
	got, err := r.ReadBits(32)
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, got)
	assert.Equal(t, 0, r.Remaining())
}

func TestReadBitsOverflow(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	_, err := r.ReadBits(1)
	require.NoError(t, err)
	_, err = r.ReadBits(32)
	assert.True(t, errors.Is(err, codecerr.ErrBufferOverflow))

	_, err = NewReader(nil).ReadBits(33)
	assert.True(t, errors.Is(err, codecerr.ErrBufferOverflow))
}

func TestReadBitsPastEnd(t *testing.T) {
	r := NewReader([]byte{0xAA})
	_, err := r.ReadBits(6)
	require.NoError(t, err)
	_, err = r.ReadBits(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codecerr.ErrUnexpectedEOF))

	var cerr *codecerr.Error
	require.True(t, errors.As(err, &cerr))
	assert.EqualValues(t, 6, cerr.Offset)
}

func TestAlignAndReadBytes(t *testing.T) {
	r := NewReader([]byte{0xFF, 'a', 'b', 'c'})
	_, err := r.ReadBits(3)
	require.NoError(t, err)
	_, err = r.ReadBytes(1)
	assert.Error(t, err)

	r.AlignToByte()
	assert.EqualValues(t, 8, r.BitOffset())
	p, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), p)

	_, err = r.ReadBytes(1)
	assert.True(t, errors.Is(err, codecerr.ErrUnexpectedEOF))
}

func TestReverse(t *testing.T) {
	assert.EqualValues(t, 0b011, Reverse(0b110, 3))
	assert.EqualValues(t, 0b1, Reverse(0b1, 1))
	assert.EqualValues(t, 0, Reverse(0b1, 0))
	assert.EqualValues(t, 0b0000111, Reverse(0b1110000, 7))
}
