package huffman

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
)

func TestCanonicalCodes(t *testing.T) {
	table, err := New([]uint8{2, 1, 3, 3})
	require.NoError(t, err)

	want := map[int]string{0: "10", 1: "0", 2: "110", 3: "111"}
	for symbol, code := range want {
		got, ok := table.Code(symbol)
		require.True(t, ok)
		assert.Equal(t, code, got.String(), "symbol %d", symbol)
	}
}

func TestCanonicalCodesRFCExample(t *testing.T) {
	// ABCDEFGH with lengths (3, 3, 3, 3, 3, 2, 4, 4)
	table, err := New([]uint8{3, 3, 3, 3, 3, 2, 4, 4})
	require.NoError(t, err)

	want := []string{"010", "011", "100", "101", "110", "00", "1110", "1111"}
	for symbol, code := range want {
		got, ok := table.Code(symbol)
		require.True(t, ok)
		assert.Equal(t, code, got.String())
	}
}

func TestAllZeroLengths(t *testing.T) {
	_, err := New([]uint8{0, 0, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, codecerr.ErrInvalidHuffmanTable))

	_, err = New(nil)
	assert.True(t, errors.Is(err, codecerr.ErrInvalidHuffmanTable))
}

func TestOverSubscribed(t *testing.T) {
	_, err := New([]uint8{1, 1, 1})
	assert.True(t, errors.Is(err, codecerr.ErrInvalidHuffmanTable))

	_, err = New([]uint8{16, 1})
	assert.True(t, errors.Is(err, codecerr.ErrInvalidHuffmanTable))
}

func TestUnusedSymbolsHaveNoCode(t *testing.T) {
	table, err := New([]uint8{0, 1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 2, table.Used())

	_, ok := table.Code(0)
	assert.False(t, ok)
	_, ok = table.Code(9)
	assert.False(t, ok)
	assert.Error(t, table.WriteSymbol(bitstream.NewWriter(), 2))
}

func TestEncodeDecodeSymbols(t *testing.T) {
	table, err := New([]uint8{3, 3, 3, 3, 3, 2, 4, 4})
	require.NoError(t, err)

	symbols := []int{5, 0, 7, 6, 1, 2, 3, 4, 5, 5, 7}
	w := bitstream.NewWriter()
	for _, s := range symbols {
		require.NoError(t, table.WriteSymbol(w, s))
	}

	r := bitstream.NewReader(w.Bytes())
	for _, want := range symbols {
		got, err := r.ReadSymbol(table)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCodesAreSentMostSignificantBitFirst(t *testing.T) {
	table, err := New([]uint8{2, 1, 3, 3})
	require.NoError(t, err)

	w := bitstream.NewWriter()
	require.NoError(t, table.WriteSymbol(w, 2)) // 110
	assert.Equal(t, []byte{0b011}, w.Bytes())
}

func TestSingleSymbolTable(t *testing.T) {
	table, err := New([]uint8{0, 0, 1})
	require.NoError(t, err)

	sym, err := bitstream.NewReader([]byte{0x00}).ReadSymbol(table)
	require.NoError(t, err)
	assert.Equal(t, 2, sym)

	_, err = bitstream.NewReader([]byte{0x01}).ReadSymbol(table)
	assert.True(t, errors.Is(err, codecerr.ErrMalformedCode))
}

func TestDecodeTruncated(t *testing.T) {
	table, err := New([]uint8{3, 3, 3, 3, 3, 2, 4, 4})
	require.NoError(t, err)

	r := bitstream.NewReader([]byte{0xFF})
	_, err = r.ReadSymbol(table)
	require.NoError(t, err)
	_, err = r.ReadSymbol(table)
	require.NoError(t, err)
	_, err = r.ReadSymbol(table)
	assert.True(t, errors.Is(err, codecerr.ErrMalformedCode))
	assert.True(t, errors.Is(err, codecerr.ErrUnexpectedEOF))
}

func TestLengthsFromFrequencies(t *testing.T) {
	lengths := LengthsFromFrequencies([]int{10, 0, 1, 1, 5}, 15)
	assert.Equal(t, uint8(0), lengths[1])
	assert.Less(t, lengths[0], lengths[2])

	_, err := New(lengths)
	require.NoError(t, err)
}

func TestLengthsFromFrequenciesDegenerate(t *testing.T) {
	assert.Equal(t, []uint8{0, 0, 0}, LengthsFromFrequencies([]int{0, 0, 0}, 15))
	assert.Equal(t, []uint8{0, 1, 0}, LengthsFromFrequencies([]int{0, 7, 0}, 15))
}

func TestLengthsFromFrequenciesRespectsLimit(t *testing.T) {
	// Fibonacci weights force a maximally skewed tree.
	freq := make([]int, 30)
	a, b := 1, 1
	for i := range freq {
		freq[i] = a
		a, b = b, a+b
	}
	for _, limit := range []int{7, 9, 15} {
		lengths := LengthsFromFrequencies(freq, limit)
		for symbol, l := range lengths {
			assert.LessOrEqual(t, int(l), limit, "symbol %d", symbol)
			assert.NotZero(t, l)
		}
		_, err := New(lengths)
		require.NoError(t, err)
	}
}

func TestLengthsFromFrequenciesAreComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	freq := make([]int, 286)
	for i := range freq {
		if rng.Intn(3) > 0 {
			freq[i] = rng.Intn(5000)
		}
	}
	lengths := LengthsFromFrequencies(freq, 15)

	// Kraft sum of a full Huffman tree is exactly one.
	var kraft float64
	for _, l := range lengths {
		if l > 0 {
			kraft += 1 / float64(uint(1)<<l)
		}
	}
	assert.InDelta(t, 1.0, kraft, 1e-9)
}
