package flate

import (
	"sync"

	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
	"github.com/FitrahHaque/deflate-engine/compressor/huffman"
	"github.com/FitrahHaque/deflate-engine/compressor/lz"
)

const (
	endOfBlock        = 256
	firstLengthCode   = 257
	lastLengthCode    = 285
	maxNumLit         = 286
	maxNumDist        = 30
	numFixedLit       = 288
	numCodeLengthCode = 19
	maxStoredLength   = 65535

	maxCodeLengthCodeLength = 7
)

var lenAlphabets = [...]struct {
	extraBits  uint
	baseLength int
}{
	{0, 3}, {0, 4}, {0, 5}, {0, 6}, {0, 7}, {0, 8}, {0, 9}, {0, 10},
	{1, 11}, {1, 13}, {1, 15}, {1, 17},
	{2, 19}, {2, 23}, {2, 27}, {2, 31},
	{3, 35}, {3, 43}, {3, 51}, {3, 59},
	{4, 67}, {4, 83}, {4, 99}, {4, 115},
	{5, 131}, {5, 163}, {5, 195}, {5, 227},
	{0, 258},
}

var distAlphabets = [maxNumDist]struct {
	extraBits    uint
	baseDistance int
}{
	{0, 1}, {0, 2}, {0, 3}, {0, 4},
	{1, 5}, {1, 7}, {2, 9}, {2, 13},
	{3, 17}, {3, 25}, {4, 33}, {4, 49},
	{5, 65}, {5, 97}, {6, 129}, {6, 193},
	{7, 257}, {7, 385}, {8, 513}, {8, 769},
	{9, 1025}, {9, 1537}, {10, 2049}, {10, 3073},
	{11, 4097}, {11, 6145}, {12, 8193}, {12, 12289},
	{13, 16385}, {13, 24577},
}

// Code-length alphabet: transmission order of the HCLEN lengths, and the
// repeat symbols 16, 17, 18.
var codeLengthOrder = [numCodeLengthCode]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

const (
	repeatPrevious  = 16
	repeatZeroShort = 17
	repeatZeroLong  = 18
)

var rleAlphabets = map[int]struct {
	extraBits uint
	minRepeat int
	maxRepeat int
}{
	repeatPrevious:  {extraBits: 2, minRepeat: 3, maxRepeat: 6},
	repeatZeroShort: {extraBits: 3, minRepeat: 3, maxRepeat: 10},
	repeatZeroLong:  {extraBits: 7, minRepeat: 11, maxRepeat: 138},
}

// LengthCode maps a match length in [3, 258] to its literal/length symbol,
// the number of extra bits, and the value carried in them.
func LengthCode(length int) (code int, extraBits uint, offset uint32, err error) {
	if length < lz.MinMatch || length > lz.MaxMatch {
		return 0, 0, 0, codecerr.New(codecerr.ErrFormat, "deflate", "length", -1, "length %d out of range", length)
	}
	for i := len(lenAlphabets) - 1; i >= 0; i-- {
		info := lenAlphabets[i]
		if length >= info.baseLength {
			return firstLengthCode + i, info.extraBits, uint32(length - info.baseLength), nil
		}
	}
	return 0, 0, 0, codecerr.New(codecerr.ErrFormat, "deflate", "length", -1, "no length code for %d", length)
}

// LengthBase is the inverse of LengthCode.
func LengthBase(code int) (baseLength int, extraBits uint, ok bool) {
	if code < firstLengthCode || code > lastLengthCode {
		return 0, 0, false
	}
	info := lenAlphabets[code-firstLengthCode]
	return info.baseLength, info.extraBits, true
}

// DistanceCode maps a distance in [1, 32768] to its distance symbol, the
// number of extra bits, and the value carried in them.
func DistanceCode(distance int) (code int, extraBits uint, offset uint32, err error) {
	if distance < 1 || distance > lz.WindowSize {
		return 0, 0, 0, codecerr.New(codecerr.ErrFormat, "deflate", "distance", -1, "distance %d out of range", distance)
	}
	for i := len(distAlphabets) - 1; i >= 0; i-- {
		info := distAlphabets[i]
		if distance >= info.baseDistance {
			return i, info.extraBits, uint32(distance - info.baseDistance), nil
		}
	}
	return 0, 0, 0, codecerr.New(codecerr.ErrFormat, "deflate", "distance", -1, "no distance code for %d", distance)
}

// DistanceBase is the inverse of DistanceCode.
func DistanceBase(code int) (baseDistance int, extraBits uint, ok bool) {
	if code < 0 || code >= maxNumDist {
		return 0, 0, false
	}
	info := distAlphabets[code]
	return info.baseDistance, info.extraBits, true
}

func fixedLiteralLengths() []uint8 {
	lengths := make([]uint8, numFixedLit)
	for symbol := range lengths {
		switch {
		case symbol < 144:
			lengths[symbol] = 8
		case symbol < 256:
			lengths[symbol] = 9
		case symbol < 280:
			lengths[symbol] = 7
		default:
			lengths[symbol] = 8
		}
	}
	return lengths
}

func fixedDistanceLengths() []uint8 {
	lengths := make([]uint8, maxNumDist)
	for symbol := range lengths {
		lengths[symbol] = 5
	}
	return lengths
}

func mustTable(lengths []uint8) *huffman.Table {
	t, err := huffman.New(lengths)
	if err != nil {
		panic(err)
	}
	return t
}

// The fixed tables are built on first use and never modified afterwards.
var (
	fixedLiteralTable  = sync.OnceValue(func() *huffman.Table { return mustTable(fixedLiteralLengths()) })
	fixedDistanceTable = sync.OnceValue(func() *huffman.Table { return mustTable(fixedDistanceLengths()) })
)
