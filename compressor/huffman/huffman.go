// Package huffman builds canonical DEFLATE prefix codes from per-symbol code
// lengths and decodes them with an arena-backed binary trie.
package huffman

import (
	"strconv"
	"strings"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
)

// MaxCodeLength is the longest code DEFLATE can describe.
const MaxCodeLength = 15

const none = -1

// Code is a canonical code, Bits holding Length bits with the first
// transmitted bit most significant.
type Code struct {
	Bits   uint32
	Length uint8
}

func (c Code) String() string {
	if c.Length == 0 {
		return ""
	}
	s := strconv.FormatUint(uint64(c.Bits), 2)
	return strings.Repeat("0", int(c.Length)-len(s)) + s
}

type node struct {
	left, right int32
	symbol      int32
}

type Table struct {
	lengths []uint8
	codes   []Code
	nodes   []node
	used    int
}

// New assigns canonical codes to lengths: shorter codes first, equal lengths
// in ascending symbol order. A zero length marks an unused symbol.
func New(lengths []uint8) (*Table, error) {
	var blCount [MaxCodeLength + 1]int
	maxLength := 0
	for symbol, length := range lengths {
		if length > MaxCodeLength {
			return nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "code length", -1, "symbol %d has length %d", symbol, length)
		}
		if length == 0 {
			continue
		}
		blCount[length]++
		maxLength = max(maxLength, int(length))
	}
	if maxLength == 0 {
		return nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "code length", -1, "all %d code lengths are zero", len(lengths))
	}

	var nextCode [MaxCodeLength + 2]uint32
	for length := 2; length <= maxLength; length++ {
		nextCode[length] = (nextCode[length-1] + uint32(blCount[length-1])) << 1
	}

	t := &Table{
		lengths: append([]uint8(nil), lengths...),
		codes:   make([]Code, len(lengths)),
		nodes:   []node{{left: none, right: none, symbol: none}},
	}
	for symbol, length := range lengths {
		if length == 0 {
			continue
		}
		code := nextCode[length]
		nextCode[length]++
		if code >= 1<<length {
			return nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "code length", -1, "over-subscribed at length %d", length)
		}
		t.codes[symbol] = Code{Bits: code, Length: length}
		if err := t.insert(code, length, symbol); err != nil {
			return nil, err
		}
		t.used++
	}
	return t, nil
}

func (t *Table) insert(code uint32, length uint8, symbol int) error {
	n := int32(0)
	for i := int(length) - 1; i >= 0; i-- {
		if t.nodes[n].symbol != none {
			return codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "code length", -1, "code for symbol %d extends symbol %d", symbol, t.nodes[n].symbol)
		}
		child := &t.nodes[n].left
		if (code>>uint(i))&1 == 1 {
			child = &t.nodes[n].right
		}
		if *child == none {
			*child = int32(len(t.nodes))
			t.nodes = append(t.nodes, node{left: none, right: none, symbol: none})
		}
		n = *child
	}
	if t.nodes[n].left != none || t.nodes[n].right != none || t.nodes[n].symbol != none {
		return codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "code length", -1, "code for symbol %d is not a leaf", symbol)
	}
	t.nodes[n].symbol = int32(symbol)
	return nil
}

// Len is the alphabet size, used or not.
func (t *Table) Len() int {
	return len(t.lengths)
}

// Used counts symbols with a non-zero length.
func (t *Table) Used() int {
	return t.used
}

func (t *Table) Lengths() []uint8 {
	return append([]uint8(nil), t.lengths...)
}

func (t *Table) Code(symbol int) (Code, bool) {
	if symbol < 0 || symbol >= len(t.codes) || t.codes[symbol].Length == 0 {
		return Code{}, false
	}
	return t.codes[symbol], true
}

func (t *Table) WriteSymbol(w *bitstream.Writer, symbol int) error {
	code, ok := t.Code(symbol)
	if !ok {
		return codecerr.New(codecerr.ErrInvalidHuffmanTable, "huffman", "symbol", w.BitOffset(), "symbol %d has no code", symbol)
	}
	return w.WriteCode(code.Bits, uint(code.Length))
}

// DecodeSymbol walks the trie one bit at a time from the root.
func (t *Table) DecodeSymbol(r *bitstream.Reader) (int, error) {
	start := r.BitOffset()
	n := int32(0)
	for t.nodes[n].symbol == none {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, codecerr.Wrap(codecerr.ErrMalformedCode, "huffman", "code", start, err)
		}
		next := t.nodes[n].left
		if bit == 1 {
			next = t.nodes[n].right
		}
		if next == none {
			return 0, codecerr.New(codecerr.ErrMalformedCode, "huffman", "code", start, "no symbol for this bit pattern")
		}
		n = next
	}
	return int(t.nodes[n].symbol), nil
}
