// Package bitstream reads and writes DEFLATE bit fields over a byte buffer.
//
// Fields are packed least significant bit first within each byte. Huffman
// codes are the exception: they go out most significant code bit first,
// which is what WriteCode does.
package bitstream

import (
	"math/bits"

	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
)

const maxFieldBits = 32

type Writer struct {
	buf        []byte
	bitsHolder uint32
	bitsCount  uint
}

func NewWriter() *Writer {
	return new(Writer)
}

// WriteBits appends the n low bits of value.
func (w *Writer) WriteBits(value uint32, nbits uint) error {
	if nbits > maxFieldBits {
		return codecerr.New(codecerr.ErrBufferOverflow, "bitstream write", "", w.BitOffset(), "cannot write %d bits at once", nbits)
	}
	w.writeBits(value, nbits)
	return nil
}

func (w *Writer) writeBits(value uint32, nbits uint) {
	if nbits == 0 {
		return
	}
	trimbits := min(nbits, maxFieldBits-w.bitsCount)
	w.bitsHolder |= (value & lowMask(trimbits)) << w.bitsCount
	w.bitsCount += trimbits
	for w.bitsCount >= 8 {
		w.buf = append(w.buf, byte(w.bitsHolder))
		w.bitsHolder >>= 8
		w.bitsCount -= 8
	}
	w.writeBits(value>>trimbits, nbits-trimbits)
}

// WriteCode appends an nbits wide Huffman code, most significant bit first.
func (w *Writer) WriteCode(code uint32, nbits uint) error {
	if nbits > maxFieldBits {
		return codecerr.New(codecerr.ErrBufferOverflow, "bitstream write", "", w.BitOffset(), "cannot write a %d bit code", nbits)
	}
	return w.WriteBits(Reverse(code, nbits), nbits)
}

// WriteBytes is the aligned fast path; it refuses to run with bits pending.
func (w *Writer) WriteBytes(p []byte) error {
	if w.bitsCount != 0 {
		return codecerr.New(codecerr.ErrFormat, "bitstream write", "", w.BitOffset(), "%d bits pending before byte write", w.bitsCount)
	}
	w.buf = append(w.buf, p...)
	return nil
}

// AlignToByte pads the partial byte with zero bits.
func (w *Writer) AlignToByte() {
	if w.bitsCount > 0 {
		w.writeBits(0, 8-w.bitsCount)
	}
}

func (w *Writer) Aligned() bool {
	return w.bitsCount == 0
}

func (w *Writer) BitOffset() int64 {
	return int64(len(w.buf))*8 + int64(w.bitsCount)
}

// Bytes aligns the writer and returns everything written so far.
func (w *Writer) Bytes() []byte {
	w.AlignToByte()
	return w.buf
}

type Reader struct {
	data       []byte
	pos        int
	bitsHolder uint32
	bitsCount  uint
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// SymbolDecoder decodes a single prefix-coded symbol by pulling bits from r.
type SymbolDecoder interface {
	DecodeSymbol(r *Reader) (int, error)
}

// ReadBits returns the next nbits as an LSB-first field.
func (r *Reader) ReadBits(nbits uint) (uint32, error) {
	if nbits > maxFieldBits {
		return 0, codecerr.New(codecerr.ErrBufferOverflow, "bitstream read", "", r.BitOffset(), "cannot read %d bits at once", nbits)
	}
	for r.bitsCount < nbits {
		if r.bitsCount > maxFieldBits-8 {
			return 0, codecerr.New(codecerr.ErrBufferOverflow, "bitstream read", "", r.BitOffset(), "%d bits requested with %d buffered", nbits, r.bitsCount)
		}
		if r.pos >= len(r.data) {
			return 0, codecerr.New(codecerr.ErrUnexpectedEOF, "bitstream read", "", r.BitOffset(), "need %d bits, have %d", nbits, r.bitsCount)
		}
		r.bitsHolder |= uint32(r.data[r.pos]) << r.bitsCount
		r.pos++
		r.bitsCount += 8
	}
	output := r.bitsHolder & lowMask(nbits)
	r.bitsHolder >>= nbits
	r.bitsCount -= nbits
	return output, nil
}

func (r *Reader) ReadSymbol(d SymbolDecoder) (int, error) {
	return d.DecodeSymbol(r)
}

// ReadBytes is the aligned fast path. Buffered bits must have been dropped
// with AlignToByte first.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if r.bitsCount != 0 {
		return nil, codecerr.New(codecerr.ErrFormat, "bitstream read", "", r.BitOffset(), "%d bits buffered before byte read", r.bitsCount)
	}
	if n < 0 || len(r.data)-r.pos < n {
		return nil, codecerr.New(codecerr.ErrUnexpectedEOF, "bitstream read", "", r.BitOffset(), "need %d bytes, have %d", n, len(r.data)-r.pos)
	}
	p := r.data[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

// AlignToByte discards the unread bits of the current byte.
func (r *Reader) AlignToByte() {
	r.bitsHolder = 0
	r.bitsCount = 0
}

func (r *Reader) BitOffset() int64 {
	return int64(r.pos)*8 - int64(r.bitsCount)
}

// Remaining counts whole unread bytes, not counting buffered bits.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Reverse returns the nbits low bits of code in reverse order.
func Reverse(code uint32, nbits uint) uint32 {
	if nbits == 0 {
		return 0
	}
	return bits.Reverse32(code) >> (32 - nbits)
}

func lowMask(nbits uint) uint32 {
	if nbits >= 32 {
		return ^uint32(0)
	}
	return (1 << nbits) - 1
}
