package flate

import (
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
	"github.com/FitrahHaque/deflate-engine/compressor/huffman"
)

// Inflate decodes a single-block DEFLATE stream.
func Inflate(data []byte) ([]byte, error) {
	return DecodeBlock(bitstream.NewReader(data), nil)
}

// DecodeBlock reads one final block from r and appends its payload to out.
// Non-final blocks are rejected; r is left just past the end-of-block code.
func DecodeBlock(r *bitstream.Reader, out []byte) ([]byte, error) {
	start := r.BitOffset()
	bfinal, err := readField(r, 1, "BFINAL")
	if err != nil {
		return nil, err
	}
	btype, err := readField(r, 2, "BTYPE")
	if err != nil {
		return nil, err
	}
	bt := BlockType(btype)
	logrus.WithFields(logrus.Fields{
		"final":  bfinal == 1,
		"type":   bt,
		"offset": start,
	}).Debug("decoding deflate block")

	if bt == reservedBlockType {
		return nil, codecerr.New(codecerr.ErrUnsupportedFeature, "inflate", "BTYPE", start, "reserved block type 11")
	}
	if bfinal != 1 {
		return nil, codecerr.New(codecerr.ErrUnsupportedFeature, "inflate", "BFINAL", start, "only single-block streams are supported")
	}

	switch bt {
	case Stored:
		return decodeStored(r, out)
	case FixedHuffman:
		return decodeTokens(r, out, fixedLiteralTable(), fixedDistanceTable())
	default:
		lit, dist, err := readDynamicTables(r)
		if err != nil {
			return nil, err
		}
		return decodeTokens(r, out, lit, dist)
	}
}

func readField(r *bitstream.Reader, nbits uint, field string) (uint32, error) {
	offset := r.BitOffset()
	v, err := r.ReadBits(nbits)
	if err != nil {
		return 0, codecerr.Wrap(codecerr.ErrMalformedCode, "inflate", field, offset, err)
	}
	return v, nil
}

func readSymbol(r *bitstream.Reader, table *huffman.Table, field string) (int, error) {
	offset := r.BitOffset()
	sym, err := r.ReadSymbol(table)
	if err != nil {
		return 0, codecerr.Wrap(codecerr.ErrMalformedCode, "inflate", field, offset, err)
	}
	return sym, nil
}

func decodeStored(r *bitstream.Reader, out []byte) ([]byte, error) {
	r.AlignToByte()
	size, err := readField(r, 16, "LEN")
	if err != nil {
		return nil, err
	}
	offset := r.BitOffset()
	nsize, err := readField(r, 16, "NLEN")
	if err != nil {
		return nil, err
	}
	if nsize != ^size&0xFFFF {
		return nil, codecerr.New(codecerr.ErrFormat, "inflate", "NLEN", offset, "%#04x is not the one's complement of LEN %#04x", nsize, size)
	}
	offset = r.BitOffset()
	raw, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, codecerr.Wrap(codecerr.ErrFormat, "inflate", "stored data", offset, err)
	}
	return append(out, raw...), nil
}

func readDynamicTables(r *bitstream.Reader) (lit, dist *huffman.Table, err error) {
	offset := r.BitOffset()
	hlit, err := readField(r, 5, "HLIT")
	if err != nil {
		return nil, nil, err
	}
	hdist, err := readField(r, 5, "HDIST")
	if err != nil {
		return nil, nil, err
	}
	hclen, err := readField(r, 4, "HCLEN")
	if err != nil {
		return nil, nil, err
	}
	nlit, ndist, nclen := int(hlit)+firstLengthCode, int(hdist)+1, int(hclen)+4
	logrus.WithFields(logrus.Fields{
		"hlit":  nlit,
		"hdist": ndist,
		"hclen": nclen,
	}).Debug("read dynamic huffman header")
	if nlit > maxNumLit {
		return nil, nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "HLIT", offset, "%d literal/length codes", nlit)
	}
	if ndist > maxNumDist {
		return nil, nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "HDIST", offset+5, "%d distance codes", ndist)
	}

	clLens := make([]uint8, numCodeLengthCode)
	for _, symbol := range codeLengthOrder[:nclen] {
		v, err := readField(r, 3, "code length code lengths")
		if err != nil {
			return nil, nil, err
		}
		clLens[symbol] = uint8(v)
	}
	clTable, err := huffman.New(clLens)
	if err != nil {
		return nil, nil, err
	}

	total := nlit + ndist
	lengths := make([]uint8, 0, total)
	for len(lengths) < total {
		offset := r.BitOffset()
		sym, err := readSymbol(r, clTable, "code lengths")
		if err != nil {
			return nil, nil, err
		}
		if sym < repeatPrevious {
			lengths = append(lengths, uint8(sym))
			continue
		}
		info := rleAlphabets[sym]
		extra, err := readField(r, info.extraBits, "code length repeat")
		if err != nil {
			return nil, nil, err
		}
		repeat := info.minRepeat + int(extra)
		var value uint8
		if sym == repeatPrevious {
			if len(lengths) == 0 {
				return nil, nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "code lengths", offset, "repeat with no previous length")
			}
			value = lengths[len(lengths)-1]
		}
		if len(lengths)+repeat > total {
			return nil, nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "code lengths", offset, "repeat of %d overruns %d code lengths", repeat, total)
		}
		for i := 0; i < repeat; i++ {
			lengths = append(lengths, value)
		}
	}

	litLens, distLens := lengths[:nlit], lengths[nlit:]
	if litLens[endOfBlock] == 0 {
		return nil, nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "inflate", "literal/length code lengths", r.BitOffset(), "end-of-block symbol has no code")
	}
	if lit, err = huffman.New(litLens); err != nil {
		return nil, nil, err
	}
	// dist stays nil for a literal-only block.
	if hasCode(distLens) {
		if dist, err = huffman.New(distLens); err != nil {
			return nil, nil, err
		}
	}
	return lit, dist, nil
}

func decodeTokens(r *bitstream.Reader, out []byte, lit, dist *huffman.Table) ([]byte, error) {
	for {
		offset := r.BitOffset()
		sym, err := readSymbol(r, lit, "literal/length")
		if err != nil {
			return nil, err
		}
		switch {
		case sym < endOfBlock:
			out = append(out, byte(sym))
			continue
		case sym == endOfBlock:
			return out, nil
		}

		base, extraBits, ok := LengthBase(sym)
		if !ok {
			return nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "literal/length", offset, "invalid length symbol %d", sym)
		}
		extra, err := readField(r, extraBits, "length extra bits")
		if err != nil {
			return nil, err
		}
		length := base + int(extra)

		if dist == nil {
			return nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "inflate", "distance", r.BitOffset(), "back-reference in a block without distance codes")
		}
		offset = r.BitOffset()
		dsym, err := readSymbol(r, dist, "distance")
		if err != nil {
			return nil, err
		}
		base, extraBits, ok = DistanceBase(dsym)
		if !ok {
			return nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "distance", offset, "invalid distance symbol %d", dsym)
		}
		extra, err = readField(r, extraBits, "distance extra bits")
		if err != nil {
			return nil, err
		}
		distance := base + int(extra)
		if distance > len(out) {
			return nil, codecerr.New(codecerr.ErrMalformedCode, "inflate", "distance", offset, "distance %d reaches before the start of %d output bytes", distance, len(out))
		}

		// Byte at a time: the source may overlap what this copy writes.
		from := len(out) - distance
		for k := 0; k < length; k++ {
			out = append(out, out[from+k])
		}
	}
}
