package flate

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
	"github.com/FitrahHaque/deflate-engine/compressor/huffman"
	"github.com/FitrahHaque/deflate-engine/compressor/lz"
)

// Deflate encodes payload as a single final block of type bt.
func Deflate(payload []byte, bt BlockType) ([]byte, error) {
	block, err := NewBlock(payload, bt)
	if err != nil {
		return nil, err
	}
	w := bitstream.NewWriter()
	if err := EncodeBlock(w, block); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeBlock writes block, marked final, to w.
func EncodeBlock(w *bitstream.Writer, block Block) error {
	logrus.WithFields(logrus.Fields{
		"type":   block.Type,
		"raw":    len(block.Raw),
		"tokens": len(block.Tokens),
	}).Debug("encoding deflate block")

	if err := w.WriteBits(1, 1); err != nil {
		return err
	}
	if err := w.WriteBits(uint32(block.Type), 2); err != nil {
		return err
	}
	switch block.Type {
	case Stored:
		return writeStored(w, block.Raw)
	case FixedHuffman:
		return writeTokens(w, block.Tokens, fixedLiteralTable(), fixedDistanceTable())
	case DynamicHuffman:
		lit, dist, err := writeDynamicHeader(w, block.LiteralLengths, block.DistanceLengths)
		if err != nil {
			return err
		}
		return writeTokens(w, block.Tokens, lit, dist)
	}
	return codecerr.New(codecerr.ErrUnsupportedFeature, "deflate", "BTYPE", w.BitOffset(), "cannot encode block type %d", block.Type)
}

func writeStored(w *bitstream.Writer, raw []byte) error {
	if len(raw) > maxStoredLength {
		return codecerr.New(codecerr.ErrUnsupportedFeature, "deflate", "LEN", w.BitOffset(), "stored block holds at most %d bytes, got %d", maxStoredLength, len(raw))
	}
	w.AlignToByte()
	size := uint32(len(raw))
	if err := w.WriteBits(size, 16); err != nil {
		return err
	}
	if err := w.WriteBits(^size&0xFFFF, 16); err != nil {
		return err
	}
	return w.WriteBytes(raw)
}

func writeTokens(w *bitstream.Writer, tokens []lz.Token, lit, dist *huffman.Table) error {
	for _, token := range tokens {
		switch token.Kind {
		case lz.LiteralToken:
			if err := lit.WriteSymbol(w, int(token.Literal)); err != nil {
				return err
			}
		case lz.MatchToken:
			code, extraBits, offset, err := LengthCode(token.Length)
			if err != nil {
				return err
			}
			if err := lit.WriteSymbol(w, code); err != nil {
				return err
			}
			if err := w.WriteBits(offset, extraBits); err != nil {
				return err
			}
			if dist == nil {
				return codecerr.New(codecerr.ErrInvalidHuffmanTable, "deflate", "distance", w.BitOffset(), "back-reference in a block without distance codes")
			}
			code, extraBits, offset, err = DistanceCode(token.Distance)
			if err != nil {
				return err
			}
			if err := dist.WriteSymbol(w, code); err != nil {
				return err
			}
			if err := w.WriteBits(offset, extraBits); err != nil {
				return err
			}
		default:
			return codecerr.New(codecerr.ErrFormat, "deflate", "token", w.BitOffset(), "unknown token kind %d", token.Kind)
		}
	}
	return lit.WriteSymbol(w, endOfBlock)
}

// dynamicLengths derives literal/length and distance code lengths from the
// token frequencies, trimmed to the HLIT/HDIST minimums of 257 and 1.
func dynamicLengths(tokens []lz.Token) (litLens, distLens []uint8, err error) {
	litFreq := make([]int, maxNumLit)
	distFreq := make([]int, maxNumDist)
	for _, token := range tokens {
		switch token.Kind {
		case lz.LiteralToken:
			litFreq[token.Literal]++
		case lz.MatchToken:
			code, _, _, err := LengthCode(token.Length)
			if err != nil {
				return nil, nil, err
			}
			litFreq[code]++
			code, _, _, err = DistanceCode(token.Distance)
			if err != nil {
				return nil, nil, err
			}
			distFreq[code]++
		}
	}
	litFreq[endOfBlock]++

	if !slices.ContainsFunc(distFreq, func(f int) bool { return f > 0 }) {
		// Keep one distance code so the table is never empty.
		distFreq[0] = 1
	}

	litLens = trimLengths(huffman.LengthsFromFrequencies(litFreq, huffman.MaxCodeLength), firstLengthCode)
	distLens = trimLengths(huffman.LengthsFromFrequencies(distFreq, huffman.MaxCodeLength), 1)
	return litLens, distLens, nil
}

func hasCode(lengths []uint8) bool {
	for _, l := range lengths {
		if l != 0 {
			return true
		}
	}
	return false
}

func trimLengths(lengths []uint8, minCount int) []uint8 {
	n := len(lengths)
	for n > minCount && lengths[n-1] == 0 {
		n--
	}
	return lengths[:n]
}

type codeLengthSymbol struct {
	symbol int
	extra  uint32
}

// runLengthEncode rewrites a code length sequence with the repeat symbols
// 16, 17 and 18.
func runLengthEncode(lengths []uint8) []codeLengthSymbol {
	var out []codeLengthSymbol
	for i := 0; i < len(lengths); {
		value := lengths[i]
		run := 1
		for i+run < len(lengths) && lengths[i+run] == value {
			run++
		}
		i += run

		if value == 0 {
			for run >= rleAlphabets[repeatZeroShort].minRepeat {
				if run >= rleAlphabets[repeatZeroLong].minRepeat {
					n := min(run, rleAlphabets[repeatZeroLong].maxRepeat)
					out = append(out, codeLengthSymbol{repeatZeroLong, uint32(n - rleAlphabets[repeatZeroLong].minRepeat)})
					run -= n
				} else {
					n := min(run, rleAlphabets[repeatZeroShort].maxRepeat)
					out = append(out, codeLengthSymbol{repeatZeroShort, uint32(n - rleAlphabets[repeatZeroShort].minRepeat)})
					run -= n
				}
			}
		} else {
			out = append(out, codeLengthSymbol{symbol: int(value)})
			run--
			for run >= rleAlphabets[repeatPrevious].minRepeat {
				n := min(run, rleAlphabets[repeatPrevious].maxRepeat)
				out = append(out, codeLengthSymbol{repeatPrevious, uint32(n - rleAlphabets[repeatPrevious].minRepeat)})
				run -= n
			}
		}
		for ; run > 0; run-- {
			out = append(out, codeLengthSymbol{symbol: int(value)})
		}
	}
	return out
}

func writeDynamicHeader(w *bitstream.Writer, litLens, distLens []uint8) (lit, dist *huffman.Table, err error) {
	if len(litLens) < firstLengthCode || len(litLens) > maxNumLit {
		return nil, nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "deflate", "HLIT", w.BitOffset(), "%d literal/length codes", len(litLens))
	}
	if len(distLens) < 1 || len(distLens) > maxNumDist {
		return nil, nil, codecerr.New(codecerr.ErrInvalidHuffmanTable, "deflate", "HDIST", w.BitOffset(), "%d distance codes", len(distLens))
	}
	if lit, err = huffman.New(litLens); err != nil {
		return nil, nil, err
	}
	if hasCode(distLens) {
		if dist, err = huffman.New(distLens); err != nil {
			return nil, nil, err
		}
	}

	all := make([]uint8, 0, len(litLens)+len(distLens))
	all = append(append(all, litLens...), distLens...)
	condensed := runLengthEncode(all)

	clFreq := make([]int, numCodeLengthCode)
	for _, c := range condensed {
		clFreq[c.symbol]++
	}
	clLens := huffman.LengthsFromFrequencies(clFreq, maxCodeLengthCodeLength)
	clTable, err := huffman.New(clLens)
	if err != nil {
		return nil, nil, err
	}
	hclen := numCodeLengthCode
	for hclen > 4 && clLens[codeLengthOrder[hclen-1]] == 0 {
		hclen--
	}

	logrus.WithFields(logrus.Fields{
		"hlit":  len(litLens),
		"hdist": len(distLens),
		"hclen": hclen,
	}).Debug("writing dynamic huffman header")

	fields := []struct {
		value uint32
		nbits uint
	}{
		{uint32(len(litLens) - firstLengthCode), 5},
		{uint32(len(distLens) - 1), 5},
		{uint32(hclen - 4), 4},
	}
	for _, f := range fields {
		if err := w.WriteBits(f.value, f.nbits); err != nil {
			return nil, nil, err
		}
	}
	for _, symbol := range codeLengthOrder[:hclen] {
		if err := w.WriteBits(uint32(clLens[symbol]), 3); err != nil {
			return nil, nil, err
		}
	}
	for _, c := range condensed {
		if err := clTable.WriteSymbol(w, c.symbol); err != nil {
			return nil, nil, err
		}
		if info, ok := rleAlphabets[c.symbol]; ok {
			if err := w.WriteBits(c.extra, info.extraBits); err != nil {
				return nil, nil, err
			}
		}
	}
	return lit, dist, nil
}
