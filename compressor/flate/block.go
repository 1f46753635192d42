// Package flate encodes and decodes single-block DEFLATE streams (RFC 1951)
// in the stored, fixed-Huffman and dynamic-Huffman encodings.
package flate

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
	"github.com/FitrahHaque/deflate-engine/compressor/lz"
)

type BlockType uint8

const (
	Stored BlockType = iota
	FixedHuffman
	DynamicHuffman
	reservedBlockType
)

var blockTypeNames = map[BlockType]string{
	Stored:         "stored",
	FixedHuffman:   "fixed",
	DynamicHuffman: "dynamic",
}

func (bt BlockType) String() string {
	if name, ok := blockTypeNames[bt]; ok {
		return name
	}
	return "reserved"
}

func ParseBlockType(s string) (BlockType, error) {
	for bt, name := range blockTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return bt, nil
		}
	}
	return reservedBlockType, errors.Errorf("unknown block type %q", s)
}

// BlockTypes lists the encodings in wire order.
func BlockTypes() []BlockType {
	return []BlockType{Stored, FixedHuffman, DynamicHuffman}
}

// Block is one final DEFLATE block. Raw is used by Stored blocks, Tokens by
// the Huffman encodings, and the two length slices by DynamicHuffman only.
type Block struct {
	Type            BlockType
	Raw             []byte
	Tokens          []lz.Token
	LiteralLengths  []uint8
	DistanceLengths []uint8
}

// NewBlock prepares payload for encoding as bt.
func NewBlock(payload []byte, bt BlockType) (Block, error) {
	switch bt {
	case Stored:
		if len(payload) > maxStoredLength {
			return Block{}, codecerr.New(codecerr.ErrUnsupportedFeature, "deflate", "LEN", -1, "stored block holds at most %d bytes, got %d", maxStoredLength, len(payload))
		}
		return Block{Type: Stored, Raw: payload}, nil
	case FixedHuffman:
		return Block{Type: FixedHuffman, Tokens: lz.Tokenize(payload)}, nil
	case DynamicHuffman:
		tokens := lz.Tokenize(payload)
		litLens, distLens, err := dynamicLengths(tokens)
		if err != nil {
			return Block{}, err
		}
		return Block{
			Type:            DynamicHuffman,
			Tokens:          tokens,
			LiteralLengths:  litLens,
			DistanceLengths: distLens,
		}, nil
	}
	return Block{}, codecerr.New(codecerr.ErrUnsupportedFeature, "deflate", "BTYPE", -1, "cannot encode block type %d", bt)
}
