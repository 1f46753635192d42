// Package gzip frames a single DEFLATE block as one gzip member (RFC 1952).
package gzip

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
	"github.com/FitrahHaque/deflate-engine/compressor/flate"
)

// Compress wraps payload in a gzip member with an empty header: no name, no
// time stamp, OS unknown.
func Compress(payload []byte, bt flate.BlockType) ([]byte, error) {
	return CompressWithHeader(payload, bt, Header{OS: Unknown})
}

func CompressWithHeader(payload []byte, bt flate.BlockType, h Header) ([]byte, error) {
	block, err := flate.NewBlock(payload, bt)
	if err != nil {
		return nil, err
	}
	w := bitstream.NewWriter()
	if err := WriteHeader(w, h); err != nil {
		return nil, err
	}
	if err := flate.EncodeBlock(w, block); err != nil {
		return nil, err
	}
	w.AlignToByte()
	if err := w.WriteBits(crc32.ChecksumIEEE(payload), 32); err != nil {
		return nil, err
	}
	if err := w.WriteBits(uint32(len(payload)), 32); err != nil {
		return nil, err
	}
	out := w.Bytes()
	logrus.Debugf("gzip: %d bytes compressed to %d as %s", len(payload), len(out), bt)
	return out, nil
}

func Decompress(data []byte) ([]byte, error) {
	payload, _, err := DecompressWithHeader(data)
	return payload, err
}

// DecompressWithHeader decodes one gzip member and checks its trailer.
// Bytes after the trailer are ignored.
func DecompressWithHeader(data []byte) ([]byte, Header, error) {
	r := bitstream.NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, h, err
	}
	payload, err := flate.DecodeBlock(r, nil)
	if err != nil {
		return nil, h, err
	}

	r.AlignToByte()
	offset := r.BitOffset()
	trailer, err := r.ReadBytes(trailerSize)
	if err != nil {
		return nil, h, codecerr.Wrap(codecerr.ErrChecksum, "gzip trailer", "trailer", offset, err)
	}
	if want, got := binary.LittleEndian.Uint32(trailer[:4]), crc32.ChecksumIEEE(payload); want != got {
		return nil, h, codecerr.New(codecerr.ErrChecksum, "gzip trailer", "CRC32", offset, "trailer crc %#08x, computed %#08x", want, got)
	}
	if want, got := binary.LittleEndian.Uint32(trailer[4:]), uint32(len(payload)); want != got {
		return nil, h, codecerr.New(codecerr.ErrSizeMismatch, "gzip trailer", "ISIZE", offset+32, "trailer size %d, decoded %d", want, got)
	}
	if extra := r.Remaining(); extra > 0 {
		logrus.Debugf("gzip: ignoring %d bytes after the first member", extra)
	}
	return payload, h, nil
}
