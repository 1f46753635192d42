package gzip

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
)

// Writer buffers everything written to it and emits a single gzip member
// to the underlying writer on Close. Header may be set before Close.
type Writer struct {
	lock      sync.Mutex
	Header    Header
	w         io.Writer
	blockType flate.BlockType
	buf       bytes.Buffer
	closed    bool
}

func NewWriter(w io.Writer, bt flate.BlockType) *Writer {
	return &Writer{
		Header:    Header{OS: Unknown},
		w:         w,
		blockType: bt,
	}
}

func (zw *Writer) Write(p []byte) (int, error) {
	zw.lock.Lock()
	defer zw.lock.Unlock()
	if zw.closed {
		return 0, errors.New("gzip: write to closed writer")
	}
	return zw.buf.Write(p)
}

func (zw *Writer) Close() error {
	zw.lock.Lock()
	defer zw.lock.Unlock()
	if zw.closed {
		return nil
	}
	zw.closed = true
	member, err := CompressWithHeader(zw.buf.Bytes(), zw.blockType, zw.Header)
	if err != nil {
		return err
	}
	if _, err := zw.w.Write(member); err != nil {
		return errors.Wrap(err, "unable to write gzip member")
	}
	return nil
}
