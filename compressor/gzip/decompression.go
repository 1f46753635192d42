package gzip

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Reader decodes a whole gzip member up front and then serves the payload.
type Reader struct {
	lock    sync.Mutex
	Header  Header
	payload *bytes.Reader
}

func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read gzip input")
	}
	payload, h, err := DecompressWithHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reader{Header: h, payload: bytes.NewReader(payload)}, nil
}

func (zr *Reader) Read(p []byte) (int, error) {
	zr.lock.Lock()
	defer zr.lock.Unlock()
	return zr.payload.Read(p)
}

func (zr *Reader) Close() error {
	return nil
}
