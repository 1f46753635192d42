// Package codecerr holds the failure categories shared by the bitstream,
// huffman, flate and gzip packages.
package codecerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrFormat              = errors.New("format error")
	ErrChecksum            = errors.New("checksum error")
	ErrSizeMismatch        = fmt.Errorf("size mismatch: %w", ErrChecksum)
	ErrMalformedCode       = errors.New("malformed code")
	ErrBufferOverflow      = fmt.Errorf("bit buffer overflow: %w", ErrMalformedCode)
	ErrUnsupportedFeature  = errors.New("unsupported feature")
	ErrInvalidHuffmanTable = errors.New("invalid huffman table")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
)

// Error is a categorised codec failure. Kind is one of the package
// sentinels; Offset is a bit offset into the input or output, -1 when
// unknown.
type Error struct {
	Kind   error
	Op     string
	Field  string
	Offset int64
	Err    error
}

func New(kind error, op, field string, offset int64, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		Field:  field,
		Offset: offset,
		Err:    fmt.Errorf(format, args...),
	}
}

func Wrap(kind error, op, field string, offset int64, err error) *Error {
	return &Error{
		Kind:   kind,
		Op:     op,
		Field:  field,
		Offset: offset,
		Err:    err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " in %s", e.Field)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at byte %d bit %d", e.Offset/8, e.Offset%8)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
