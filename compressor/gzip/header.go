package gzip

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"github.com/FitrahHaque/deflate-engine/compressor/bitstream"
	"github.com/FitrahHaque/deflate-engine/compressor/codecerr"
)

const (
	id1           = 0x1f
	id2           = 0x8b
	methodDeflate = 8

	flagText      = 1 << 0
	flagHeaderCRC = 1 << 1
	flagExtra     = 1 << 2
	flagName      = 1 << 3
	flagComment   = 1 << 4
	flagReserved  = 0xe0

	fixedHeaderSize = 10
	trailerSize     = 8
)

// OS is the gzip operating system id.
type OS uint8

const (
	FAT OS = iota
	Amiga
	VMS
	Unix
	VMCMS
	AtariTOS
	HPFS
	Macintosh
	ZSystem
	CPM
	TOPS20
	NTFS
	QDOS
	AcornRISCOS
	Unknown OS = 255
)

var osNames = map[OS]string{
	FAT:         "FAT",
	Amiga:       "Amiga",
	VMS:         "VMS",
	Unix:        "Unix",
	VMCMS:       "VM/CMS",
	AtariTOS:    "Atari TOS",
	HPFS:        "HPFS",
	Macintosh:   "Macintosh",
	ZSystem:     "Z-System",
	CPM:         "CP/M",
	TOPS20:      "TOPS-20",
	NTFS:        "NTFS",
	QDOS:        "QDOS",
	AcornRISCOS: "Acorn RISCOS",
	Unknown:     "unknown",
}

func (o OS) String() string {
	if name, ok := osNames[o]; ok {
		return name
	}
	return "unknown"
}

// Header is the metadata carried ahead of the compressed data. A zero
// ModTime is written as 0, which readers take to mean "no time stamp".
type Header struct {
	Text      bool
	ModTime   time.Time
	OS        OS
	Extra     []byte
	Name      string
	Comment   string
	HeaderCRC bool
}

type headerReader struct {
	r   *bitstream.Reader
	raw []byte
}

func (hr *headerReader) read(n int, field string) ([]byte, error) {
	offset := hr.r.BitOffset()
	p, err := hr.r.ReadBytes(n)
	if err != nil {
		return nil, codecerr.Wrap(codecerr.ErrFormat, "gzip header", field, offset, err)
	}
	hr.raw = append(hr.raw, p...)
	return p, nil
}

// readString reads up to and including the NUL terminator and decodes the
// ISO-8859-1 bytes before it.
func (hr *headerReader) readString(field string) (string, error) {
	var s []byte
	for {
		b, err := hr.read(1, field)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			break
		}
		s = append(s, b[0])
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(s)
	if err != nil {
		return "", codecerr.Wrap(codecerr.ErrFormat, "gzip header", field, hr.r.BitOffset(), err)
	}
	return string(decoded), nil
}

// ReadHeader parses a gzip member header from the byte aligned reader r.
func ReadHeader(r *bitstream.Reader) (Header, error) {
	var h Header
	r.AlignToByte()
	start := r.BitOffset()
	hr := &headerReader{r: r}

	fixed, err := hr.read(fixedHeaderSize, "header")
	if err != nil {
		return h, err
	}
	if fixed[0] != id1 || fixed[1] != id2 {
		return h, codecerr.New(codecerr.ErrFormat, "gzip header", "magic", start, "bad magic %#02x %#02x", fixed[0], fixed[1])
	}
	if fixed[2] != methodDeflate {
		return h, codecerr.New(codecerr.ErrFormat, "gzip header", "CM", start+16, "compression method %d is not deflate", fixed[2])
	}
	flags := fixed[3]
	if flags&flagReserved != 0 {
		return h, codecerr.New(codecerr.ErrUnsupportedFeature, "gzip header", "FLG", start+24, "reserved flag bits %#02x set", flags&flagReserved)
	}
	h.Text = flags&flagText != 0
	if mtime := binary.LittleEndian.Uint32(fixed[4:8]); mtime > 0 {
		h.ModTime = time.Unix(int64(mtime), 0).UTC()
	}
	// fixed[8] is XFL, a compression level hint with no effect on decoding.
	h.OS = OS(fixed[9])

	if flags&flagExtra != 0 {
		size, err := hr.read(2, "XLEN")
		if err != nil {
			return h, err
		}
		extra, err := hr.read(int(binary.LittleEndian.Uint16(size)), "extra")
		if err != nil {
			return h, err
		}
		h.Extra = bytes.Clone(extra)
	}
	if flags&flagName != 0 {
		if h.Name, err = hr.readString("FNAME"); err != nil {
			return h, err
		}
	}
	if flags&flagComment != 0 {
		if h.Comment, err = hr.readString("FCOMMENT"); err != nil {
			return h, err
		}
	}
	if flags&flagHeaderCRC != 0 {
		h.HeaderCRC = true
		want := uint16(crc32.ChecksumIEEE(hr.raw))
		offset := r.BitOffset()
		p, err := hr.read(2, "CRC16")
		if err != nil {
			return h, err
		}
		if got := binary.LittleEndian.Uint16(p); got != want {
			return h, codecerr.New(codecerr.ErrChecksum, "gzip header", "CRC16", offset, "header crc %#04x, computed %#04x", got, want)
		}
	}

	logrus.WithFields(logrus.Fields{
		"os":    h.OS,
		"mtime": h.ModTime,
		"name":  h.Name,
		"size":  len(hr.raw),
	}).Debug("read gzip header")
	return h, nil
}

func encodeLatin1(s, field string) ([]byte, error) {
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return nil, codecerr.New(codecerr.ErrFormat, "gzip header", field, -1, "%q contains a NUL byte", s)
	}
	p, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, codecerr.Wrap(codecerr.ErrFormat, "gzip header", field, -1, err)
	}
	return p, nil
}

// WriteHeader appends h to w, which must be byte aligned.
func WriteHeader(w *bitstream.Writer, h Header) error {
	if !w.Aligned() {
		return codecerr.New(codecerr.ErrFormat, "gzip header", "", w.BitOffset(), "writer is not byte aligned")
	}

	var flags byte
	if h.Text {
		flags |= flagText
	}
	if h.HeaderCRC {
		flags |= flagHeaderCRC
	}
	if h.Extra != nil {
		if len(h.Extra) > 0xffff {
			return codecerr.New(codecerr.ErrFormat, "gzip header", "extra", -1, "%d extra bytes do not fit XLEN", len(h.Extra))
		}
		flags |= flagExtra
	}
	if h.Name != "" {
		flags |= flagName
	}
	if h.Comment != "" {
		flags |= flagComment
	}

	var mtime uint32
	if !h.ModTime.IsZero() {
		secs := h.ModTime.Unix()
		if secs < 0 || secs > 0xffffffff {
			return codecerr.New(codecerr.ErrFormat, "gzip header", "MTIME", -1, "%s is outside the gzip time range", h.ModTime)
		}
		mtime = uint32(secs)
	}

	buf := []byte{id1, id2, methodDeflate, flags, 0, 0, 0, 0, 0, byte(h.OS)}
	binary.LittleEndian.PutUint32(buf[4:8], mtime)
	if flags&flagExtra != 0 {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(h.Extra)))
		buf = append(buf, h.Extra...)
	}
	if flags&flagName != 0 {
		name, err := encodeLatin1(h.Name, "FNAME")
		if err != nil {
			return err
		}
		buf = append(append(buf, name...), 0)
	}
	if flags&flagComment != 0 {
		comment, err := encodeLatin1(h.Comment, "FCOMMENT")
		if err != nil {
			return err
		}
		buf = append(append(buf, comment...), 0)
	}
	if flags&flagHeaderCRC != 0 {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(crc32.ChecksumIEEE(buf)))
	}
	return w.WriteBytes(buf)
}
