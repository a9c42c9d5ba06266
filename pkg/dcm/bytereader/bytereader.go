// Package bytereader implements a bounds-checked, endian-aware cursor over
// a single contiguous byte buffer. It underlies the Parser's element-walking
// state machine; unlike the teacher's stream-oriented pkg/dicos/reader.go
// (which wraps io.Reader and reads forward-only), the Decoder owns one
// fully-loaded file buffer (see design §3.2), so random-access bounds
// checking over a slice is the right shape here. The PixelReader's hot
// per-pixel loops (pkg/dcm/pixel) index the same kind of buffer directly
// instead: one bulk bounds check up front, then raw slicing, since a
// per-pixel error return here would cost more than it guards against.
package bytereader

import (
	"encoding/binary"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
)

// Endian selects the byte order used to interpret multi-byte integers.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Reader is a bounds-checked cursor over buf. The zero value is not usable;
// construct with New.
type Reader struct {
	buf    []byte
	cursor int64
}

// New returns a Reader positioned at the start of buf. buf is not copied;
// the caller must keep it alive and immutable for the Reader's lifetime.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total buffer length.
func (r *Reader) Len() int64 { return int64(len(r.buf)) }

// Pos returns the current cursor offset.
func (r *Reader) Pos() int64 { return r.cursor }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 { return int64(len(r.buf)) - r.cursor }

// Seek moves the cursor to an absolute offset. Returns OutOfBounds if
// offset is negative or past the end of the buffer (offset == len(buf) is
// allowed, positioning the cursor at EOF).
func (r *Reader) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(r.buf)) {
		return dcmerr.New(dcmerr.KindInvalidFormat, "seek to %d out of bounds [0,%d]", offset, len(r.buf))
	}
	r.cursor = offset
	return nil
}

// ReadBytes returns the next n bytes and advances the cursor. The returned
// slice aliases the underlying buffer; callers that retain it beyond the
// Decoder's lifetime must copy it themselves.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "underflow: want %d bytes, have %d", n, r.Remaining())
	}
	b := r.buf[r.cursor : r.cursor+int64(n)]
	r.cursor += int64(n)
	return b, nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "underflow: want %d bytes, have %d", n, r.Remaining())
	}
	return r.buf[r.cursor : r.cursor+int64(n)], nil
}

// ReadU16 reads a 16-bit unsigned integer in the given byte order.
func (r *Reader) ReadU16(endian Endian) (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return endian.order().Uint16(b), nil
}

// ReadU32 reads a 32-bit unsigned integer in the given byte order.
func (r *Reader) ReadU32(endian Endian) (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return endian.order().Uint32(b), nil
}

// ReadU64 reads a 64-bit unsigned integer in the given byte order.
func (r *Reader) ReadU64(endian Endian) (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return endian.order().Uint64(b), nil
}

// ReadI16 reads a 16-bit signed (two's-complement) integer.
func (r *Reader) ReadI16(endian Endian) (int16, error) {
	u, err := r.ReadU16(endian)
	if err != nil {
		return 0, err
	}
	return int16(u), nil
}

// Bytes returns the full underlying buffer (read-only use expected).
func (r *Reader) Bytes() []byte { return r.buf }
