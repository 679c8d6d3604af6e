package packet

import (
	"encoding/binary"
	"fmt"
)

// Reader reads fixed-width fields from a fully buffered packet.
// Uses Big-Endian byte order for all multi-byte values.
// Short reads return an error wrapping ErrTruncated and leave the position unchanged.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new packet reader.
func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
		pos:  0,
	}
}

func (r *Reader) need(op string, n int) error {
	if n < 0 {
		return fmt.Errorf("%s: negative count %d", op, n)
	}
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%s: need %d bytes at pos=%d, len=%d: %w", op, n, r.pos, len(r.data), ErrTruncated)
	}
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need("ReadByte", 1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a uint16 (2 bytes, BE).
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need("ReadUint16", 2); err != nil {
		return 0, err
	}
	val := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ReadUint32 reads a uint32 (4 bytes, BE).
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need("ReadUint32", 4); err != nil {
		return 0, err
	}
	val := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return val, nil
}

// ReadBytes reads n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need("ReadBytes", n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadInto fills dst completely.
func (r *Reader) ReadInto(dst []byte) error {
	if err := r.need("ReadInto", len(dst)); err != nil {
		return err
	}
	copy(dst, r.data[r.pos:])
	r.pos += len(dst)
	return nil
}

// Rest returns a copy of all unread bytes and moves to the end.
func (r *Reader) Rest() []byte {
	out := make([]byte, len(r.data)-r.pos)
	copy(out, r.data[r.pos:])
	r.pos = len(r.data)
	return out
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read offset.
func (r *Reader) Position() int {
	return r.pos
}
