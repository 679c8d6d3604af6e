package packet

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates packet fields.
// Uses Big-Endian byte order for all multi-byte values.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new packet writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: bytes.NewBuffer(make([]byte, 0, capacity)),
	}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteUint16 writes a uint16 (2 bytes, BE).
func (w *Writer) WriteUint16(val uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], val)
	w.buf.Write(tmp[:])
}

// WriteUint32 writes a uint32 (4 bytes, BE).
func (w *Writer) WriteUint32(val uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], val)
	w.buf.Write(tmp[:])
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	_, _ = w.buf.Write(data)
}

// Bytes returns the accumulated packet data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the current length of the packet.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
}
