package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/udisondev/mhfentrance/internal/packet"
)

// Binary8 framing sizes.
const (
	// TypeSize is the length of the ASCII type tag ("SV2", "SVR", "USR").
	TypeSize = 3

	// HeaderSize is the plaintext header: type(3) entries(2) size(2) sum(4).
	HeaderSize = TypeSize + 2 + 2 + 4

	// PrefixSize is the key byte plus the encrypted header.
	PrefixSize = 1 + HeaderSize

	// EmptyPrefixSize is a compact empty part: key, type, entries, size and
	// no checksum.
	EmptyPrefixSize = 1 + TypeSize + 2 + 2

	// MaxBodySize is the largest payload a 16-bit body_size can describe.
	MaxBodySize = 0xFFFF
)

// Type is the three-byte tag at the start of every Binary8 header.
type Type [TypeSize]byte

// ParseType converts a three-character tag.
func ParseType(s string) (Type, error) {
	var t Type
	if len(s) != TypeSize {
		return t, fmt.Errorf("part type %q: must be %d bytes: %w", s, TypeSize, packet.ErrInvariantViolation)
	}
	copy(t[:], s)
	return t, nil
}

func (t Type) String() string {
	return string(t[:])
}

// Header is the decrypted Binary8 header.
// BodySize is the exact length of the payload that follows and that Checksum covers.
type Header struct {
	Type       Type
	EntryCount uint16
	BodySize   uint16
	Checksum   uint32
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, fmt.Errorf("parse header: need %d bytes, have %d: %w", HeaderSize, len(b), packet.ErrTruncated)
	}
	copy(h.Type[:], b[:TypeSize])
	h.EntryCount = binary.BigEndian.Uint16(b[3:])
	h.BodySize = binary.BigEndian.Uint16(b[5:])
	h.Checksum = binary.BigEndian.Uint32(b[7:])
	return h, nil
}

// Put writes the header into the first HeaderSize bytes of dst.
func (h Header) Put(dst []byte) {
	_ = dst[HeaderSize-1]
	copy(dst[:TypeSize], h.Type[:])
	binary.BigEndian.PutUint16(dst[3:], h.EntryCount)
	binary.BigEndian.PutUint16(dst[5:], h.BodySize)
	binary.BigEndian.PutUint32(dst[7:], h.Checksum)
}
