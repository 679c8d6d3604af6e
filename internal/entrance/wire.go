package entrance

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/udisondev/mhfentrance/internal/packet"
	"github.com/udisondev/mhfentrance/internal/protocol"
)

// Pack frames l as a Binary8 part encrypted with key. BodySize and Checksum
// are recomputed from the encoded payload; the stored values are ignored.
func (l List) Pack(key byte) ([]byte, error) {
	payload, err := l.EncodePayload()
	if err != nil {
		return nil, fmt.Errorf("packing %s list: %w", l.Tag, err)
	}
	wire, err := protocol.WritePart(key, protocol.Type(l.Tag), l.EntryCount, payload)
	if err != nil {
		return nil, fmt.Errorf("packing %s list: %w", l.Tag, err)
	}
	return wire, nil
}

// FromPart decodes the list carried by a decrypted part.
func FromPart(p protocol.Part) (List, error) {
	return Decode(p.Plain())
}

// Unpack decrypts and decodes the first part of wire.
//
// Recoverable conditions (checksum mismatch, unknown tag) still return the
// decoded list and part; the error then wraps packet.ErrCorruptData and/or
// packet.ErrMalformedStructure.
func Unpack(wire []byte) (List, protocol.Part, error) {
	p, err := protocol.ReadPart(bytes.NewReader(wire))
	var ce *protocol.ChecksumError
	if err != nil && !errors.As(err, &ce) {
		return List{}, p, fmt.Errorf("unpacking list: %w", err)
	}

	l, lerr := FromPart(p)
	var ute *UnknownTagError
	if lerr != nil && !errors.As(lerr, &ute) {
		return List{}, p, errors.Join(err, fmt.Errorf("unpacking list: %w", lerr))
	}
	return l, p, errors.Join(err, lerr)
}

// IsRecoverable reports whether err only carries conditions that leave the
// decoded value usable: checksum mismatches and the SVR fallback.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, packet.ErrTruncated) || errors.Is(err, packet.ErrInvariantViolation) {
		return false
	}
	var (
		ce  *protocol.ChecksumError
		ute *UnknownTagError
	)
	if !errors.As(err, &ce) && !errors.As(err, &ute) {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !IsRecoverable(e) {
				return false
			}
		}
	}
	return true
}
