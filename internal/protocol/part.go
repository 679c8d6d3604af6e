package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/udisondev/mhfentrance/internal/crypto"
	"github.com/udisondev/mhfentrance/internal/packet"
)

// Part is one decoded Binary8 unit: key byte, header and plaintext payload.
// len(Payload) == Header.BodySize for every Part produced by this package.
type Part struct {
	Key     byte
	Header  Header
	Payload []byte

	// Compact marks an empty part framed without the checksum field
	// (EmptyPrefixSize bytes on the wire). Only StreamReader produces it.
	Compact bool
}

// ChecksumError reports a payload whose Sum32 differs from the header.
// The Part returned alongside it is complete.
type ChecksumError struct {
	Type Type
	Want uint32
	Got  uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s part checksum mismatch: header 0x%08X, payload 0x%08X", e.Type, e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error {
	return packet.ErrCorruptData
}

// ReadPart reads one Binary8 part from r.
//
// Wire layout: key(1) || bin8(key, header(11) || payload(body_size)).
// The header is decrypted first to learn body_size; the payload is decrypted
// with the same keystream run continuing after the header.
//
// Short input yields an error wrapping packet.ErrTruncated (and io.EOF when
// r was empty). A checksum mismatch yields the full Part together with a
// *ChecksumError.
func ReadPart(r io.Reader) (Part, error) {
	var p Part

	var prefix [PrefixSize]byte
	n, err := io.ReadFull(r, prefix[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return p, fmt.Errorf("reading part header: %w (%w)", packet.ErrTruncated, io.EOF)
		}
		return p, fmt.Errorf("reading part header: got %d of %d bytes: %w", n, PrefixSize, packet.ErrTruncated)
	}

	p.Key = prefix[0]
	stream := crypto.NewBin8Stream(p.Key)

	var plain [HeaderSize]byte
	stream.XORKeyStream(plain[:], prefix[1:])
	p.Header, err = ParseHeader(plain[:])
	if err != nil {
		return p, err
	}

	p.Payload = make([]byte, p.Header.BodySize)
	if n, err := io.ReadFull(r, p.Payload); err != nil {
		return Part{}, fmt.Errorf("reading %s payload: got %d of %d bytes: %w", p.Header.Type, n, p.Header.BodySize, packet.ErrTruncated)
	}
	stream.XORKeyStream(p.Payload, p.Payload)

	if err := p.Verify(); err != nil {
		return p, err
	}
	return p, nil
}

// DecodePart decodes one part from the front of wire and reports how many
// bytes it consumed.
func DecodePart(wire []byte) (Part, int, error) {
	br := bytes.NewReader(wire)
	p, err := ReadPart(br)
	return p, len(wire) - br.Len(), err
}

// ReadParts reads consecutive parts until r is exhausted.
// Checksum mismatches are collected and reading continues; any other error
// stops reading. Parts decoded so far are always returned.
func ReadParts(r io.Reader) ([]Part, error) {
	var (
		sr    = NewStreamReader(r)
		parts []Part
		errs  []error
	)
	for {
		p, err := sr.Next()
		if err != nil {
			var ce *ChecksumError
			switch {
			case errors.As(err, &ce):
				errs = append(errs, err)
			case err == io.EOF:
				return parts, errors.Join(errs...)
			default:
				errs = append(errs, err)
				return parts, errors.Join(errs...)
			}
		}
		parts = append(parts, p)
	}
}

// Verify compares the header checksum against Sum32 of the payload.
// Empty payloads carry no checksum input and always verify.
func (p Part) Verify() error {
	if len(p.Payload) == 0 {
		return nil
	}
	sum, err := crypto.Sum32(p.Payload)
	if err != nil {
		return fmt.Errorf("verifying %s part: %w", p.Header.Type, err)
	}
	if sum != p.Header.Checksum {
		return &ChecksumError{Type: p.Header.Type, Want: p.Header.Checksum, Got: sum}
	}
	return nil
}

// Plain returns the decrypted header followed by the payload.
func (p Part) Plain() []byte {
	out := make([]byte, HeaderSize+len(p.Payload))
	p.Header.Put(out)
	copy(out[HeaderSize:], p.Payload)
	return out
}

// Encode returns the wire bytes for p using its stored header verbatim, so a
// Part obtained from ReadPart re-encodes to the original bytes.
func (p Part) Encode() ([]byte, error) {
	if int(p.Header.BodySize) != len(p.Payload) {
		return nil, fmt.Errorf("encode %s part: body_size %d != payload length %d: %w",
			p.Header.Type, p.Header.BodySize, len(p.Payload), packet.ErrInvariantViolation)
	}
	if p.Compact {
		if len(p.Payload) != 0 {
			return nil, fmt.Errorf("encode %s part: compact part with %d payload bytes: %w",
				p.Header.Type, len(p.Payload), packet.ErrInvariantViolation)
		}
		return WriteEmptyPart(p.Key, p.Header.Type, p.Header.EntryCount), nil
	}
	out := make([]byte, PrefixSize+len(p.Payload))
	out[0] = p.Key
	p.Header.Put(out[1:])
	copy(out[PrefixSize:], p.Payload)
	crypto.Bin8InPlace(out[1:], p.Key)
	return out, nil
}

// WriteTo writes the encoded part to w.
func (p Part) WriteTo(w io.Writer) (int64, error) {
	data, err := p.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("writing %s part: %w", p.Header.Type, err)
	}
	return int64(n), nil
}

// NewPart frames payload with a freshly computed header.
// The payload must be non-empty (Sum32 needs input) and at most MaxBodySize bytes.
func NewPart(key byte, typ Type, entryCount uint16, payload []byte) (Part, error) {
	if len(payload) > MaxBodySize {
		return Part{}, fmt.Errorf("new %s part: payload %d bytes exceeds %d: %w",
			typ, len(payload), MaxBodySize, packet.ErrInvariantViolation)
	}
	sum, err := crypto.Sum32(payload)
	if err != nil {
		return Part{}, fmt.Errorf("new %s part: %w: %w", typ, packet.ErrInvariantViolation, err)
	}
	return Part{
		Key: key,
		Header: Header{
			Type:       typ,
			EntryCount: entryCount,
			BodySize:   uint16(len(payload)),
			Checksum:   sum,
		},
		Payload: payload,
	}, nil
}

// WritePart frames and encrypts payload:
//
//	key || bin8(key, type || entryCount || len(payload) || Sum32(payload) || payload)
func WritePart(key byte, typ Type, entryCount uint16, payload []byte) ([]byte, error) {
	p, err := NewPart(key, typ, entryCount, payload)
	if err != nil {
		return nil, err
	}
	return p.Encode()
}

// WriteEmptyPart frames a part without payload in the compact form the
// entrance server sends for empty lists: key || bin8(key, type || entryCount || 0).
// The checksum field is omitted.
func WriteEmptyPart(key byte, typ Type, entryCount uint16) []byte {
	out := make([]byte, EmptyPrefixSize)
	out[0] = key
	copy(out[1:], typ[:])
	binary.BigEndian.PutUint16(out[1+TypeSize:], entryCount)
	crypto.Bin8InPlace(out[1:], key)
	return out
}
