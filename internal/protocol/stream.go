package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/udisondev/mhfentrance/internal/crypto"
)

// StreamReader reads the consecutive parts of one entrance response.
//
// Besides regular parts it accepts the compact empty form (EmptyPrefixSize
// bytes, no checksum field) that servers emit for empty lists. A part with
// body_size 0 is taken as compact unless a full 12-byte prefix is available
// and its checksum field decrypts to zero.
type StreamReader struct {
	br     *bufio.Reader
	offset int
	index  int
}

// NewStreamReader wraps r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{br: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed by the parts read so far.
func (s *StreamReader) Offset() int {
	return s.offset
}

// Next reads the next part. It returns io.EOF, unwrapped, once the stream
// ends cleanly on a part boundary. Errors carry the part index; a checksum
// mismatch returns the complete Part together with a *ChecksumError.
func (s *StreamReader) Next() (Part, error) {
	prefix, err := s.br.Peek(PrefixSize)
	if len(prefix) == 0 {
		if errors.Is(err, io.EOF) {
			return Part{}, io.EOF
		}
		return Part{}, fmt.Errorf("part %d: %w", s.index, err)
	}

	if p, ok := compactPart(prefix); ok {
		if _, err := s.br.Discard(EmptyPrefixSize); err != nil {
			return Part{}, fmt.Errorf("part %d: %w", s.index, err)
		}
		s.offset += EmptyPrefixSize
		s.index++
		return p, nil
	}

	p, err := ReadPart(s.br)
	var ce *ChecksumError
	if err != nil && !errors.As(err, &ce) {
		return Part{}, fmt.Errorf("part %d: %w", s.index, err)
	}
	s.offset += PrefixSize + int(p.Header.BodySize)
	s.index++
	if err != nil {
		return p, fmt.Errorf("part %d: %w", s.index-1, err)
	}
	return p, nil
}

// compactPart decodes prefix as a compact empty part if it is one.
func compactPart(prefix []byte) (Part, bool) {
	if len(prefix) < EmptyPrefixSize {
		return Part{}, false
	}
	plain := crypto.Bin8(prefix[1:], prefix[0])
	if binary.BigEndian.Uint16(plain[5:]) != 0 {
		return Part{}, false
	}
	if len(plain) >= HeaderSize && binary.BigEndian.Uint32(plain[7:]) == 0 {
		return Part{}, false
	}

	p := Part{
		Key:     prefix[0],
		Payload: []byte{},
		Compact: true,
	}
	copy(p.Header.Type[:], plain[:TypeSize])
	p.Header.EntryCount = binary.BigEndian.Uint16(plain[3:])
	return p, true
}
