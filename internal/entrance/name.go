package entrance

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/udisondev/mhfentrance/internal/packet"
)

// NameSize is the fixed width of the server name field.
const NameSize = 66

// Name is the raw Shift-JIS server name field.
// The raw bytes are kept so unknown padding survives a decode/encode cycle.
type Name [NameSize]byte

// NewName encodes s as Shift-JIS. Text longer than NameSize-1 bytes is cut
// on a character boundary; the rest is zero filled so the field is always
// NUL terminated.
func NewName(s string) (Name, error) {
	var n Name
	raw, err := encodeSJIS(s)
	if err != nil {
		return n, fmt.Errorf("server name %q: %w", s, err)
	}
	copy(n[:], truncateSJIS(raw, NameSize-1))
	return n, nil
}

// NewNameWithDescription packs name, a NUL, then description into one field,
// the way the entrance server advertises a world's subtitle.
func NewNameWithDescription(name, description string) (Name, error) {
	if description == "" {
		return NewName(name)
	}
	var n Name
	rawName, err := encodeSJIS(name)
	if err != nil {
		return n, fmt.Errorf("server name %q: %w", name, err)
	}
	rawDesc, err := encodeSJIS(description)
	if err != nil {
		return n, fmt.Errorf("server description %q: %w", description, err)
	}
	combined := append(append(rawName, 0x00), rawDesc...)
	copy(n[:], truncateSJIS(combined, NameSize-1))
	return n, nil
}

// String returns the decoded text up to the first NUL. Without a NUL the
// whole field is used, minus trailing spaces.
func (n Name) String() string {
	raw := n[:]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	} else {
		raw = bytes.TrimRight(raw, " ")
	}
	return decodeSJIS(raw)
}

// Description returns the text stored after the first NUL, if any.
func (n Name) Description() string {
	i := bytes.IndexByte(n[:], 0)
	if i < 0 {
		return ""
	}
	rest := n[i+1:]
	if j := bytes.IndexByte(rest, 0); j >= 0 {
		rest = rest[:j]
	}
	return decodeSJIS(rest)
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func encodeSJIS(s string) ([]byte, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("not representable in Shift-JIS: %w", packet.ErrInvariantViolation)
	}
	return out, nil
}

func decodeSJIS(raw []byte) string {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// truncateSJIS cuts raw to at most limit bytes without splitting a
// double-byte character.
func truncateSJIS(raw []byte, limit int) []byte {
	if len(raw) <= limit {
		return raw
	}
	i := 0
	for i < len(raw) {
		w := 1
		if isSJISLead(raw[i]) {
			w = 2
		}
		if i+w > limit {
			break
		}
		i += w
	}
	return raw[:i]
}

func isSJISLead(b byte) bool {
	return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
}
