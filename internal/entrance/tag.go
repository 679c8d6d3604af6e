package entrance

import (
	"fmt"

	"github.com/udisondev/mhfentrance/internal/packet"
)

// TagSize is the length of the list type tag.
const TagSize = 3

// Tag selects the server record layout.
type Tag [TagSize]byte

var (
	// TagSV2 records carry a 4-byte allowed-client-flags field after the name.
	TagSV2 = Tag{'S', 'V', '2'}
	// TagSVR records end at the name (older clients).
	TagSVR = Tag{'S', 'V', 'R'}
)

// ParseTag converts "SV2" or "SVR". Other values are rejected.
func ParseTag(s string) (Tag, error) {
	var t Tag
	if len(s) != TagSize {
		return t, fmt.Errorf("list tag %q: %w", s, packet.ErrInvariantViolation)
	}
	copy(t[:], s)
	if !t.Known() {
		return t, fmt.Errorf("list tag %q: %w", s, packet.ErrInvariantViolation)
	}
	return t, nil
}

func (t Tag) String() string {
	return string(t[:])
}

// Known reports whether t is SV2 or SVR.
func (t Tag) Known() bool {
	return t == TagSV2 || t == TagSVR
}

// Layout returns the tag whose record layout applies to t.
// Unrecognised tags fall back to the SVR layout (no flags field).
func (t Tag) Layout() Tag {
	if t == TagSV2 {
		return TagSV2
	}
	return TagSVR
}

// UnknownTagError is returned by Decode when the tag is neither SV2 nor SVR.
// The list is still decoded, using the SVR layout.
type UnknownTagError struct {
	Tag Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown list tag %q, decoded with SVR layout", e.Tag[:])
}

func (e *UnknownTagError) Unwrap() error {
	return packet.ErrMalformedStructure
}

// Extension is the tag-dependent tail of a server record.
// Implemented by SV2Ext and SVRExt only.
type Extension interface {
	// Layout reports which list tag this extension belongs to.
	Layout() Tag
	size() int
	put(w *packet.Writer)
}

// SV2Ext carries the fields present only in SV2 lists.
type SV2Ext struct {
	AllowedClientFlags ClientFlags
}

func (SV2Ext) Layout() Tag { return TagSV2 }
func (SV2Ext) size() int   { return 4 }

func (e SV2Ext) put(w *packet.Writer) {
	w.WriteUint32(uint32(e.AllowedClientFlags))
}

// SVRExt is the empty SVR tail.
type SVRExt struct{}

func (SVRExt) Layout() Tag          { return TagSVR }
func (SVRExt) size() int            { return 0 }
func (SVRExt) put(_ *packet.Writer) {}

func readExtension(r *packet.Reader, layout Tag) (Extension, error) {
	if layout != TagSV2 {
		return SVRExt{}, nil
	}
	flags, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("allowed client flags: %w", err)
	}
	return SV2Ext{AllowedClientFlags: ClientFlags(flags)}, nil
}
