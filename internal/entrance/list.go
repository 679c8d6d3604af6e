package entrance

import (
	"fmt"

	"github.com/udisondev/mhfentrance/internal/packet"
)

// Record sizes in bytes.
const (
	// HeaderSize is tag(3) + entry_count(2) + body_size(2) + checksum(4).
	HeaderSize = TagSize + 2 + 2 + 4

	// ServerFixedSize covers host_ip through name, without the tag-dependent tail.
	ServerFixedSize = 4 + 2 + 2 + 2 + 1 + 1 + 1 + NameSize

	// ChannelSize is port plus thirteen further uint16 fields.
	ChannelSize = 14 * 2
)

// ServerKind is the world category shown in the server selector.
type ServerKind uint8

const (
	KindUnknown ServerKind = iota
	KindOpen
	KindCities
	KindNewbie
	KindBar
)

func (k ServerKind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindOpen:
		return "open"
	case KindCities:
		return "cities"
	case KindNewbie:
		return "newbie"
	case KindBar:
		return "bar"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ActivityColor is the load indicator next to a world.
type ActivityColor uint8

const (
	ColorGreen ActivityColor = iota
	ColorOrange
	ColorBlue
)

func (c ActivityColor) String() string {
	switch c {
	case ColorGreen:
		return "green"
	case ColorOrange:
		return "orange"
	case ColorBlue:
		return "blue"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// ClientFlags is the SV2 bitmask of client platforms allowed on a world.
// 4096 is what PC and PS3/PS4 clients expect.
type ClientFlags uint32

// List is a decoded entrance server list: header fields plus server records.
// BodySize and Checksum are carried for byte-exact re-encoding only; Pack
// recomputes them.
type List struct {
	Tag        Tag
	EntryCount uint16
	BodySize   uint16
	Checksum   uint32
	Servers    []Server

	// Trailer holds bytes after the last server record (newer servers append
	// a timestamp and a constant). Re-emitted verbatim.
	Trailer []byte
}

// Server is one world record.
type Server struct {
	HostIP       uint32
	ID           uint16
	Unk2         uint16
	ChannelCount uint16
	Kind         ServerKind
	Color        ActivityColor
	Unk6         uint8
	Name         Name

	// Ext must match the list layout: SV2Ext for SV2, SVRExt otherwise.
	Ext      Extension
	Channels []Channel
}

// AllowedClientFlags returns the SV2 flags field, if the record has one.
func (s Server) AllowedClientFlags() (ClientFlags, bool) {
	if e, ok := s.Ext.(SV2Ext); ok {
		return e.AllowedClientFlags, true
	}
	return 0, false
}

// Channel is one 28-byte channel record. Unk* fields are passed through
// unchanged.
type Channel struct {
	Port           uint16
	Unk1           uint16
	MaxPlayers     uint16
	CurrentPlayers uint16
	Unk4           uint16
	Unk5           uint16
	Unk6           uint16
	Unk7           uint16
	Unk8           uint16
	Unk9           uint16
	Unk10          uint16
	Unk11          uint16
	Unk12          uint16
	Unk13          uint16
}

func (c *Channel) fields() [14]*uint16 {
	return [14]*uint16{
		&c.Port, &c.Unk1, &c.MaxPlayers, &c.CurrentPlayers,
		&c.Unk4, &c.Unk5, &c.Unk6, &c.Unk7, &c.Unk8,
		&c.Unk9, &c.Unk10, &c.Unk11, &c.Unk12, &c.Unk13,
	}
}

// Decode parses a decrypted list: the 11-byte header followed by the
// payload. A list with an unrecognised tag is decoded with the SVR layout
// and returned together with an *UnknownTagError.
func Decode(buf []byte) (List, error) {
	var l List
	r := packet.NewReader(buf)

	if err := r.ReadInto(l.Tag[:]); err != nil {
		return List{}, malformed("list header", err)
	}
	var err error
	if l.EntryCount, err = r.ReadUint16(); err != nil {
		return List{}, malformed("list header", err)
	}
	if l.BodySize, err = r.ReadUint16(); err != nil {
		return List{}, malformed("list header", err)
	}
	if l.Checksum, err = r.ReadUint32(); err != nil {
		return List{}, malformed("list header", err)
	}

	servers, trailer, err := decodeServers(r, l.Tag.Layout(), l.EntryCount)
	if err != nil {
		return List{}, err
	}
	l.Servers = servers
	l.Trailer = trailer

	if !l.Tag.Known() {
		return l, &UnknownTagError{Tag: l.Tag}
	}
	return l, nil
}

// DecodePayload parses the server records of a payload whose header was
// already consumed by the container codec.
func DecodePayload(tag Tag, entryCount uint16, payload []byte) ([]Server, []byte, error) {
	return decodeServers(packet.NewReader(payload), tag.Layout(), entryCount)
}

func decodeServers(r *packet.Reader, layout Tag, count uint16) ([]Server, []byte, error) {
	servers := make([]Server, 0, min(int(count), r.Remaining()/ServerFixedSize+1))
	for i := range int(count) {
		s, err := readServer(r, layout)
		if err != nil {
			return nil, nil, malformed(fmt.Sprintf("server %d of %d", i, count), err)
		}
		servers = append(servers, s)
	}
	var trailer []byte
	if r.Remaining() > 0 {
		trailer = r.Rest()
	}
	return servers, trailer, nil
}

func readServer(r *packet.Reader, layout Tag) (Server, error) {
	var (
		s   Server
		err error
	)
	if s.HostIP, err = r.ReadUint32(); err != nil {
		return s, err
	}
	if s.ID, err = r.ReadUint16(); err != nil {
		return s, err
	}
	if s.Unk2, err = r.ReadUint16(); err != nil {
		return s, err
	}
	if s.ChannelCount, err = r.ReadUint16(); err != nil {
		return s, err
	}
	var b byte
	if b, err = r.ReadByte(); err != nil {
		return s, err
	}
	s.Kind = ServerKind(b)
	if b, err = r.ReadByte(); err != nil {
		return s, err
	}
	s.Color = ActivityColor(b)
	if s.Unk6, err = r.ReadByte(); err != nil {
		return s, err
	}
	if err = r.ReadInto(s.Name[:]); err != nil {
		return s, fmt.Errorf("name: %w", err)
	}
	if s.Ext, err = readExtension(r, layout); err != nil {
		return s, err
	}

	if need := int(s.ChannelCount) * ChannelSize; r.Remaining() < need {
		return s, fmt.Errorf("%d channels need %d bytes, %d left: %w",
			s.ChannelCount, need, r.Remaining(), packet.ErrTruncated)
	}
	s.Channels = make([]Channel, s.ChannelCount)
	for i := range s.Channels {
		for _, f := range s.Channels[i].fields() {
			if *f, err = r.ReadUint16(); err != nil {
				return s, fmt.Errorf("channel %d: %w", i, err)
			}
		}
	}
	return s, nil
}

// Validate checks the counts and per-record layout against the tag.
func (l List) Validate() error {
	if int(l.EntryCount) != len(l.Servers) {
		return fmt.Errorf("entry_count %d != %d servers: %w", l.EntryCount, len(l.Servers), packet.ErrInvariantViolation)
	}
	layout := l.Tag.Layout()
	for i, s := range l.Servers {
		if int(s.ChannelCount) != len(s.Channels) {
			return fmt.Errorf("server %d: channel_count %d != %d channels: %w",
				i, s.ChannelCount, len(s.Channels), packet.ErrInvariantViolation)
		}
		if s.Ext == nil || s.Ext.Layout() != layout {
			return fmt.Errorf("server %d: record extension does not match %s layout: %w",
				i, layout, packet.ErrInvariantViolation)
		}
	}
	return nil
}

// PayloadSize returns the encoded length of the server records and trailer.
func (l List) PayloadSize() int {
	n := len(l.Trailer)
	for _, s := range l.Servers {
		n += ServerFixedSize + len(s.Channels)*ChannelSize
		if s.Ext != nil {
			n += s.Ext.size()
		}
	}
	return n
}

// EncodePayload returns the server records and trailer, without the header.
func (l List) EncodePayload() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	w := packet.NewWriter(l.PayloadSize())
	writeServers(w, l.Servers)
	w.WriteBytes(l.Trailer)
	return w.Bytes(), nil
}

// Encode returns the header (with the stored BodySize and Checksum) followed
// by the payload. Decode followed by Encode is byte-identical.
func (l List) Encode() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	w := packet.NewWriter(HeaderSize + l.PayloadSize())
	w.WriteBytes(l.Tag[:])
	w.WriteUint16(l.EntryCount)
	w.WriteUint16(l.BodySize)
	w.WriteUint32(l.Checksum)
	writeServers(w, l.Servers)
	w.WriteBytes(l.Trailer)
	return w.Bytes(), nil
}

func writeServers(w *packet.Writer, servers []Server) {
	for _, s := range servers {
		w.WriteUint32(s.HostIP)
		w.WriteUint16(s.ID)
		w.WriteUint16(s.Unk2)
		w.WriteUint16(s.ChannelCount)
		_ = w.WriteByte(byte(s.Kind))
		_ = w.WriteByte(byte(s.Color))
		_ = w.WriteByte(s.Unk6)
		w.WriteBytes(s.Name[:])
		s.Ext.put(w)
		for i := range s.Channels {
			for _, f := range s.Channels[i].fields() {
				w.WriteUint16(*f)
			}
		}
	}
}

func malformed(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, packet.ErrMalformedStructure, err)
}
