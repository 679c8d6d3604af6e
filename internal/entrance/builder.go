package entrance

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/udisondev/mhfentrance/internal/config"
)

// PopulationSource reports the live player count of a channel server.
type PopulationSource interface {
	CurrentPlayers(ctx context.Context, serverID int) (uint16, error)
}

// ChannelServerID is the id a channel registers under in the servers table.
func ChannelServerID(serverIdx, channelIdx int) int {
	return (4096 + serverIdx*256) + (16 + channelIdx)
}

// HostIPFromAddr packs an IPv4 address the way clients read host_ip: the
// four octets in reverse order (127.0.0.1 -> 0x0100007F).
func HostIPFromAddr(addr netip.Addr) (uint32, error) {
	if !addr.Is4() && !addr.Is4In6() {
		return 0, fmt.Errorf("host %s is not IPv4", addr)
	}
	ip4 := addr.Unmap().As4()
	return binary.LittleEndian.Uint32(ip4[:]), nil
}

// Addr is the inverse of HostIPFromAddr.
func (s Server) Addr() netip.Addr {
	var ip4 [4]byte
	binary.LittleEndian.PutUint32(ip4[:], s.HostIP)
	return netip.AddrFrom4(ip4)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPopulation fills CurrentPlayers from src.
func WithPopulation(src PopulationSource) BuilderOption {
	return func(b *Builder) {
		b.population = src
	}
}

// WithClock overrides the time source used for the activity colour rotation.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// Builder assembles a List from configured entries.
type Builder struct {
	cfg        config.Entrance
	population PopulationSource
	now        func() time.Time
}

// NewBuilder creates a Builder for cfg.
func NewBuilder(cfg config.Entrance, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build returns the list for the configured tag. Channel player counts come
// from the population source when one is set; lookup failures are logged and
// reported as zero players.
func (b *Builder) Build(ctx context.Context) (List, error) {
	tag, err := ParseTag(b.cfg.Tag)
	if err != nil {
		return List{}, err
	}

	day := b.now().Unix() / 86400
	servers := make([]Server, 0, len(b.cfg.Entries))
	for i, entry := range b.cfg.Entries {
		s, err := b.server(ctx, tag, i, entry, day)
		if err != nil {
			return List{}, fmt.Errorf("entry %d (%s): %w", i, entry.Name, err)
		}
		servers = append(servers, s)
	}

	return List{
		Tag:        tag,
		EntryCount: uint16(len(servers)),
		Servers:    servers,
	}, nil
}

func (b *Builder) server(ctx context.Context, tag Tag, idx int, entry config.EntranceEntry, day int64) (Server, error) {
	hostIP, err := b.hostIP(entry)
	if err != nil {
		return Server{}, err
	}
	name, err := NewNameWithDescription(entry.Name, entry.Description)
	if err != nil {
		return Server{}, err
	}

	s := Server{
		HostIP:       hostIP,
		ID:           uint16(16 + idx),
		ChannelCount: uint16(len(entry.Channels)),
		Kind:         ServerKind(entry.Type),
		Color:        ActivityColor((day + int64(idx)) % 3),
		Unk6:         entry.Recommended,
		Name:         name,
		Channels:     make([]Channel, 0, len(entry.Channels)),
	}
	if tag == TagSV2 {
		s.Ext = SV2Ext{AllowedClientFlags: ClientFlags(entry.AllowedClientFlags)}
	} else {
		s.Ext = SVRExt{}
	}

	for j, ch := range entry.Channels {
		unk := ch.UnknownFields()
		s.Channels = append(s.Channels, Channel{
			Port:           ch.Port,
			Unk1:           uint16(16 + j),
			MaxPlayers:     ch.MaxPlayers,
			CurrentPlayers: b.currentPlayers(ctx, ChannelServerID(idx, j)),
			Unk4:           unk[0],
			Unk5:           unk[1],
			Unk6:           unk[2],
			Unk7:           unk[3],
			Unk8:           unk[4],
			Unk9:           unk[5],
			Unk10:          unk[6],
			Unk11:          unk[7],
			Unk12:          unk[8],
			Unk13:          unk[9],
		})
	}
	return s, nil
}

func (b *Builder) hostIP(entry config.EntranceEntry) (uint32, error) {
	host := entry.IP
	if host == "" {
		host = b.cfg.Host
	}
	if b.cfg.Local {
		host = "127.0.0.1"
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return 0, fmt.Errorf("parsing host %q: %w", host, err)
	}
	return HostIPFromAddr(addr)
}

func (b *Builder) currentPlayers(ctx context.Context, serverID int) uint16 {
	if b.population == nil {
		return 0
	}
	n, err := b.population.CurrentPlayers(ctx, serverID)
	if err != nil {
		slog.Warn("population lookup failed", "server_id", serverID, "err", err)
		return 0
	}
	slog.Debug("population", "server_id", serverID, "current_players", n)
	return n
}
