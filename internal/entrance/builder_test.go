package entrance

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/mhfentrance/internal/config"
	"github.com/udisondev/mhfentrance/internal/testutil"
)

type fakePopulation struct {
	counts map[int]uint16
	fail   map[int]bool
	calls  []int
}

func (f *fakePopulation) CurrentPlayers(_ context.Context, serverID int) (uint16, error) {
	f.calls = append(f.calls, serverID)
	if f.fail[serverID] {
		return 0, testutil.ErrSimulated
	}
	return f.counts[serverID], nil
}

func testBuilderConfig() config.Entrance {
	cfg := config.DefaultEntrance()
	cfg.Host = "192.168.1.10"
	cfg.Entries = []config.EntranceEntry{
		{
			Name:               "Sahara",
			Description:        "Open",
			Type:               1,
			Recommended:        3,
			AllowedClientFlags: 4096,
			Channels: []config.EntranceChannel{
				{Port: 54001, MaxPlayers: 100},
				{Port: 54002, MaxPlayers: 50, Unknown: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
			},
		},
		{
			Name:     "Bar",
			IP:       "10.0.0.5",
			Type:     4,
			Channels: []config.EntranceChannel{{Port: 54010, MaxPlayers: 4}},
		},
	}
	return cfg
}

func fixedDay(day int64) func() time.Time {
	return func() time.Time { return time.Unix(day*86400+3600, 0) }
}

func TestBuilder_Build(t *testing.T) {
	pop := &fakePopulation{
		counts: map[int]uint16{ChannelServerID(0, 0): 42, ChannelServerID(0, 1): 7},
		fail:   map[int]bool{ChannelServerID(1, 0): true},
	}
	b := NewBuilder(testBuilderConfig(), WithPopulation(pop), WithClock(fixedDay(10)))

	list, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, list.Validate())

	assert.Equal(t, TagSV2, list.Tag)
	assert.Equal(t, uint16(2), list.EntryCount)
	require.Len(t, list.Servers, 2)

	s0 := list.Servers[0]
	assert.Equal(t, uint32(0x0A01A8C0), s0.HostIP)
	assert.Equal(t, netip.MustParseAddr("192.168.1.10"), s0.Addr())
	assert.Equal(t, uint16(16), s0.ID)
	assert.Equal(t, KindOpen, s0.Kind)
	assert.Equal(t, ColorOrange, s0.Color)
	assert.Equal(t, uint8(3), s0.Unk6)
	assert.Equal(t, "Sahara", s0.Name.String())
	assert.Equal(t, "Open", s0.Name.Description())
	flags, ok := s0.AllowedClientFlags()
	require.True(t, ok)
	assert.Equal(t, ClientFlags(4096), flags)

	require.Len(t, s0.Channels, 2)
	assert.Equal(t, Channel{
		Port: 54001, Unk1: 16, MaxPlayers: 100, CurrentPlayers: 42,
		Unk10: 319, Unk11: 252, Unk12: 248, Unk13: 12345,
	}, s0.Channels[0])
	assert.Equal(t, Channel{
		Port: 54002, Unk1: 17, MaxPlayers: 50, CurrentPlayers: 7,
		Unk4: 1, Unk5: 2, Unk6: 3, Unk7: 4, Unk8: 5,
		Unk9: 6, Unk10: 7, Unk11: 8, Unk12: 9, Unk13: 10,
	}, s0.Channels[1])

	s1 := list.Servers[1]
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), s1.Addr())
	assert.Equal(t, uint16(17), s1.ID)
	assert.Equal(t, ColorBlue, s1.Color)
	assert.Equal(t, uint16(0), s1.Channels[0].CurrentPlayers, "failed lookups report zero")

	assert.Equal(t, []int{4112, 4113, 4368}, pop.calls)

	_, err = list.Pack(0)
	require.NoError(t, err)
}

func TestBuilder_SVRAndLocal(t *testing.T) {
	cfg := testBuilderConfig()
	cfg.Tag = "SVR"
	cfg.Local = true

	list, err := NewBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	for _, s := range list.Servers {
		assert.Equal(t, SVRExt{}, s.Ext)
		assert.Equal(t, uint32(0x0100007F), s.HostIP)
		assert.Equal(t, uint16(0), s.Channels[0].CurrentPlayers)
	}

	wire, err := list.Pack(0x10)
	require.NoError(t, err)
	got, _, err := Unpack(wire)
	require.NoError(t, err)
	assert.Equal(t, TagSVR, got.Tag)
	assert.Len(t, got.Servers, 2)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("bad tag", func(t *testing.T) {
		cfg := testBuilderConfig()
		cfg.Tag = "USR"
		_, err := NewBuilder(cfg).Build(context.Background())
		assert.Error(t, err)
	})

	t.Run("bad ip", func(t *testing.T) {
		cfg := testBuilderConfig()
		cfg.Entries[1].IP = "not-an-ip"
		_, err := NewBuilder(cfg).Build(context.Background())
		assert.ErrorContains(t, err, "entry 1 (Bar)")
	})

	t.Run("ipv6", func(t *testing.T) {
		cfg := testBuilderConfig()
		cfg.Entries[1].IP = "::1"
		_, err := NewBuilder(cfg).Build(context.Background())
		assert.Error(t, err)
	})
}

func TestChannelServerID(t *testing.T) {
	assert.Equal(t, 4112, ChannelServerID(0, 0))
	assert.Equal(t, 4369, ChannelServerID(1, 1))
}
