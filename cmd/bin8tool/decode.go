package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/mhfentrance/internal/entrance"
	"github.com/udisondev/mhfentrance/internal/protocol"
)

type fileView struct {
	File     string     `yaml:"file"`
	Parts    []partView `yaml:"parts"`
	Trailing string     `yaml:"trailing,omitempty"`
}

type partView struct {
	Offset     int          `yaml:"offset"`
	Key        string       `yaml:"key"`
	Type       string       `yaml:"type"`
	EntryCount uint16       `yaml:"entry_count"`
	BodySize   uint16       `yaml:"body_size"`
	Checksum   string       `yaml:"checksum"`
	ChecksumOK bool         `yaml:"checksum_ok"`
	Compact    bool         `yaml:"compact,omitempty"`
	Servers    []serverView `yaml:"servers,omitempty"`
	Trailer    string       `yaml:"trailer,omitempty"`
	Payload    string       `yaml:"payload,omitempty"`
	Error      string       `yaml:"error,omitempty"`
}

type serverView struct {
	Host               string        `yaml:"host"`
	HostIP             string        `yaml:"host_ip"`
	ID                 uint16        `yaml:"id"`
	Unk2               uint16        `yaml:"unk2"`
	Kind               string        `yaml:"kind"`
	Color              string        `yaml:"color"`
	Unk6               uint8         `yaml:"unk6"`
	Name               string        `yaml:"name"`
	Description        string        `yaml:"description,omitempty"`
	AllowedClientFlags *uint32       `yaml:"allowed_client_flags,omitempty"`
	Channels           []channelView `yaml:"channels"`
}

type channelView struct {
	Port           uint16     `yaml:"port"`
	ID             uint16     `yaml:"id"`
	MaxPlayers     uint16     `yaml:"max_players"`
	CurrentPlayers uint16     `yaml:"current_players"`
	Unknown        [10]uint16 `yaml:"unknown,flow"`
}

func runDecode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("decode: no input files")
	}
	if _, err := loadConfig(*cfgPath); err != nil {
		return err
	}

	views, err := decodeFiles(ctx, fs.Args())
	if err != nil {
		return err
	}
	return writeViews(os.Stdout, views)
}

// decodeFiles decodes every file concurrently; results keep input order.
func decodeFiles(ctx context.Context, paths []string) ([]fileView, error) {
	views := make([]fileView, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			views[i] = decodeWire(path, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func writeViews(w io.Writer, views []fileView) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, v := range views {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding %s: %w", v.File, err)
		}
	}
	return enc.Close()
}

// decodeWire splits data into consecutive parts. Bytes that do not form a
// complete part are reported as trailing hex.
func decodeWire(name string, data []byte) fileView {
	view := fileView{File: name}
	sr := protocol.NewStreamReader(bytes.NewReader(data))
	for {
		off := sr.Offset()
		p, err := sr.Next()
		if err == io.EOF {
			break
		}
		var ce *protocol.ChecksumError
		if err != nil && !errors.As(err, &ce) {
			slog.Debug("incomplete part at end of file", "file", name, "offset", off, "bytes", len(data)-off, "err", err)
			view.Trailing = hex.EncodeToString(data[off:])
			break
		}
		view.Parts = append(view.Parts, describePart(name, off, p, err))
	}
	return view
}

func describePart(file string, off int, p protocol.Part, readErr error) partView {
	pv := partView{
		Offset:     off,
		Key:        fmt.Sprintf("0x%02X", p.Key),
		Type:       p.Header.Type.String(),
		EntryCount: p.Header.EntryCount,
		BodySize:   p.Header.BodySize,
		Checksum:   fmt.Sprintf("0x%08X", p.Header.Checksum),
		ChecksumOK: readErr == nil,
		Compact:    p.Compact,
	}
	if readErr != nil {
		slog.Warn("part checksum mismatch", "file", file, "offset", off, "err", readErr)
		pv.Error = readErr.Error()
	}

	switch pv.Type {
	case entrance.TagSV2.String(), entrance.TagSVR.String():
		l, err := entrance.FromPart(p)
		if err != nil {
			slog.Warn("server list decode failed", "file", file, "offset", off, "err", err)
			pv.Error = errors.Join(readErr, err).Error()
			pv.Payload = hex.EncodeToString(p.Payload)
			return pv
		}
		for _, s := range l.Servers {
			pv.Servers = append(pv.Servers, describeServer(s))
		}
		if len(l.Trailer) > 0 {
			pv.Trailer = hex.EncodeToString(l.Trailer)
		}
	default:
		pv.Payload = hex.EncodeToString(p.Payload)
	}
	return pv
}

func describeServer(s entrance.Server) serverView {
	sv := serverView{
		Host:        s.Addr().String(),
		HostIP:      fmt.Sprintf("0x%08X", s.HostIP),
		ID:          s.ID,
		Unk2:        s.Unk2,
		Kind:        s.Kind.String(),
		Color:       s.Color.String(),
		Unk6:        s.Unk6,
		Name:        s.Name.String(),
		Description: s.Name.Description(),
	}
	if flags, ok := s.AllowedClientFlags(); ok {
		f := uint32(flags)
		sv.AllowedClientFlags = &f
	}
	for _, c := range s.Channels {
		sv.Channels = append(sv.Channels, channelView{
			Port:           c.Port,
			ID:             c.Unk1,
			MaxPlayers:     c.MaxPlayers,
			CurrentPlayers: c.CurrentPlayers,
			Unknown: [10]uint16{
				c.Unk4, c.Unk5, c.Unk6, c.Unk7, c.Unk8,
				c.Unk9, c.Unk10, c.Unk11, c.Unk12, c.Unk13,
			},
		})
	}
	return sv
}
