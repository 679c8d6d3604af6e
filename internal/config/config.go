package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entrance holds all configuration for building and inspecting entrance lists.
type Entrance struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Binary8 framing
	Key byte   `yaml:"key"`
	Tag string `yaml:"tag"` // SV2 or SVR

	// Address fallbacks
	Host  string `yaml:"host"`  // used for entries without ip
	Local bool   `yaml:"local"` // advertise 127.0.0.1 for every entry

	// Output file for the build command
	Output string `yaml:"output"`

	// Channel population lookups
	Database DatabaseConfig `yaml:"database"`

	Entries []EntranceEntry `yaml:"entries"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// EntranceEntry is one advertised world.
type EntranceEntry struct {
	Name               string            `yaml:"name"`
	Description        string            `yaml:"description"`
	IP                 string            `yaml:"ip"`
	Type               uint8             `yaml:"type"`        // 1=open 2=cities 3=newbie 4=bar
	Recommended        uint8             `yaml:"recommended"` // 0, 3 or 5
	AllowedClientFlags uint32            `yaml:"allowed_client_flags"`
	Channels           []EntranceChannel `yaml:"channels"`
}

// EntranceChannel is one channel of a world.
type EntranceChannel struct {
	Port       uint16 `yaml:"port"`
	MaxPlayers uint16 `yaml:"max_players"`

	// Unknown overrides the ten trailing channel fields (unk4..unk13).
	// Empty means DefaultChannelUnknown.
	Unknown []uint16 `yaml:"unknown"`
}

// ChannelUnknownCount is the number of opaque trailing channel fields.
const ChannelUnknownCount = 10

// DefaultChannelUnknown are the trailing channel values retail servers sent.
var DefaultChannelUnknown = [ChannelUnknownCount]uint16{0, 0, 0, 0, 0, 0, 319, 252, 248, 12345}

// UnknownFields returns the configured trailing values or the defaults.
func (c EntranceChannel) UnknownFields() [ChannelUnknownCount]uint16 {
	if len(c.Unknown) == 0 {
		return DefaultChannelUnknown
	}
	var out [ChannelUnknownCount]uint16
	copy(out[:], c.Unknown)
	return out
}

// DefaultEntrance returns Entrance config with sensible defaults.
func DefaultEntrance() Entrance {
	return Entrance{
		LogLevel: "info",
		Key:      0x00,
		Tag:      "SV2",
		Host:     "127.0.0.1",
		Output:   "entrance_resp.bin",
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "erupe",
			Password: "erupe",
			DBName:   "erupe",
			SSLMode:  "disable",
		},
		Entries: []EntranceEntry{
			{
				Name:               "Erupe",
				Description:        "@localhost",
				Type:               1,
				Recommended:        3,
				AllowedClientFlags: 4096,
				Channels: []EntranceChannel{
					{Port: 54001, MaxPlayers: 100},
				},
			},
		},
	}
}

// LoadEntrance loads entrance config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadEntrance(path string) (Entrance, error) {
	cfg := DefaultEntrance()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first configuration error.
func (e Entrance) Validate() error {
	if e.Tag != "SV2" && e.Tag != "SVR" {
		return fmt.Errorf("tag %q: must be SV2 or SVR", e.Tag)
	}
	if _, err := ParseLogLevel(e.LogLevel); err != nil {
		return err
	}
	if len(e.Entries) > 0xFFFF {
		return fmt.Errorf("%d entries exceed the 16-bit entry count", len(e.Entries))
	}
	for i, entry := range e.Entries {
		if len(entry.Channels) > 0xFFFF {
			return fmt.Errorf("entry %d (%s): %d channels exceed the 16-bit channel count", i, entry.Name, len(entry.Channels))
		}
		for j, ch := range entry.Channels {
			if len(ch.Unknown) > ChannelUnknownCount {
				return fmt.Errorf("entry %d (%s) channel %d: %d unknown fields, max %d",
					i, entry.Name, j, len(ch.Unknown), ChannelUnknownCount)
			}
		}
	}
	return nil
}

// ParseLogLevel maps a config level name to slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level %q: must be debug, info, warn or error", s)
	}
}
