// Package config loads reconstruction settings from a TOML file. All fields are
// optional; absent fields keep the standard J1939-21 defaults.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Notgnoshi/csvizmo/can"
)

// Config is the resolved configuration of a reconstruction run.
type Config struct {
	// FastPacketPGNs is the set of PGNs treated as NMEA 2000 Fast Packet encapsulated.
	FastPacketPGNs []uint32

	Timeouts can.Timeouts
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Timeouts: can.DefaultOptions().Timeouts}
}

type fileConfig struct {
	FastPacketPGNs []string `toml:"fast_packet_pgns"`

	Timeouts struct {
		FastPacket string `toml:"fast_packet"`
		T1         string `toml:"t1"`
		T2         string `toml:"t2"`
		T3         string `toml:"t3"`
		T4         string `toml:"t4"`
	} `toml:"timeouts"`
}

// Load reads a TOML configuration file and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("fast_packet_pgns") {
		pgns, err := parsePGNs(raw.FastPacketPGNs)
		if err != nil {
			return Config{}, err
		}
		cfg.FastPacketPGNs = pgns
	}

	for _, field := range []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"fast_packet", raw.Timeouts.FastPacket, &cfg.Timeouts.FastPacket},
		{"t1", raw.Timeouts.T1, &cfg.Timeouts.T1},
		{"t2", raw.Timeouts.T2, &cfg.Timeouts.T2},
		{"t3", raw.Timeouts.T3, &cfg.Timeouts.T3},
		{"t4", raw.Timeouts.T4, &cfg.Timeouts.T4},
	} {
		if !meta.IsDefined("timeouts", field.key) {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(field.value))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeouts.%s: %w", field.key, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("timeouts.%s must be positive, got %s", field.key, d)
		}
		*field.dst = d
	}

	return cfg, nil
}

// Options converts the configuration into reconstruction engine options.
func (c Config) Options() can.Options {
	return can.Options{
		FastPacketPGNs: c.FastPacketPGNs,
		Timeouts:       c.Timeouts,
	}
}

// parsePGNs accepts decimal and 0x-prefixed hexadecimal PGNs.
func parsePGNs(in []string) ([]uint32, error) {
	out := make([]uint32, 0, len(in))
	for _, s := range in {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		base := 10
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			base, v = 16, v[2:]
		}
		pgn, err := strconv.ParseUint(v, base, 32)
		if err != nil {
			return nil, fmt.Errorf("parse fast packet PGN %q: %w", s, err)
		}
		out = append(out, uint32(pgn))
	}
	return out, nil
}
