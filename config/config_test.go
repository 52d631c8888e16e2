package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Notgnoshi/csvizmo/can"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canstruct.toml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.FastPacketPGNs)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.FastPacket)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts.T1)
	assert.Equal(t, 1250*time.Millisecond, cfg.Timeouts.T2)
	assert.Equal(t, 1250*time.Millisecond, cfg.Timeouts.T3)
	assert.Equal(t, 1050*time.Millisecond, cfg.Timeouts.T4)
}

func TestLoad(t *testing.T) {
	var testCases = []struct {
		name        string
		given       string
		expect      Config
		expectError string
	}{
		{
			name: "ok, full config",
			given: `
fast_packet_pgns = ["0x1FD13", "130052"]

[timeouts]
fast_packet = "5s"
t1 = "1s"
t2 = "2s"
t3 = "3s"
t4 = "4s"
`,
			expect: Config{
				FastPacketPGNs: []uint32{0x1FD13, 130052},
				Timeouts: can.Timeouts{
					FastPacket: 5 * time.Second,
					T1:         1 * time.Second,
					T2:         2 * time.Second,
					T3:         3 * time.Second,
					T4:         4 * time.Second,
				},
			},
		},
		{
			name:  "ok, absent fields keep the defaults",
			given: `fast_packet_pgns = ["0x1FD13"]`,
			expect: Config{
				FastPacketPGNs: []uint32{0x1FD13},
				Timeouts:       Default().Timeouts,
			},
		},
		{
			name: "ok, partial timeout override",
			given: `
[timeouts]
fast_packet = "750ms"
`,
			expect: Config{
				Timeouts: can.Timeouts{
					FastPacket: 750 * time.Millisecond,
					T1:         Default().Timeouts.T1,
					T2:         Default().Timeouts.T2,
					T3:         Default().Timeouts.T3,
					T4:         Default().Timeouts.T4,
				},
			},
		},
		{
			name:        "nok, unparsable duration",
			given:       "[timeouts]\nt1 = \"fast\"\n",
			expectError: "parse timeouts.t1",
		},
		{
			name:        "nok, negative duration",
			given:       "[timeouts]\nt2 = \"-1s\"\n",
			expectError: "timeouts.t2 must be positive",
		},
		{
			name:        "nok, unparsable PGN",
			given:       `fast_packet_pgns = ["1FD13"]`,
			expectError: `parse fast packet PGN "1FD13"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.given))
			if tc.expectError != "" {
				assert.ErrorContains(t, err, tc.expectError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, cfg)
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.ErrorContains(t, err, "load config")
}

func TestOptions(t *testing.T) {
	cfg := Config{
		FastPacketPGNs: []uint32{0x1FD13},
		Timeouts:       can.Timeouts{FastPacket: time.Second},
	}
	opts := cfg.Options()

	assert.Equal(t, cfg.FastPacketPGNs, opts.FastPacketPGNs)
	assert.Equal(t, cfg.Timeouts, opts.Timeouts)
}
