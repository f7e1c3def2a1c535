package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-D", "pgx", "-d", "postgres://localhost/index", "-i", "44444444-4444-4444-4444-444444444444",
			"-cache=false", "-ttl", "5", "-max", "10", "-serialize=true",
			"-l", "debug", "-log-file", "/tmp/index.log", "-log-json=true",
		}, expectPanic: false,
			expected: &Config{
				DatabaseDriver:  "pgx",
				DatabaseDSN:     "postgres://localhost/index",
				IdentityID:      "44444444-4444-4444-4444-444444444444",
				CacheEnabled:    false,
				CacheTTL:        5 * time.Second,
				CacheMaxEntries: 10,
				SerializeAccess: true,
				LogLevel:        "debug",
				LogFile:         "/tmp/index.log",
				LogJSON:         true,
			}},
		{name: "subcommand flags are ignored", args: []string{"cmd", "query",
			"-drive", "d0000000-0000-0000-0000-00000000000d", "-n", "10", "-d", "mem.db",
		}, expectPanic: false,
			expected: &Config{
				DatabaseDSN: "mem.db",
			}},
		{name: "bad ttl", args: []string{"cmd", "-ttl", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
