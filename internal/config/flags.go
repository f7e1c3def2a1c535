package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/driveindex/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-D string        database driver ("sqlite" or "pgx")
//	-d string        database DSN
//	-i string        identity id
//	-cache=bool      enable the query cache
//	-ttl int         cache entry lifetime, seconds
//	-max int         cache capacity, entries
//	-serialize=bool  serialize every index call
//	-l string        log level (debug, info, warn, error)
//	-log-file string rotating log file path
//	-log-json=bool   force JSON log output
//
// Only the flags above are picked out of os.Args by flagx.FilterArgs, so
// subcommand flags can share the command line. Boolean flags take the
// "-name=value" form.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-D", "-d", "-i", "-cache", "-ttl", "-max", "-serialize", "-l", "-log-file", "-log-json"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.IdentityID, "i", config.IdentityID, "identity id")

	fs.BoolVar(&config.CacheEnabled, "cache", config.CacheEnabled, "enable query cache")
	cacheTTL := fs.Int("ttl", int(config.CacheTTL.Seconds()), "cache ttl (in seconds)")
	fs.IntVar(&config.CacheMaxEntries, "max", config.CacheMaxEntries, "cache max entries")
	fs.BoolVar(&config.SerializeAccess, "serialize", config.SerializeAccess, "serialize index access")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "log-file", config.LogFile, "log file")
	fs.BoolVar(&config.LogJSON, "log-json", config.LogJSON, "json log output")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CacheTTL = time.Duration(*cacheTTL) * time.Second
}
