// Package config assembles the runtime settings of indexctl from defaults,
// an optional JSON file and command-line flags, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/google/uuid"
)

// Config holds runtime settings for one index process.
//
// Fields:
//   - DatabaseDriver: database/sql driver name, "sqlite" or "pgx".
//   - DatabaseDSN: data source passed to sql.Open.
//   - IdentityID: tenant whose index is opened (UUID text form).
//   - CacheEnabled / CacheTTL / CacheMaxEntries: query cache settings.
//   - SerializeAccess: funnel every index call through one mutex.
//   - LogLevel / LogFile / LogJSON: logging sink settings.
type Config struct {
	DatabaseDriver  string
	DatabaseDSN     string
	IdentityID      string
	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheMaxEntries int
	SerializeAccess bool
	LogLevel        string
	LogFile         string
	LogJSON         bool
}

// LoadDefaults populates Config with local development defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:driveindex.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	c.IdentityID = ""
	c.CacheEnabled = true
	c.CacheTTL = 30 * time.Second
	c.CacheMaxEntries = 1024
	c.SerializeAccess = false
	c.LogLevel = "info"
	c.LogFile = ""
	c.LogJSON = false
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Dialect returns the SQL dialect for DatabaseDriver.
func (c *Config) Dialect() (dbx.Dialect, error) {
	return dbx.DialectFor(c.DatabaseDriver)
}

// Identity parses IdentityID.
func (c *Config) Identity() (uuid.UUID, error) {
	if c.IdentityID == "" {
		return uuid.Nil, fmt.Errorf("identity id is not set")
	}
	id, err := uuid.Parse(c.IdentityID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity id: %w", err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("identity id must not be the nil uuid")
	}
	return id, nil
}
