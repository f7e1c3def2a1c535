package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/driveindex/internal/flagx"
	"github.com/dmitrijs2005/driveindex/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "30s" style
// strings or integer nanoseconds; booleans are pointers so an absent key
// keeps the default.
type JsonConfig struct {
	DatabaseDriver  string         `json:"database_driver"`
	DatabaseDSN     string         `json:"database_dsn"`
	IdentityID      string         `json:"identity_id"`
	CacheEnabled    *bool          `json:"cache_enabled"`
	CacheTTL        timex.Duration `json:"cache_ttl"`
	CacheMaxEntries int            `json:"cache_max_entries"`
	SerializeAccess *bool          `json:"serialize_access"`
	LogLevel        string         `json:"log_level"`
	LogFile         string         `json:"log_file"`
	LogJSON         *bool          `json:"log_json"`
}

// parseJson overlays values from the file named by -c/-config. Keys that
// are absent or empty leave the current value alone. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDriver != "" {
		config.DatabaseDriver = c.DatabaseDriver
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.IdentityID != "" {
		config.IdentityID = c.IdentityID
	}
	if c.CacheEnabled != nil {
		config.CacheEnabled = *c.CacheEnabled
	}
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.CacheMaxEntries > 0 {
		config.CacheMaxEntries = c.CacheMaxEntries
	}
	if c.SerializeAccess != nil {
		config.SerializeAccess = *c.SerializeAccess
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		config.LogFile = c.LogFile
	}
	if c.LogJSON != nil {
		config.LogJSON = *c.LogJSON
	}
}
