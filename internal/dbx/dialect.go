package dbx

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the few SQL differences between the supported engines.
// Statements are written with '?' placeholders and rebound on the way out.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Goose is the goose dialect name used for migrations.
	Goose string
	// MigrationsDir is the directory inside the embedded migrations FS.
	MigrationsDir string

	numbered bool
	greatest string
}

var (
	SQLite = Dialect{
		Driver:        "sqlite",
		Goose:         "sqlite3",
		MigrationsDir: "sqlite",
		greatest:      "MAX",
	}

	Postgres = Dialect{
		Driver:        "pgx",
		Goose:         "pgx",
		MigrationsDir: "postgres",
		numbered:      true,
		greatest:      "GREATEST",
	}
)

// DialectFor resolves a driver name from configuration.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Greatest returns the two-argument maximum function name.
func (d Dialect) Greatest() string { return d.greatest }

// Rebind rewrites '?' placeholders into $1..$n for engines that need
// numbered parameters. Statements in this module never carry '?' inside
// string literals.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
