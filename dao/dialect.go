package dao

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect holds the per-provider differences the DAO layer cares about.
type Dialect struct {
	// Provider is the normalized provider name: postgres, mysql or sqlite.
	Provider string
	// Driver is the database/sql driver name registered for the provider.
	Driver string
	// MinVersion is the oldest server version the generated SQL is known to work with.
	MinVersion string

	quote         string
	autoIncrement string
	returning     bool
	versionQuery  string
}

var dialects = map[string]Dialect{
	"postgres": {
		Provider:      "postgres",
		Driver:        "postgres",
		MinVersion:    "9.5",
		quote:         `"`,
		autoIncrement: "BIGSERIAL PRIMARY KEY",
		returning:     true,
		versionQuery:  "SHOW server_version",
	},
	"mysql": {
		Provider:      "mysql",
		Driver:        "mysql",
		MinVersion:    "5.7",
		quote:         "`",
		autoIncrement: "BIGINT AUTO_INCREMENT PRIMARY KEY",
		versionQuery:  "SELECT VERSION()",
	},
	"sqlite": {
		Provider:      "sqlite",
		Driver:        "sqlite3",
		MinVersion:    "3.8.3",
		quote:         `"`,
		autoIncrement: "INTEGER PRIMARY KEY AUTOINCREMENT",
		versionQuery:  "SELECT sqlite_version()",
	},
}

// DialectFor maps a provider name (and its common aliases) to its Dialect.
func DialectFor(provider string) (Dialect, error) {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres":
		return dialects["postgres"], nil
	case "mysql":
		return dialects["mysql"], nil
	case "sqlite", "sqlite3":
		return dialects["sqlite"], nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// Dialects returns every supported dialect ordered by provider name.
func Dialects() []Dialect {
	out := make([]Dialect, 0, len(dialects))
	for _, d := range dialects {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Quote quotes an identifier for this dialect.
func (d Dialect) Quote(ident string) string {
	escaped := strings.ReplaceAll(ident, d.quote, d.quote+d.quote)
	return d.quote + escaped + d.quote
}

// SupportsReturning reports whether INSERT ... RETURNING is used for generated keys.
func (d Dialect) SupportsReturning() bool {
	return d.returning
}

// AutoIncrementColumn is the column definition used for an auto-increment primary key.
func (d Dialect) AutoIncrementColumn() string {
	return d.autoIncrement
}

// VersionQuery returns the statement that reports the server version.
func (d Dialect) VersionQuery() string {
	return d.versionQuery
}
