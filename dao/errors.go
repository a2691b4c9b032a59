package dao

import "errors"

var (
	// ErrUnsupportedProvider is returned for a provider name with no known dialect.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrClosed is returned when a closed Database is used.
	ErrClosed = errors.New("database is closed")
	// ErrInvalidConfig is returned by New for an unusable entity configuration.
	ErrInvalidConfig = errors.New("invalid dao config")
	// ErrNoPrimaryKey is returned for key-based operations on a table without a primary key.
	ErrNoPrimaryKey = errors.New("table has no primary key")
	// ErrUnsupportedVersion is returned when the database server is older than the dialect minimum.
	ErrUnsupportedVersion = errors.New("unsupported database server version")
)
