// Package dao is the data-access layer: connections, dialects, table
// statements and entity CRUD. Query construction and the per-goroutine query
// cache live in package query, which builds on top of this one.
package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-version"
	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Database wraps a connection pool together with its dialect and the
// middleware chain every statement runs through.
//
// Use must be called during setup, before the Database is shared between
// goroutines.
type Database struct {
	db          *sqlx.DB
	dialect     Dialect
	middlewares []Middleware
	closed      atomic.Bool
}

// Open opens a connection pool for the given provider.
func Open(provider string, dsn string) (*Database, error) {
	dialect, err := DialectFor(provider)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Provider, err)
	}

	return &Database{db: db, dialect: dialect}, nil
}

// NewDatabase wraps an existing pool. The pool's driver name decides the
// placeholder style, the provider decides quoting and DDL.
func NewDatabase(db *sqlx.DB, provider string) (*Database, error) {
	dialect, err := DialectFor(provider)
	if err != nil {
		return nil, err
	}
	return &Database{db: db, dialect: dialect}, nil
}

// DB returns the underlying pool.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Dialect returns the provider dialect.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// Use appends a middleware to the chain.
func (d *Database) Use(mw Middleware) {
	d.middlewares = append(d.middlewares, mw)
}

// Rebind converts '?' placeholders to the driver's bind style.
func (d *Database) Rebind(query string) string {
	return d.db.Rebind(query)
}

// Ping verifies the connection.
func (d *Database) Ping(ctx context.Context) error {
	if d.Closed() {
		return ErrClosed
	}
	return d.db.PingContext(ctx)
}

// Run executes exec behind the middleware chain. query and args are only
// reported to middlewares; exec performs the actual work.
func (d *Database) Run(ctx context.Context, query string, args []any, exec func() error) error {
	if d.Closed() {
		return ErrClosed
	}
	return chain(ctx, d.middlewares, query, args, exec)
}

// Exec runs a statement that returns no rows.
func (d *Database) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := d.Run(ctx, query, args, func() error {
		var err error
		res, err = d.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// Select scans all rows into dest, a pointer to a slice.
func (d *Database) Select(ctx context.Context, dest any, query string, args ...any) error {
	return d.Run(ctx, query, args, func() error {
		return d.db.SelectContext(ctx, dest, query, args...)
	})
}

// Get scans a single row into dest. It returns sql.ErrNoRows when nothing matches.
func (d *Database) Get(ctx context.Context, dest any, query string, args ...any) error {
	return d.Run(ctx, query, args, func() error {
		return d.db.GetContext(ctx, dest, query, args...)
	})
}

// Prepare creates a prepared statement on the pool.
func (d *Database) Prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	if d.Closed() {
		return nil, ErrClosed
	}
	stmt, err := d.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return stmt, nil
}

// Transaction runs fn inside a transaction. It commits when fn returns nil
// and rolls back otherwise, including when fn panics.
func (d *Database) Transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	if d.Closed() {
		return ErrClosed
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ServerVersion asks the server for its version.
func (d *Database) ServerVersion(ctx context.Context) (*version.Version, error) {
	var raw string
	if err := d.Get(ctx, &raw, d.dialect.VersionQuery()); err != nil {
		return nil, fmt.Errorf("failed to query server version: %w", err)
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty server version")
	}
	v, err := version.NewVersion(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", raw, err)
	}
	return v, nil
}

// CheckServerVersion fails with ErrUnsupportedVersion when the server is
// older than the dialect minimum.
func (d *Database) CheckServerVersion(ctx context.Context) error {
	current, err := d.ServerVersion(ctx)
	if err != nil {
		return err
	}
	minimum, err := version.NewVersion(d.dialect.MinVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum version: %w", err)
	}
	if current.Core().LessThan(minimum) {
		return fmt.Errorf("%w: %s %s is older than %s", ErrUnsupportedVersion, d.dialect.Provider, current, minimum)
	}
	return nil
}

// Close closes the pool. Closing twice is a no-op.
func (d *Database) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

// Closed reports whether Close has been called.
func (d *Database) Closed() bool {
	return d.closed.Load()
}
