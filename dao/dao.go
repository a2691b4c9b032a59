package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx"
)

// Config describes how an entity type maps onto a table.
//
// Entities are read with sqlx struct scanning, so every Property.Column must
// match a `db` tag on T.
type Config[T any] struct {
	Table      string
	Properties []Property
	// Values returns one value per property, in property order.
	Values func(entity *T) []any
	// Key returns the primary key value. Required when a property is the primary key.
	Key func(entity *T) any
	// SetKey stores a database-generated key. Required for auto-increment keys.
	SetKey func(entity *T, key int64)
}

// Dao performs CRUD for one entity type and supplies the statement templates
// that queries are built from.
type Dao[T any] struct {
	db         *Database
	config     Config[T]
	statements *TableStatements
}

// New validates cfg and creates the DAO.
func New[T any](db *Database, cfg Config[T]) (*Dao[T], error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", ErrInvalidConfig)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrInvalidConfig)
	}
	if len(cfg.Properties) == 0 {
		return nil, fmt.Errorf("%w: %s has no properties", ErrInvalidConfig, cfg.Table)
	}
	if cfg.Values == nil {
		return nil, fmt.Errorf("%w: %s needs a Values function", ErrInvalidConfig, cfg.Table)
	}

	keys := 0
	for i, p := range cfg.Properties {
		if p.Ordinal != i {
			return nil, fmt.Errorf("%w: property %s has ordinal %d, expected %d", ErrInvalidConfig, p, p.Ordinal, i)
		}
		if p.Column == "" {
			return nil, fmt.Errorf("%w: property %s has no column", ErrInvalidConfig, p.Name)
		}
		if !p.PrimaryKey {
			continue
		}
		keys++
		if cfg.Key == nil {
			return nil, fmt.Errorf("%w: %s has a primary key but no Key function", ErrInvalidConfig, cfg.Table)
		}
		if p.AutoIncrement && cfg.SetKey == nil {
			return nil, fmt.Errorf("%w: %s has an auto-increment key but no SetKey function", ErrInvalidConfig, cfg.Table)
		}
	}
	if keys > 1 {
		return nil, fmt.Errorf("%w: %s has %d primary keys, composite keys are not supported", ErrInvalidConfig, cfg.Table, keys)
	}

	return &Dao[T]{
		db:         db,
		config:     cfg,
		statements: NewTableStatements(db.Dialect(), cfg.Table, cfg.Properties),
	}, nil
}

// Database returns the database the DAO runs on.
func (d *Dao[T]) Database() *Database {
	return d.db
}

// Statements returns the table's statement templates.
func (d *Dao[T]) Statements() *TableStatements {
	return d.statements
}

// Table returns the table name.
func (d *Dao[T]) Table() string {
	return d.config.Table
}

// Properties returns the mapped properties in ordinal order.
func (d *Dao[T]) Properties() []Property {
	return d.config.Properties
}

// CreateTable creates the entity table.
func (d *Dao[T]) CreateTable(ctx context.Context, ifNotExists bool) error {
	if _, err := d.db.Exec(ctx, d.statements.CreateTable(ifNotExists)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", d.config.Table, err)
	}
	return nil
}

// DropTable drops the entity table.
func (d *Dao[T]) DropTable(ctx context.Context, ifExists bool) error {
	if _, err := d.db.Exec(ctx, d.statements.DropTable(ifExists)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", d.config.Table, err)
	}
	return nil
}

// Insert inserts entity. A zero auto-increment key is left to the database
// and the generated key is stored back through Config.SetKey.
func (d *Dao[T]) Insert(ctx context.Context, entity *T) error {
	return d.insert(ctx, d.db.DB(), entity)
}

// InsertAll inserts every entity in a single transaction.
func (d *Dao[T]) InsertAll(ctx context.Context, entities []*T) error {
	return d.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, entity := range entities {
			if err := d.insert(ctx, tx, entity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Dao[T]) insert(ctx context.Context, ext sqlx.ExtContext, entity *T) error {
	values, err := d.values(entity)
	if err != nil {
		return err
	}

	pk, hasKey := d.statements.PrimaryKey()
	if !hasKey || !pk.AutoIncrement || !isZero(d.config.Key(entity)) {
		query := d.db.Rebind(d.statements.Insert())
		err := d.db.Run(ctx, query, values, func() error {
			_, err := ext.ExecContext(ctx, query, values...)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", d.config.Table, err)
		}
		return nil
	}

	args := make([]any, 0, len(values)-1)
	for i, v := range values {
		if i != pk.Ordinal {
			args = append(args, v)
		}
	}
	query := d.db.Rebind(d.statements.InsertGeneratedKey())

	var id int64
	err = d.db.Run(ctx, query, args, func() error {
		if d.db.Dialect().SupportsReturning() {
			return sqlx.GetContext(ctx, ext, &id, query, args...)
		}
		res, err := ext.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", d.config.Table, err)
	}
	d.config.SetKey(entity, id)
	return nil
}

// Update writes every non-key property of entity.
func (d *Dao[T]) Update(ctx context.Context, entity *T) error {
	pk, ok := d.statements.PrimaryKey()
	if !ok {
		return fmt.Errorf("update %s: %w", d.config.Table, ErrNoPrimaryKey)
	}
	values, err := d.values(entity)
	if err != nil {
		return err
	}

	args := make([]any, 0, len(values))
	for i, v := range values {
		if i != pk.Ordinal {
			args = append(args, v)
		}
	}
	args = append(args, d.config.Key(entity))

	if _, err := d.db.Exec(ctx, d.db.Rebind(d.statements.Update()), args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", d.config.Table, err)
	}
	return nil
}

// Delete deletes entity by its key.
func (d *Dao[T]) Delete(ctx context.Context, entity *T) error {
	if _, ok := d.statements.PrimaryKey(); !ok {
		return fmt.Errorf("delete from %s: %w", d.config.Table, ErrNoPrimaryKey)
	}
	return d.DeleteByKey(ctx, d.config.Key(entity))
}

// DeleteByKey deletes the row with the given key.
func (d *Dao[T]) DeleteByKey(ctx context.Context, key any) error {
	if _, ok := d.statements.PrimaryKey(); !ok {
		return fmt.Errorf("delete from %s: %w", d.config.Table, ErrNoPrimaryKey)
	}
	if _, err := d.db.Exec(ctx, d.db.Rebind(d.statements.DeleteByKey()), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", d.config.Table, err)
	}
	return nil
}

// DeleteAll deletes every row and returns how many were removed.
func (d *Dao[T]) DeleteAll(ctx context.Context) (int64, error) {
	res, err := d.db.Exec(ctx, d.statements.DeleteAll())
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", d.config.Table, err)
	}
	return res.RowsAffected()
}

// Load returns the entity with the given key, or nil when there is none.
func (d *Dao[T]) Load(ctx context.Context, key any) (*T, error) {
	if _, ok := d.statements.PrimaryKey(); !ok {
		return nil, fmt.Errorf("load from %s: %w", d.config.Table, ErrNoPrimaryKey)
	}
	var entity T
	err := d.db.Get(ctx, &entity, d.db.Rebind(d.statements.SelectByKey()), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load from %s: %w", d.config.Table, err)
	}
	return &entity, nil
}

// LoadAll returns every entity.
func (d *Dao[T]) LoadAll(ctx context.Context) ([]T, error) {
	var entities []T
	if err := d.db.Select(ctx, &entities, d.statements.SelectAll()); err != nil {
		return nil, fmt.Errorf("failed to load from %s: %w", d.config.Table, err)
	}
	return entities, nil
}

// Count returns the number of rows.
func (d *Dao[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.Get(ctx, &n, d.statements.Count()); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", d.config.Table, err)
	}
	return n, nil
}

// QueryRaw appends where (for example "WHERE T.\"NAME\"=?") to the select-all
// statement and returns the matching entities.
func (d *Dao[T]) QueryRaw(ctx context.Context, where string, args ...any) ([]T, error) {
	query := d.db.Rebind(d.statements.SelectAll() + " " + where)
	var entities []T
	if err := d.db.Select(ctx, &entities, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.config.Table, err)
	}
	return entities, nil
}

func (d *Dao[T]) values(entity *T) ([]any, error) {
	if entity == nil {
		return nil, fmt.Errorf("%s: nil entity", d.config.Table)
	}
	values := d.config.Values(entity)
	if len(values) != len(d.config.Properties) {
		return nil, fmt.Errorf("%w: %s Values returned %d values for %d properties",
			ErrInvalidConfig, d.config.Table, len(values), len(d.config.Properties))
	}
	return values, nil
}

func isZero(v any) bool {
	return v == nil || reflect.ValueOf(v).IsZero()
}
