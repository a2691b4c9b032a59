package query

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/satishbabariya/go-dao/dao"
)

// cacheHandle links a query back to the Data that produced it.
type cacheHandle[P any] struct {
	acquire func(hint P) (P, error)
	stats   func() Stats
}

// Query is a built, reusable SELECT for entities of type T.
//
// A Query belongs to the goroutine that obtained it. Use ForCurrentGoroutine
// to get the instance for another goroutine.
type Query[T any] struct {
	base[T]
	cache          cacheHandle[*Query[T]]
	limitPosition  int
	offsetPosition int
}

func newQueryData[T any](d *dao.Dao[T], sql string, initialValues []string, limitPosition, offsetPosition int) *Data[Query[T], *Query[T]] {
	var data *Data[Query[T], *Query[T]]
	data = NewData[Query[T], *Query[T]](sql, initialValues, func(sql string, parameters []string, owner int64) (*Query[T], error) {
		if d.Database().Closed() {
			return nil, dao.ErrClosed
		}
		q := &Query[T]{
			base: newBase(d, sql, parameters, owner),
			cache: cacheHandle[*Query[T]]{
				acquire: data.ForCurrentGoroutineFrom,
				stats:   data.Stats,
			},
			limitPosition:  limitPosition,
			offsetPosition: offsetPosition,
		}
		return closeOnReclaim(q, q.prepared), nil
	})
	return data
}

// ForCurrentGoroutine returns the calling goroutine's instance of this query,
// with its parameters reset to the values the query was built with.
func (q *Query[T]) ForCurrentGoroutine() (*Query[T], error) {
	return q.cache.acquire(q)
}

// Stats returns the cache counters of this query.
func (q *Query[T]) Stats() Stats {
	return q.cache.stats()
}

// SetParameter replaces the value of the parameter at index. Indexes follow
// the order in which values were added while building.
func (q *Query[T]) SetParameter(index int, value any) error {
	if index >= 0 && (index == q.limitPosition || index == q.offsetPosition) {
		return ErrIllegalParameter
	}
	return q.setParameter(index, value)
}

// SetLimit changes the limit of a query built with Limit.
func (q *Query[T]) SetLimit(limit int) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	if q.limitPosition < 0 {
		return ErrNoLimit
	}
	q.parameters[q.limitPosition] = strconv.Itoa(limit)
	return nil
}

// SetOffset changes the offset of a query built with Offset.
func (q *Query[T]) SetOffset(offset int) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	if q.offsetPosition < 0 {
		return ErrNoOffset
	}
	q.parameters[q.offsetPosition] = strconv.Itoa(offset)
	return nil
}

// List runs the query and returns every matching entity.
func (q *Query[T]) List(ctx context.Context) ([]T, error) {
	var entities []T
	err := q.run(ctx, func(stmt *sqlx.Stmt, args []any) error {
		return stmt.SelectContext(ctx, &entities, args...)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Unique returns the only matching entity, nil when nothing matches, or
// ErrNotUnique when several rows match.
func (q *Query[T]) Unique(ctx context.Context) (*T, error) {
	entities, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return &entities[0], nil
	default:
		return nil, ErrNotUnique
	}
}

// UniqueOrError is Unique that fails with ErrNoEntity instead of returning nil.
func (q *Query[T]) UniqueOrError(ctx context.Context) (*T, error) {
	entity, err := q.Unique(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNoEntity
	}
	return entity, nil
}
