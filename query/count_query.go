package query

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/satishbabariya/go-dao/dao"
)

// CountQuery is a built, reusable SELECT COUNT for entities of type T.
type CountQuery[T any] struct {
	base[T]
	cache cacheHandle[*CountQuery[T]]
}

func newCountQueryData[T any](d *dao.Dao[T], sql string, initialValues []string) *Data[CountQuery[T], *CountQuery[T]] {
	var data *Data[CountQuery[T], *CountQuery[T]]
	data = NewData[CountQuery[T], *CountQuery[T]](sql, initialValues, func(sql string, parameters []string, owner int64) (*CountQuery[T], error) {
		if d.Database().Closed() {
			return nil, dao.ErrClosed
		}
		q := &CountQuery[T]{
			base: newBase(d, sql, parameters, owner),
			cache: cacheHandle[*CountQuery[T]]{
				acquire: data.ForCurrentGoroutineFrom,
				stats:   data.Stats,
			},
		}
		return closeOnReclaim(q, q.prepared), nil
	})
	return data
}

// ForCurrentGoroutine returns the calling goroutine's instance of this query.
func (q *CountQuery[T]) ForCurrentGoroutine() (*CountQuery[T], error) {
	return q.cache.acquire(q)
}

// Stats returns the cache counters of this query.
func (q *CountQuery[T]) Stats() Stats {
	return q.cache.stats()
}

// SetParameter replaces the value of the parameter at index.
func (q *CountQuery[T]) SetParameter(index int, value any) error {
	return q.setParameter(index, value)
}

// Count returns the number of matching rows.
func (q *CountQuery[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := q.run(ctx, func(stmt *sqlx.Stmt, args []any) error {
		return stmt.GetContext(ctx, &n, args...)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
