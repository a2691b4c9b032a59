package query

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/satishbabariya/go-dao/dao"
)

// DeleteQuery is a built, reusable bulk DELETE for entities of type T.
type DeleteQuery[T any] struct {
	base[T]
	cache cacheHandle[*DeleteQuery[T]]
}

func newDeleteQueryData[T any](d *dao.Dao[T], sql string, initialValues []string) *Data[DeleteQuery[T], *DeleteQuery[T]] {
	var data *Data[DeleteQuery[T], *DeleteQuery[T]]
	data = NewData[DeleteQuery[T], *DeleteQuery[T]](sql, initialValues, func(sql string, parameters []string, owner int64) (*DeleteQuery[T], error) {
		if d.Database().Closed() {
			return nil, dao.ErrClosed
		}
		q := &DeleteQuery[T]{
			base: newBase(d, sql, parameters, owner),
			cache: cacheHandle[*DeleteQuery[T]]{
				acquire: data.ForCurrentGoroutineFrom,
				stats:   data.Stats,
			},
		}
		return closeOnReclaim(q, q.prepared), nil
	})
	return data
}

// ForCurrentGoroutine returns the calling goroutine's instance of this query.
func (q *DeleteQuery[T]) ForCurrentGoroutine() (*DeleteQuery[T], error) {
	return q.cache.acquire(q)
}

// Stats returns the cache counters of this query.
func (q *DeleteQuery[T]) Stats() Stats {
	return q.cache.stats()
}

// SetParameter replaces the value of the parameter at index.
func (q *DeleteQuery[T]) SetParameter(index int, value any) error {
	return q.setParameter(index, value)
}

// ExecuteDelete deletes the matching rows and returns how many were removed.
func (q *DeleteQuery[T]) ExecuteDelete(ctx context.Context) (int64, error) {
	var affected int64
	err := q.run(ctx, func(stmt *sqlx.Stmt, args []any) error {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
