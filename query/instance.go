package query

import (
	"context"
	"runtime"

	"github.com/jmoiron/sqlx"
	"github.com/petermattis/goid"

	"github.com/satishbabariya/go-dao/dao"
)

// preparedStmt is prepared lazily on first execution and closed when the
// owning query is reclaimed.
type preparedStmt struct {
	stmt *sqlx.Stmt
}

func (p *preparedStmt) close() {
	if p.stmt != nil {
		_ = p.stmt.Close()
	}
}

// base is the state shared by every query kind.
type base[T any] struct {
	dao        *dao.Dao[T]
	sql        string
	parameters []string
	owner      int64
	prepared   *preparedStmt
}

func newBase[T any](d *dao.Dao[T], sql string, parameters []string, owner int64) base[T] {
	return base[T]{
		dao:        d,
		sql:        sql,
		parameters: parameters,
		owner:      owner,
		prepared:   &preparedStmt{},
	}
}

// closeOnReclaim closes q's prepared statement once q is garbage collected.
func closeOnReclaim[Q any](q *Q, prepared *preparedStmt) *Q {
	runtime.AddCleanup(q, (*preparedStmt).close, prepared)
	return q
}

// Owner returns the id of the goroutine the query belongs to.
func (q *base[T]) Owner() int64 {
	return q.owner
}

// Parameters returns the query's parameter slice.
func (q *base[T]) Parameters() []string {
	return q.parameters
}

// SQL returns the statement text.
func (q *base[T]) SQL() string {
	return q.sql
}

func (q *base[T]) checkOwner() error {
	if goid.Get() != q.owner {
		return ErrWrongGoroutine
	}
	return nil
}

func (q *base[T]) setParameter(index int, value any) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	if index < 0 || index >= len(q.parameters) {
		return ErrIllegalParameter
	}
	q.parameters[index] = dao.ToParam(value)
	return nil
}

func (q *base[T]) statement(ctx context.Context) (*sqlx.Stmt, error) {
	if q.prepared.stmt != nil {
		return q.prepared.stmt, nil
	}
	stmt, err := q.dao.Database().Prepare(ctx, q.sql)
	if err != nil {
		return nil, err
	}
	q.prepared.stmt = stmt
	return stmt, nil
}

// run executes fn with the prepared statement and the current parameters
// behind the database middleware chain.
func (q *base[T]) run(ctx context.Context, fn func(stmt *sqlx.Stmt, args []any) error) error {
	if err := q.checkOwner(); err != nil {
		return err
	}
	stmt, err := q.statement(ctx)
	if err != nil {
		return err
	}
	args := dao.Args(q.parameters)
	return q.dao.Database().Run(ctx, q.sql, args, func() error {
		return fn(stmt, args)
	})
}
