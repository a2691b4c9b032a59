package query

import (
	"context"
	"strings"

	"github.com/satishbabariya/go-dao/dao"
	"github.com/satishbabariya/go-dao/internal/debug"
)

// Builder assembles the SQL and initial parameter values of a query. Every
// Build call yields a fresh query cache; keep the built query and call its
// ForCurrentGoroutine to reuse it.
//
//	q, err := query.NewBuilder(notes).
//		Where(query.Eq(NoteText, "hello")).
//		OrderAsc(NoteDate).
//		Limit(10).
//		Build()
type Builder[T any] struct {
	dao        *dao.Dao[T]
	conditions []Condition
	orderBy    []orderTerm
	limit      *int
	offset     *int
	distinct   bool
}

type orderTerm struct {
	property *dao.Property
	raw      string
	desc     bool
}

// NewBuilder starts a query over the DAO's table.
func NewBuilder[T any](d *dao.Dao[T]) *Builder[T] {
	return &Builder[T]{dao: d}
}

// Where adds conditions, all of which must hold.
func (b *Builder[T]) Where(cond Condition, more ...Condition) *Builder[T] {
	b.conditions = append(b.conditions, cond)
	b.conditions = append(b.conditions, more...)
	return b
}

// WhereOr adds one condition that holds when any of the given ones does.
func (b *Builder[T]) WhereOr(c1, c2 Condition, more ...Condition) *Builder[T] {
	b.conditions = append(b.conditions, Or(c1, c2, more...))
	return b
}

// OrderAsc orders by the given properties, ascending.
func (b *Builder[T]) OrderAsc(props ...dao.Property) *Builder[T] {
	for i := range props {
		b.orderBy = append(b.orderBy, orderTerm{property: &props[i]})
	}
	return b
}

// OrderDesc orders by the given properties, descending.
func (b *Builder[T]) OrderDesc(props ...dao.Property) *Builder[T] {
	for i := range props {
		b.orderBy = append(b.orderBy, orderTerm{property: &props[i], desc: true})
	}
	return b
}

// OrderRaw adds a verbatim ORDER BY term.
func (b *Builder[T]) OrderRaw(raw string) *Builder[T] {
	b.orderBy = append(b.orderBy, orderTerm{raw: raw})
	return b
}

// Limit caps the number of results. The limit can be changed on the built
// query with SetLimit.
func (b *Builder[T]) Limit(limit int) *Builder[T] {
	b.limit = &limit
	return b
}

// Offset skips results. It requires Limit.
func (b *Builder[T]) Offset(offset int) *Builder[T] {
	b.offset = &offset
	return b
}

// Distinct selects distinct rows only.
func (b *Builder[T]) Distinct() *Builder[T] {
	b.distinct = true
	return b
}

// Build creates the select query and returns the calling goroutine's instance.
func (b *Builder[T]) Build() (*Query[T], error) {
	if b.offset != nil && b.limit == nil {
		return nil, ErrOffsetWithoutLimit
	}

	stmts := b.dao.Statements()
	dialect := stmts.Dialect()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(stmts.Columns(dao.TableAlias))
	sb.WriteString(" FROM ")
	sb.WriteString(dialect.Quote(stmts.Table()))
	sb.WriteString(" " + dao.TableAlias)

	values, err := b.appendWhere(&sb, dao.TableAlias, nil)
	if err != nil {
		return nil, err
	}
	b.appendOrder(&sb)

	limitPosition, offsetPosition := -1, -1
	if b.limit != nil {
		sb.WriteString(" LIMIT ?")
		limitPosition = len(values)
		values = append(values, *b.limit)
	}
	if b.offset != nil {
		sb.WriteString(" OFFSET ?")
		offsetPosition = len(values)
		values = append(values, *b.offset)
	}

	sql, params := b.finish(sb.String(), values)
	return newQueryData(b.dao, sql, params, limitPosition, offsetPosition).ForCurrentGoroutine()
}

// BuildCount creates a count query over the same conditions. Ordering and
// limits are ignored.
func (b *Builder[T]) BuildCount() (*CountQuery[T], error) {
	stmts := b.dao.Statements()

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(stmts.Dialect().Quote(stmts.Table()))
	sb.WriteString(" " + dao.TableAlias)

	values, err := b.appendWhere(&sb, dao.TableAlias, nil)
	if err != nil {
		return nil, err
	}

	sql, params := b.finish(sb.String(), values)
	return newCountQueryData(b.dao, sql, params).ForCurrentGoroutine()
}

// BuildDelete creates a bulk delete over the same conditions. DELETE does not
// take a table alias, so columns are qualified with the table name; raw
// conditions must do the same.
func (b *Builder[T]) BuildDelete() (*DeleteQuery[T], error) {
	if len(b.orderBy) > 0 || b.limit != nil || b.offset != nil {
		return nil, ErrDeleteOrdering
	}

	stmts := b.dao.Statements()
	table := stmts.Dialect().Quote(stmts.Table())

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)

	values, err := b.appendWhere(&sb, table, nil)
	if err != nil {
		return nil, err
	}

	sql, params := b.finish(sb.String(), values)
	return newDeleteQueryData(b.dao, sql, params).ForCurrentGoroutine()
}

// List builds the query and runs it once.
func (b *Builder[T]) List(ctx context.Context) ([]T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.List(ctx)
}

// Unique builds the query and returns its only result, or nil.
func (b *Builder[T]) Unique(ctx context.Context) (*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.Unique(ctx)
}

// Count builds the count query and runs it once.
func (b *Builder[T]) Count(ctx context.Context) (int64, error) {
	q, err := b.BuildCount()
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

func (b *Builder[T]) appendWhere(sb *strings.Builder, prefix string, values []any) ([]any, error) {
	if len(b.conditions) == 0 {
		return values, nil
	}
	dialect := b.dao.Statements().Dialect()
	sb.WriteString(" WHERE ")
	for i, cond := range b.conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if err := cond.appendTo(sb, prefix, dialect); err != nil {
			return nil, err
		}
		values = cond.appendValues(values)
	}
	return values, nil
}

func (b *Builder[T]) appendOrder(sb *strings.Builder) {
	if len(b.orderBy) == 0 {
		return
	}
	stmts := b.dao.Statements()
	sb.WriteString(" ORDER BY ")
	for i, term := range b.orderBy {
		if i > 0 {
			sb.WriteByte(',')
		}
		if term.property == nil {
			sb.WriteString(term.raw)
			continue
		}
		stmts.AppendColumn(sb, dao.TableAlias, *term.property)
		if term.desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
}

// finish rebinds placeholders for the driver and converts values to parameters.
func (b *Builder[T]) finish(sql string, values []any) (string, []string) {
	sql = b.dao.Database().Rebind(sql)
	params := make([]string, len(values))
	for i, v := range values {
		params[i] = dao.ToParam(v)
	}
	debug.Debug("built query", "sql", sql, "values", params)
	return sql, params
}
