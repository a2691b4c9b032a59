package query

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/go-dao/dao"
)

// Condition is one part of a WHERE clause. Build conditions with Eq, Gt, In,
// Raw and friends, and combine them with And / Or.
type Condition interface {
	// appendTo writes the condition, qualifying columns with prefix.
	appendTo(sb *strings.Builder, prefix string, dialect dao.Dialect) error
	// appendValues appends the values bound by the condition, in placeholder order.
	appendValues(values []any) []any
}

type propertyCondition struct {
	property dao.Property
	op       string
	values   []any
}

func (c propertyCondition) appendTo(sb *strings.Builder, prefix string, dialect dao.Dialect) error {
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteByte('.')
	}
	sb.WriteString(dialect.Quote(c.property.Column))

	for _, v := range c.values {
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNilValue, c.property)
		}
	}

	switch c.op {
	case "IN", "NOT IN":
		if len(c.values) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyIn, c.property)
		}
		sb.WriteString(" " + c.op + " (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?,", len(c.values)), ","))
		sb.WriteString(")")
	case "BETWEEN":
		sb.WriteString(" BETWEEN ? AND ?")
	case "IS NULL", "IS NOT NULL":
		sb.WriteString(" " + c.op)
	case "LIKE":
		sb.WriteString(" LIKE ?")
	default:
		sb.WriteString(" " + c.op + " ?")
	}
	return nil
}

func (c propertyCondition) appendValues(values []any) []any {
	return append(values, c.values...)
}

type rawCondition struct {
	sql    string
	values []any
}

func (c rawCondition) appendTo(sb *strings.Builder, _ string, _ dao.Dialect) error {
	sb.WriteString(c.sql)
	return nil
}

func (c rawCondition) appendValues(values []any) []any {
	return append(values, c.values...)
}

type combinedCondition struct {
	op         string
	conditions []Condition
}

func (c combinedCondition) appendTo(sb *strings.Builder, prefix string, dialect dao.Dialect) error {
	sb.WriteByte('(')
	for i, cond := range c.conditions {
		if i > 0 {
			sb.WriteString(" " + c.op + " ")
		}
		if err := cond.appendTo(sb, prefix, dialect); err != nil {
			return err
		}
	}
	sb.WriteByte(')')
	return nil
}

func (c combinedCondition) appendValues(values []any) []any {
	for _, cond := range c.conditions {
		values = cond.appendValues(values)
	}
	return values
}

// Eq matches rows where p equals value. A nil value fails the build with
// ErrNilValue; use IsNull instead.
func Eq(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: "=", values: []any{value}}
}

// NotEq matches rows where p differs from value.
func NotEq(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: "<>", values: []any{value}}
}

// Gt matches rows where p is greater than value.
func Gt(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: ">", values: []any{value}}
}

// Ge matches rows where p is greater than or equal to value.
func Ge(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: ">=", values: []any{value}}
}

// Lt matches rows where p is less than value.
func Lt(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: "<", values: []any{value}}
}

// Le matches rows where p is less than or equal to value.
func Le(p dao.Property, value any) Condition {
	return propertyCondition{property: p, op: "<=", values: []any{value}}
}

// Like matches rows where p matches the SQL LIKE pattern.
func Like(p dao.Property, pattern string) Condition {
	return propertyCondition{property: p, op: "LIKE", values: []any{pattern}}
}

// Between matches rows where p lies in [low, high].
func Between(p dao.Property, low, high any) Condition {
	return propertyCondition{property: p, op: "BETWEEN", values: []any{low, high}}
}

// In matches rows where p is one of values.
func In(p dao.Property, values ...any) Condition {
	return propertyCondition{property: p, op: "IN", values: values}
}

// NotIn matches rows where p is none of values.
func NotIn(p dao.Property, values ...any) Condition {
	return propertyCondition{property: p, op: "NOT IN", values: values}
}

// IsNull matches rows where p is NULL.
func IsNull(p dao.Property) Condition {
	return propertyCondition{property: p, op: "IS NULL"}
}

// IsNotNull matches rows where p is not NULL.
func IsNotNull(p dao.Property) Condition {
	return propertyCondition{property: p, op: "IS NOT NULL"}
}

// Raw inserts sql verbatim. Use '?' for each of values; columns must be
// qualified by hand (T."COLUMN" in select queries).
func Raw(sql string, values ...any) Condition {
	return rawCondition{sql: sql, values: values}
}

// And combines conditions with AND.
func And(c1, c2 Condition, more ...Condition) Condition {
	return combinedCondition{op: "AND", conditions: append([]Condition{c1, c2}, more...)}
}

// Or combines conditions with OR.
func Or(c1, c2 Condition, more ...Condition) Condition {
	return combinedCondition{op: "OR", conditions: append([]Condition{c1, c2}, more...)}
}
