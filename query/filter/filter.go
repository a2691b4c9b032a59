// Package filter parses textual WHERE expressions such as
//
//	text like "%milk%" and (date > 1700000000000 or id = 3)
//
// into query conditions over a DAO's properties.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/go-dao/dao"
	"github.com/satishbabariya/go-dao/query"
)

// ErrUnknownProperty is returned for a name that matches no property.
var ErrUnknownProperty = errors.New("unknown property")

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Keyword", Pattern: `(?i)\b(and|or|like|is|not|null)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `<>|!=|<=|>=|[=<>]`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Expr is a disjunction of conjunctions.
type Expr struct {
	Or []*AndExpr `@@ ( "or" @@ )*`
}

type AndExpr struct {
	And []*Term `@@ ( "and" @@ )*`
}

type Term struct {
	Group      *Expr       `  "(" @@ ")"`
	Comparison *Comparison `| @@`
}

type Comparison struct {
	Property  string     `@Ident`
	Predicate *Predicate `@@`
}

type Predicate struct {
	Null  *NullCheck `  @@`
	Match *Match     `| @@`
}

type NullCheck struct {
	Not bool `"is" @"not"? "null"`
}

type Match struct {
	Op    string `( @Operator | @"like" )`
	Value *Value `@@`
}

type Value struct {
	String *string `  @String`
	Number *string `| @Number`
}

func (v *Value) raw() string {
	if v.String != nil {
		return *v.String
	}
	return *v.Number
}

var parser = participle.MustBuild[Expr](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)

// Parse parses input without resolving property names.
func Parse(input string) (*Expr, error) {
	expr, err := parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", err)
	}
	return expr, nil
}

// Compile parses input and resolves every name against props. Names match
// either the property name or its column, ignoring case.
func Compile(input string, props []dao.Property) (query.Condition, error) {
	expr, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return expr.condition(props)
}

func (e *Expr) condition(props []dao.Property) (query.Condition, error) {
	conds := make([]query.Condition, 0, len(e.Or))
	for _, and := range e.Or {
		c, err := and.condition(props)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return query.Or(conds[0], conds[1], conds[2:]...), nil
}

func (a *AndExpr) condition(props []dao.Property) (query.Condition, error) {
	conds := make([]query.Condition, 0, len(a.And))
	for _, term := range a.And {
		var (
			c   query.Condition
			err error
		)
		if term.Group != nil {
			c, err = term.Group.condition(props)
		} else {
			c, err = term.Comparison.condition(props)
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return query.And(conds[0], conds[1], conds[2:]...), nil
}

func (c *Comparison) condition(props []dao.Property) (query.Condition, error) {
	p, err := lookup(c.Property, props)
	if err != nil {
		return nil, err
	}

	if n := c.Predicate.Null; n != nil {
		if n.Not {
			return query.IsNotNull(p), nil
		}
		return query.IsNull(p), nil
	}

	m := c.Predicate.Match
	value := m.Value.raw()
	switch strings.ToLower(m.Op) {
	case "=":
		return query.Eq(p, value), nil
	case "<>", "!=":
		return query.NotEq(p, value), nil
	case "<":
		return query.Lt(p, value), nil
	case "<=":
		return query.Le(p, value), nil
	case ">":
		return query.Gt(p, value), nil
	case ">=":
		return query.Ge(p, value), nil
	case "like":
		return query.Like(p, value), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", m.Op)
	}
}

func lookup(name string, props []dao.Property) (dao.Property, error) {
	for _, p := range props {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.Column, name) {
			return p, nil
		}
	}
	return dao.Property{}, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
}
