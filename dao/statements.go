package dao

import (
	"fmt"
	"strings"
)

// TableAlias is the alias entity tables carry in SELECT statements.
const TableAlias = "T"

// TableStatements generates the SQL for one table. All statements use '?'
// placeholders; callers rebind them for the driver.
type TableStatements struct {
	dialect    Dialect
	table      string
	properties []Property
	pk         *Property

	selectAll   string
	insertAll   string
	insertNoKey string
	update      string
	deleteByKey string
}

// NewTableStatements precomputes the statements for table.
func NewTableStatements(dialect Dialect, table string, properties []Property) *TableStatements {
	s := &TableStatements{
		dialect:    dialect,
		table:      table,
		properties: properties,
	}
	for i := range properties {
		if properties[i].PrimaryKey {
			s.pk = &properties[i]
			break
		}
	}

	s.selectAll = "SELECT " + s.Columns(TableAlias) + " FROM " + dialect.Quote(table) + " " + TableAlias
	s.insertAll = s.buildInsert(properties, false)
	if s.pk != nil && s.pk.AutoIncrement {
		s.insertNoKey = s.buildInsert(s.nonKeyProperties(), dialect.SupportsReturning())
	}
	if s.pk != nil {
		sets := make([]string, 0, len(properties))
		for _, p := range s.nonKeyProperties() {
			sets = append(sets, dialect.Quote(p.Column)+"=?")
		}
		s.update = fmt.Sprintf("UPDATE %s SET %s WHERE %s=?",
			dialect.Quote(table), strings.Join(sets, ","), dialect.Quote(s.pk.Column))
		s.deleteByKey = fmt.Sprintf("DELETE FROM %s WHERE %s=?",
			dialect.Quote(table), dialect.Quote(s.pk.Column))
	}
	return s
}

func (s *TableStatements) buildInsert(props []Property, returning bool) string {
	cols := make([]string, len(props))
	marks := make([]string, len(props))
	for i, p := range props {
		cols[i] = s.dialect.Quote(p.Column)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.Quote(s.table), strings.Join(cols, ","), strings.Join(marks, ","))
	if returning && s.pk != nil {
		sql += " RETURNING " + s.dialect.Quote(s.pk.Column)
	}
	return sql
}

func (s *TableStatements) nonKeyProperties() []Property {
	props := make([]Property, 0, len(s.properties))
	for _, p := range s.properties {
		if !p.PrimaryKey {
			props = append(props, p)
		}
	}
	return props
}

// Dialect returns the dialect the statements are generated for.
func (s *TableStatements) Dialect() Dialect {
	return s.dialect
}

// Table returns the unquoted table name.
func (s *TableStatements) Table() string {
	return s.table
}

// PrimaryKey returns the primary key property, if any.
func (s *TableStatements) PrimaryKey() (Property, bool) {
	if s.pk == nil {
		return Property{}, false
	}
	return *s.pk, true
}

// Columns renders the quoted column list, each prefixed with alias when set.
func (s *TableStatements) Columns(alias string) string {
	var sb strings.Builder
	for i, p := range s.properties {
		if i > 0 {
			sb.WriteByte(',')
		}
		s.AppendColumn(&sb, alias, p)
	}
	return sb.String()
}

// AppendColumn writes one quoted, optionally aliased column.
func (s *TableStatements) AppendColumn(sb *strings.Builder, alias string, p Property) {
	if alias != "" {
		sb.WriteString(alias)
		sb.WriteByte('.')
	}
	sb.WriteString(s.dialect.Quote(p.Column))
}

// SelectAll is SELECT of every column from the aliased table.
func (s *TableStatements) SelectAll() string {
	return s.selectAll
}

// SelectByKey is SelectAll restricted to one primary key value.
func (s *TableStatements) SelectByKey() string {
	if s.pk == nil {
		return ""
	}
	return s.selectAll + " WHERE " + TableAlias + "." + s.dialect.Quote(s.pk.Column) + "=?"
}

// Insert binds every property, in property order.
func (s *TableStatements) Insert() string {
	return s.insertAll
}

// InsertGeneratedKey omits an auto-increment key so the database assigns it.
// On dialects with RETURNING support the statement returns the new key.
func (s *TableStatements) InsertGeneratedKey() string {
	return s.insertNoKey
}

// Update binds every non-key property followed by the key.
func (s *TableStatements) Update() string {
	return s.update
}

// DeleteByKey binds the key.
func (s *TableStatements) DeleteByKey() string {
	return s.deleteByKey
}

// DeleteAll removes every row.
func (s *TableStatements) DeleteAll() string {
	return "DELETE FROM " + s.dialect.Quote(s.table)
}

// Count counts every row.
func (s *TableStatements) Count() string {
	return "SELECT COUNT(*) FROM " + s.dialect.Quote(s.table)
}

// CreateTable renders the DDL for the table.
func (s *TableStatements) CreateTable(ifNotExists bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(s.dialect.Quote(s.table))
	sb.WriteString(" (")
	for i, p := range s.properties {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.dialect.Quote(p.Column))
		sb.WriteByte(' ')
		switch {
		case p.PrimaryKey && p.AutoIncrement:
			sb.WriteString(s.dialect.AutoIncrementColumn())
		case p.PrimaryKey:
			sb.WriteString(p.Type)
			sb.WriteString(" PRIMARY KEY")
		default:
			sb.WriteString(p.Type)
			if p.NotNull {
				sb.WriteString(" NOT NULL")
			}
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// DropTable renders DROP TABLE.
func (s *TableStatements) DropTable(ifExists bool) string {
	if ifExists {
		return "DROP TABLE IF EXISTS " + s.dialect.Quote(s.table)
	}
	return "DROP TABLE " + s.dialect.Quote(s.table)
}
