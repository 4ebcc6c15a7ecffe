// Package sqlexpr renders keyset sort chains and predicates as SQL.
package sqlexpr

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rpattn/keyset/pkg/keyset"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Builder accumulates positional arguments while a statement is rendered.
type Builder struct {
	dialect Dialect
	args    []any
}

// NewBuilder returns an empty builder for dialect.
func NewBuilder(dialect Dialect) *Builder {
	return &Builder{dialect: dialect, args: make([]any, 0)}
}

// AddArg appends value and returns its 1-based position.
func (b *Builder) AddArg(value any) int {
	b.args = append(b.args, Arg(value))
	return len(b.args)
}

// Placeholder renders the parameter marker for position idx.
func (b *Builder) Placeholder(idx int) string {
	if b.dialect == SQLite {
		return fmt.Sprintf("?%d", idx)
	}
	return fmt.Sprintf("$%d", idx)
}

// Args returns the arguments in position order.
func (b *Builder) Args() []any { return b.args }

// Arg converts a decoded cursor value into a driver argument. Times are
// passed in UTC to match how rows are stored.
func Arg(value any) any {
	switch v := value.(type) {
	case keyset.Char:
		return string(rune(v))
	case time.Time:
		return v.UTC()
	}
	return value
}

// Ident quotes a SQL identifier.
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Where renders p as a boolean SQL expression.
func (b *Builder) Where(p keyset.Predicate) (string, error) {
	switch p := p.(type) {
	case keyset.Const:
		if p {
			return "TRUE", nil
		}
		return "FALSE", nil
	case keyset.IsNull:
		if p.Negate {
			return Ident(p.Column.DBName()) + " IS NOT NULL", nil
		}
		return Ident(p.Column.DBName()) + " IS NULL", nil
	case keyset.Cmp:
		idx := b.AddArg(p.Value)
		return fmt.Sprintf("%s %s %s", Ident(p.Column.DBName()), p.Op, b.Placeholder(idx)), nil
	case keyset.Or:
		return b.join(p, " OR ")
	case keyset.And:
		return b.join(p, " AND ")
	}
	return "", fmt.Errorf("sqlexpr: unsupported predicate %T", p)
}

func (b *Builder) join(ps []keyset.Predicate, sep string) (string, error) {
	if len(ps) == 0 {
		if sep == " OR " {
			return "FALSE", nil
		}
		return "TRUE", nil
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		expr, err := b.Where(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// OrderBy renders the ORDER BY clause for spec. Absent values are placed
// first for ascending columns and last for descending ones, matching the
// order keyset cursors assume.
func OrderBy(spec *keyset.SortSpec) string {
	orderings := make([]string, 0, spec.Depth())
	_ = spec.Walk(func(c *keyset.Column) error {
		if c.Direction == keyset.Descending {
			orderings = append(orderings, Ident(c.DBName())+" DESC NULLS LAST")
		} else {
			orderings = append(orderings, Ident(c.DBName())+" ASC NULLS FIRST")
		}
		return nil
	})
	return "ORDER BY " + strings.Join(orderings, ", ")
}

// Field maps a struct field to a result column.
type Field struct {
	Column string
	Index  []int
}

// FieldsOf lists the columns a record type is read from: each exported field
// by its db tag, else its lowercased name. Fields tagged db:"-" are skipped.
func FieldsOf(typ reflect.Type) []Field {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	var fields []Field
	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := strings.ToLower(f.Name)
		if tag := f.Tag.Get("db"); tag != "" {
			if tag == "-" {
				continue
			}
			name, _, _ = strings.Cut(tag, ",")
		}
		fields = append(fields, Field{Column: name, Index: f.Index})
	}
	return fields
}

// Select is a SELECT statement over one table assembled from keyset parts.
type Select struct {
	Table   string
	Columns []string
	Sort    *keyset.SortSpec
	Filters []keyset.Predicate
	// Limit is ignored when negative.
	Limit int
}

// Render produces the statement text and its arguments.
func (s Select) Render(dialect Dialect) (string, []any, error) {
	if s.Table == "" {
		return "", nil, fmt.Errorf("sqlexpr: table is required")
	}
	if len(s.Columns) == 0 {
		return "", nil, fmt.Errorf("sqlexpr: no columns to select")
	}
	b := NewBuilder(dialect)

	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = Ident(c)
	}

	var q strings.Builder
	q.WriteString("SELECT ")
	q.WriteString(strings.Join(cols, ", "))
	q.WriteString(" FROM ")
	q.WriteString(Ident(s.Table))

	if len(s.Filters) > 0 {
		clauses := make([]string, 0, len(s.Filters))
		for _, p := range s.Filters {
			expr, err := b.Where(p)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, expr)
		}
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(clauses, " AND "))
	}
	if s.Sort != nil {
		q.WriteString(" ")
		q.WriteString(OrderBy(s.Sort))
	}
	if s.Limit >= 0 {
		idx := b.AddArg(s.Limit)
		q.WriteString(" LIMIT ")
		q.WriteString(b.Placeholder(idx))
	}
	return q.String(), b.Args(), nil
}
