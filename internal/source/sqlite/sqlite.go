// Package sqlite is a keyset.Source over a database/sql handle opened with the
// go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rpattn/keyset/internal/sqlexpr"
	"github.com/rpattn/keyset/pkg/keyset"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// Open opens a SQLite database. Use ":memory:" for a private in-memory one.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Source reads records of type T from one table.
type Source[T any] struct {
	db     Queryer
	fields []sqlexpr.Field
	stmt   sqlexpr.Select
}

// New returns a source selecting every mapped column of T from table.
func New[T any](db Queryer, table string) *Source[T] {
	fields := sqlexpr.FieldsOf(reflect.TypeFor[T]())
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return &Source[T]{
		db:     db,
		fields: fields,
		stmt:   sqlexpr.Select{Table: table, Columns: cols, Limit: -1},
	}
}

func (s *Source[T]) clone() *Source[T] {
	c := *s
	c.stmt.Filters = slices.Clip(s.stmt.Filters)
	return &c
}

// OrderBy implements keyset.Source.
func (s *Source[T]) OrderBy(spec *keyset.SortSpec) keyset.Source[T] {
	c := s.clone()
	c.stmt.Sort = spec
	return c
}

// Where implements keyset.Source.
func (s *Source[T]) Where(p keyset.Predicate) keyset.Source[T] {
	c := s.clone()
	c.stmt.Filters = append(c.stmt.Filters, p)
	return c
}

// Limit implements keyset.Source.
func (s *Source[T]) Limit(n int) keyset.Source[T] {
	c := s.clone()
	if c.stmt.Limit < 0 || n < c.stmt.Limit {
		c.stmt.Limit = n
	}
	return c
}

// SQL renders the query Fetch would run.
func (s *Source[T]) SQL() (string, []any, error) {
	return s.stmt.Render(sqlexpr.SQLite)
}

// Fetch implements keyset.Source.
func (s *Source[T]) Fetch(ctx context.Context) ([]T, error) {
	query, args, err := s.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.stmt.Table, err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var rec T
		rv := reflect.ValueOf(&rec).Elem()
		for rv.Kind() == reflect.Pointer {
			rv.Set(reflect.New(rv.Type().Elem()))
			rv = rv.Elem()
		}
		dest := make([]any, len(s.fields))
		for i, f := range s.fields {
			dest[i] = rv.FieldByIndex(f.Index).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.stmt.Table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", s.stmt.Table, err)
	}
	return records, nil
}
