// Package postgres is a keyset.Source that pushes ordering, keyset filters and
// limits down to PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/keyset/internal/sqlexpr"
	"github.com/rpattn/keyset/pkg/keyset"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source reads records of type T from one table. Rows are mapped onto T with
// pgx.RowToStructByName, so T's db tags name the table's columns.
type Source[T any] struct {
	db   DBTX
	stmt sqlexpr.Select
}

// New returns a source selecting every mapped column of T from table.
func New[T any](db DBTX, table string) *Source[T] {
	fields := sqlexpr.FieldsOf(reflect.TypeFor[T]())
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return &Source[T]{
		db:   db,
		stmt: sqlexpr.Select{Table: table, Columns: cols, Limit: -1},
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
	return s.stmt.Render(sqlexpr.Postgres)
}

// Fetch implements keyset.Source.
func (s *Source[T]) Fetch(ctx context.Context) ([]T, error) {
	query, args, err := s.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.stmt.Table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("scan %s rows: %w", s.stmt.Table, err)
	}
	return records, nil
}
