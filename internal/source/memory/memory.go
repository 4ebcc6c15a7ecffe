// Package memory is a keyset.Source over a slice held in process.
package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/rpattn/keyset/pkg/keyset"
)

// Source filters, orders and limits a fixed slice of records. The slice is
// never modified.
type Source[T any] struct {
	records []T
	spec    *keyset.SortSpec
	filters []keyset.Predicate
	limit   int
}

// New returns a source over records.
func New[T any](records []T) *Source[T] {
	return &Source[T]{records: records, limit: -1}
}

func (s *Source[T]) clone() *Source[T] {
	c := *s
	c.filters = slices.Clip(s.filters)
	return &c
}

// OrderBy implements keyset.Source.
func (s *Source[T]) OrderBy(spec *keyset.SortSpec) keyset.Source[T] {
	c := s.clone()
	c.spec = spec
	return c
}

// Where implements keyset.Source.
func (s *Source[T]) Where(p keyset.Predicate) keyset.Source[T] {
	c := s.clone()
	c.filters = append(c.filters, p)
	return c
}

// Limit implements keyset.Source.
func (s *Source[T]) Limit(n int) keyset.Source[T] {
	c := s.clone()
	if c.limit < 0 || n < c.limit {
		c.limit = n
	}
	return c
}

type keyed[T any] struct {
	record T
	key    []any
}

// Fetch implements keyset.Source.
func (s *Source[T]) Fetch(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]keyed[T], 0, len(s.records))
	for i, rec := range s.records {
		ok, err := s.matches(rec)
		if err != nil {
			return nil, fmt.Errorf("filter record %d: %w", i, err)
		}
		if !ok {
			continue
		}
		row := keyed[T]{record: rec}
		if s.spec != nil {
			if row.key, err = s.spec.Key(rec); err != nil {
				return nil, fmt.Errorf("read sort key of record %d: %w", i, err)
			}
		}
		rows = append(rows, row)
	}

	if s.spec != nil {
		slices.SortStableFunc(rows, func(a, b keyed[T]) int {
			return s.spec.CompareKeys(a.key, b.key)
		})
	}
	if s.limit >= 0 && len(rows) > s.limit {
		rows = rows[:s.limit]
	}

	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = row.record
	}
	return out, nil
}

func (s *Source[T]) matches(rec T) (bool, error) {
	for _, p := range s.filters {
		ok, err := keyset.Eval(p, rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
