// Package mongo is a keyset.Source over a MongoDB collection. Keyset filters
// are translated into query documents and the sort chain into a sort
// document, so the server does the work.
package mongo

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rpattn/keyset/pkg/keyset"
)

// Finder is satisfied by *mongo.Collection.
type Finder interface {
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Source reads documents decoded into T. Column names come from T's bson tags.
type Source[T any] struct {
	coll    Finder
	spec    *keyset.SortSpec
	filters []keyset.Predicate
	limit   int
}

// New returns a source over coll.
func New[T any](coll Finder) *Source[T] {
	return &Source[T]{coll: coll, limit: -1}
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

// Query renders the filter and find options Fetch would use.
func (s *Source[T]) Query() (bson.D, *options.FindOptions, error) {
	filter := bson.D{}
	if len(s.filters) == 1 {
		doc, err := Filter(s.filters[0])
		if err != nil {
			return nil, nil, err
		}
		filter = doc
	} else if len(s.filters) > 1 {
		all := make(bson.A, 0, len(s.filters))
		for _, p := range s.filters {
			doc, err := Filter(p)
			if err != nil {
				return nil, nil, err
			}
			all = append(all, doc)
		}
		filter = bson.D{{Key: "$and", Value: all}}
	}

	opts := options.Find()
	if s.spec != nil {
		opts.SetSort(Sort(s.spec))
	}
	if s.limit > 0 {
		opts.SetLimit(int64(s.limit))
	}
	return filter, opts, nil
}

// Fetch implements keyset.Source.
func (s *Source[T]) Fetch(ctx context.Context) ([]T, error) {
	// a zero limit means "no limit" to the server
	if s.limit == 0 {
		return []T{}, nil
	}
	filter, opts, err := s.Query()
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	records := make([]T, 0)
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return records, nil
}

// Sort renders spec as a sort document. MongoDB already orders missing and
// null values before all others, which is what keyset cursors assume.
func Sort(spec *keyset.SortSpec) bson.D {
	doc := make(bson.D, 0, spec.Depth())
	_ = spec.Walk(func(c *keyset.Column) error {
		order := 1
		if c.Direction == keyset.Descending {
			order = -1
		}
		doc = append(doc, bson.E{Key: c.BSONName(), Value: order})
		return nil
	})
	return doc
}

// Filter renders p as a query document.
func Filter(p keyset.Predicate) (bson.D, error) {
	switch p := p.(type) {
	case keyset.Const:
		if p {
			return bson.D{}, nil
		}
		return bson.D{{Key: "$expr", Value: false}}, nil
	case keyset.IsNull:
		if p.Negate {
			return bson.D{{Key: p.Column.BSONName(), Value: bson.D{{Key: "$ne", Value: nil}}}}, nil
		}
		return bson.D{{Key: p.Column.BSONName(), Value: nil}}, nil
	case keyset.Cmp:
		v, err := Value(p.Value)
		if err != nil {
			return nil, err
		}
		op := "$eq"
		switch p.Op {
		case keyset.OpGt:
			op = "$gt"
		case keyset.OpLt:
			op = "$lt"
		}
		return bson.D{{Key: p.Column.BSONName(), Value: bson.D{{Key: op, Value: v}}}}, nil
	case keyset.Or:
		return combine("$or", p)
	case keyset.And:
		return combine("$and", p)
	}
	return nil, fmt.Errorf("mongo: unsupported predicate %T", p)
}

func combine(op string, ps []keyset.Predicate) (bson.D, error) {
	docs := make(bson.A, 0, len(ps))
	for _, p := range ps {
		doc, err := Filter(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return bson.D{{Key: op, Value: docs}}, nil
}

// Value converts a decoded cursor value into its BSON representation.
// Decimals become Decimal128 and UUIDs standard binary subtype 4, so stored
// documents must use the same representations.
func Value(v any) (any, error) {
	switch v := v.(type) {
	case keyset.Char:
		return string(rune(v)), nil
	case decimal.Decimal:
		d, err := primitive.ParseDecimal128(v.String())
		if err != nil {
			return nil, fmt.Errorf("convert decimal %s: %w", v, err)
		}
		return d, nil
	case uuid.UUID:
		return primitive.Binary{Subtype: bson.TypeBinaryUUID, Data: v[:]}, nil
	}
	return v, nil
}
