package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

type stubFinder struct {
	calls int
	err   error
}

func (f *stubFinder) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	f.calls++
	return nil, f.err
}

func ratingSpec(t *testing.T) *keyset.SortSpec {
	t.Helper()
	spec, err := keyset.NewSortSpec[domain.Person](keyset.Asc("rating"), keyset.Desc("id"))
	require.NoError(t, err)
	return spec
}

func TestSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "rating", Value: 1}, {Key: "_id", Value: -1}}, Sort(ratingSpec(t)))
}

func TestFilterKeysetPredicate(t *testing.T) {
	spec := ratingSpec(t)
	p, err := keyset.BuildPredicate(spec, []keyset.Value{
		{Column: spec.First(), Value: 2.5},
		{Column: spec.ColumnAt(1), Value: int64(10)},
	}, keyset.After)
	require.NoError(t, err)

	doc, err := Filter(p)
	require.NoError(t, err)
	want := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "rating", Value: bson.D{{Key: "$gt", Value: 2.5}}}},
		bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "rating", Value: bson.D{{Key: "$eq", Value: 2.5}}}},
			bson.D{{Key: "_id", Value: bson.D{{Key: "$lt", Value: int64(10)}}}},
		}}},
	}}}
	assert.Equal(t, want, doc)
}

func TestFilterNulls(t *testing.T) {
	spec := ratingSpec(t)
	p, err := keyset.BuildPredicate(spec, []keyset.Value{
		{Column: spec.First(), Value: nil},
		{Column: spec.ColumnAt(1), Value: int64(3)},
	}, keyset.Before)
	require.NoError(t, err)

	doc, err := Filter(p)
	require.NoError(t, err)
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "rating", Value: nil}},
		bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: int64(3)}}}},
	}}}
	assert.Equal(t, want, doc)

	doc, err = Filter(keyset.IsNull{Column: spec.First(), Negate: true})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "rating", Value: bson.D{{Key: "$ne", Value: nil}}}}, doc)
}

func TestFilterConstants(t *testing.T) {
	doc, err := Filter(keyset.Const(true))
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, doc)

	doc, err = Filter(keyset.Const(false))
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$expr", Value: false}}, doc)

	_, err = Filter(nil)
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	v, err := Value(keyset.Char('x'))
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = Value(decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	want, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)
	assert.Equal(t, want, v)

	id := uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")
	v, err = Value(id)
	require.NoError(t, err)
	assert.Equal(t, primitive.Binary{Subtype: bson.TypeBinaryUUID, Data: id[:]}, v)

	v, err = Value(int16(4))
	require.NoError(t, err)
	assert.Equal(t, int16(4), v)
}

func TestQueryCombinesFilters(t *testing.T) {
	spec := ratingSpec(t)
	src := New[domain.Person](&stubFinder{})
	q := src.OrderBy(spec).
		Where(keyset.IsNull{Column: spec.First()}).
		Where(keyset.Cmp{Column: spec.ColumnAt(1), Op: keyset.OpGt, Value: int64(7)}).
		Limit(5).
		Limit(20)

	filter, opts, err := q.(*Source[domain.Person]).Query()
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "rating", Value: nil}},
		bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: int64(7)}}}},
	}}}, filter)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(5), *opts.Limit)
	assert.Equal(t, Sort(spec), opts.Sort)

	filter, opts, err = src.Query()
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, filter)
	assert.Nil(t, opts.Limit)
	assert.Nil(t, opts.Sort)
}

func TestFetchZeroLimitSkipsServer(t *testing.T) {
	finder := &stubFinder{}
	out, err := New[domain.Person](finder).Limit(0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, finder.calls)
}

func TestFetchWrapsFindErrors(t *testing.T) {
	boom := errors.New("server selection timeout")
	finder := &stubFinder{err: boom}
	_, err := New[domain.Person](finder).Fetch(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, finder.calls)
}

func TestDecimalCodec(t *testing.T) {
	type doc struct {
		Salary decimal.Decimal `bson:"salary"`
	}
	reg := Registry()

	raw, err := bson.MarshalWithRegistry(reg, doc{Salary: decimal.RequireFromString("401.25")})
	require.NoError(t, err)
	assert.Equal(t, bson.TypeDecimal128, bson.Raw(raw).Lookup("salary").Type)

	var got doc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &got))
	assert.True(t, got.Salary.Equal(decimal.RequireFromString("401.25")))

	raw, err = bson.Marshal(bson.D{{Key: "salary", Value: "3.5"}})
	require.NoError(t, err)
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &got))
	assert.True(t, got.Salary.Equal(decimal.RequireFromString("3.5")))
}

func TestUUIDCodec(t *testing.T) {
	type doc struct {
		ID uuid.UUID `bson:"id"`
	}
	reg := Registry()
	id := uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

	raw, err := bson.MarshalWithRegistry(reg, doc{ID: id})
	require.NoError(t, err)
	subtype, data := bson.Raw(raw).Lookup("id").Binary()
	assert.Equal(t, bson.TypeBinaryUUID, subtype)
	assert.Equal(t, id[:], data)

	var got doc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &got))
	assert.Equal(t, id, got.ID)
}
