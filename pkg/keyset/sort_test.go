package keyset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sortRecord struct {
	ID       int64  `db:"person_id" bson:"_id"`
	Name     string `keyset:"full_name"`
	DOB      time.Time
	Score    *int32
	Tags     []string
	internal int
	Skipped  string `keyset:"-"`
}

type ambiguousRecord struct {
	Name string
	NAME string
}

type embeddedBase struct {
	Created time.Time
}

type embeddingRecord struct {
	embeddedBase
	ID int
}

func TestNewSortSpecResolvesColumns(t *testing.T) {
	spec, err := NewSortSpec[sortRecord](Asc("id"), Desc("FULL_NAME"), Asc("dob"))
	require.NoError(t, err)

	assert.Equal(t, 3, spec.Depth())
	assert.Equal(t, "id asc, full_name desc, dob asc", spec.String())

	id := spec.ColumnAt(0)
	require.NotNil(t, id)
	assert.Equal(t, "int64", id.Type.Tag())
	assert.Equal(t, "person_id", id.DBName())
	assert.Equal(t, "_id", id.BSONName())

	name := spec.ColumnAt(1)
	require.NotNil(t, name)
	assert.Equal(t, "full_name", name.Key())
	assert.Equal(t, "name", name.DBName())
	assert.Equal(t, Descending, name.Direction)
	assert.Same(t, name, id.Next())

	assert.Nil(t, spec.ColumnAt(3))
	assert.Nil(t, spec.ColumnAt(-1))
}

func TestNewSortSpecAcceptsPointerRecords(t *testing.T) {
	spec, err := NewSortSpec[*sortRecord](Asc("score"))
	require.NoError(t, err)
	assert.Equal(t, "int32?", spec.First().Type.Tag())

	key, err := spec.Key(&sortRecord{})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, key)
}

func TestNewSortSpecResolvesPromotedFields(t *testing.T) {
	spec, err := NewSortSpec[embeddingRecord](Asc("created"), Asc("id"))
	require.NoError(t, err)

	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	key, err := spec.Key(embeddingRecord{embeddedBase: embeddedBase{Created: when}, ID: 7})
	require.NoError(t, err)
	assert.Equal(t, []any{when, 7}, key)
}

func TestNewSortSpecConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cols []SortColumn
		want error
	}{
		{name: "unknown column", cols: []SortColumn{Asc("missing")}, want: ErrUnknownColumn},
		{name: "tagged field by go name", cols: []SortColumn{Asc("name")}, want: ErrUnknownColumn},
		{name: "unexported field", cols: []SortColumn{Asc("internal")}, want: ErrUnknownColumn},
		{name: "excluded field", cols: []SortColumn{Asc("skipped")}, want: ErrUnknownColumn},
		{name: "unsupported type", cols: []SortColumn{Asc("tags")}, want: ErrUnsupportedType},
		{name: "later column fails", cols: []SortColumn{Asc("id"), Asc("nope")}, want: ErrUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSortSpec[sortRecord](tt.cols...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewSortSpecAmbiguousColumn(t *testing.T) {
	_, err := NewSortSpec[ambiguousRecord](Asc("name"))
	assert.ErrorIs(t, err, ErrAmbiguousColumn)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewSortSpecArgumentErrors(t *testing.T) {
	_, err := NewSortSpec[sortRecord]()
	assert.ErrorIs(t, err, ErrArgument)

	_, err = NewSortSpec[int](Asc("id"))
	assert.ErrorIs(t, err, ErrArgument)

	_, err = NewSortSpec[sortRecord](SortColumn{Name: "id", Direction: Direction(7)})
	assert.ErrorIs(t, err, ErrArgument)

	_, err = NewSortSpecWithRegistry[sortRecord](nil, Asc("id"))
	assert.ErrorIs(t, err, ErrArgument)
}

func TestSortSpecWalkVisitsChainInOrder(t *testing.T) {
	spec, err := NewSortSpec[sortRecord](Desc("dob"), Asc("id"))
	require.NoError(t, err)

	var visited []string
	err = spec.Walk(func(c *Column) error {
		visited = append(visited, c.Key()+":"+c.Direction.String())
		assert.Equal(t, len(visited)-1, c.Position)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dob:desc", "id:asc"}, visited)

	stop := errors.New("stop")
	calls := 0
	err = spec.Walk(func(*Column) error {
		calls++
		return stop
	})
	assert.Same(t, stop, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, []SortColumn{Desc("dob"), Asc("id")}, spec.Columns())
}

func TestSortSpecKeyRejectsForeignRecords(t *testing.T) {
	spec, err := NewSortSpec[sortRecord](Asc("id"))
	require.NoError(t, err)

	_, err = spec.Key(ambiguousRecord{})
	assert.ErrorIs(t, err, ErrArgument)

	var nilRecord *sortRecord
	_, err = spec.Key(nilRecord)
	assert.ErrorIs(t, err, ErrArgument)

	_, err = spec.Key(nil)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestCompareKeysHonoursDirectionAndPriority(t *testing.T) {
	spec, err := NewSortSpec[sortRecord](Asc("id"), Desc("full_name"))
	require.NoError(t, err)

	assert.Negative(t, spec.CompareKeys([]any{int64(1), "a"}, []any{int64(2), "z"}))
	assert.Positive(t, spec.CompareKeys([]any{int64(1), "a"}, []any{int64(1), "z"}))
	assert.Zero(t, spec.CompareKeys([]any{int64(1), "a"}, []any{int64(1), "a"}))
}

func TestParseOrder(t *testing.T) {
	cols, err := ParseOrder("id asc, Name DESC,dob, rank:descending")
	require.NoError(t, err)
	assert.Equal(t, []SortColumn{Asc("id"), Desc("Name"), Asc("dob"), Desc("rank")}, cols)

	for _, bad := range []string{"", "  ", "id sideways", "id asc extra", "id,,name"} {
		_, err := ParseOrder(bad)
		assert.ErrorIs(t, err, ErrArgument, bad)
	}
}

func TestParseSortSpec(t *testing.T) {
	spec, err := ParseSortSpec[sortRecord]("dob desc, id")
	require.NoError(t, err)
	assert.Equal(t, "dob desc, id asc", spec.String())

	_, err = ParseSortSpec[sortRecord]("nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
