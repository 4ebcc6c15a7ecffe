package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

const schema = `CREATE TABLE people (
	id INTEGER PRIMARY KEY,
	team INTEGER NOT NULL,
	name TEXT NOT NULL,
	dob DATETIME NOT NULL,
	rank INTEGER NOT NULL,
	level INTEGER NOT NULL,
	height REAL NOT NULL,
	rating REAL,
	salary NUMERIC NOT NULL,
	active BOOLEAN NOT NULL,
	manager_id INTEGER,
	external_id TEXT NOT NULL,
	updated_at DATETIME
)`

func seed(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, schema)
	require.NoError(t, err)
	for _, p := range domain.SamplePeople() {
		_, err := db.ExecContext(ctx,
			`INSERT INTO people (id, team, name, dob, rank, level, height, rating, salary, active, manager_id, external_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Team, p.Name, p.DOB, p.Rank, p.Level, p.Height, p.Rating, p.Salary, p.Active, p.ManagerID, p.ExternalID, p.UpdatedAt)
		require.NoError(t, err)
	}
	return db
}

func ids(people []domain.Person) []int64 {
	out := make([]int64, len(people))
	for i, p := range people {
		out[i] = p.ID
	}
	return out
}

func TestFetchPageAgainstSQLite(t *testing.T) {
	db := seed(t)
	src := New[domain.Person](db, "people")
	spec, err := keyset.NewSortSpec[domain.Person](keyset.Asc("team"), keyset.Asc("name"), keyset.Asc("dob"))
	require.NoError(t, err)
	first := 10

	conn, err := keyset.FetchPage[domain.Person](context.Background(), src, keyset.PageRequest{
		Sort:   spec,
		First:  &first,
		Cursor: "asc::team::2//asc::name::C//asc::dob::1981-04-07T00:00:00Z",
		Kind:   keyset.After,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{22, 23, 24, 25, 26, 27, 28, 29, 30, 31}, ids(conn.Nodes()))
	assert.True(t, conn.PageInfo.HasNextPage)

	head := conn.Edges[0]
	assert.Equal(t, "asc::team::2//asc::name::D//asc::dob::1981-04-07T00:00:00Z", head.Cursor)
	assert.Equal(t, "D", head.Node.Name)
	assert.True(t, head.Node.Salary.Equal(domain.SamplePeople()[21].Salary))
	assert.Equal(t, domain.SamplePeople()[21].ExternalID, head.Node.ExternalID)
}

func TestTraversalMatchesInMemoryOrder(t *testing.T) {
	db := seed(t)
	src := New[domain.Person](db, "people")
	spec, err := keyset.NewSortSpec[domain.Person](keyset.Desc("rating"), keyset.Asc("managerid"), keyset.Desc("id"))
	require.NoError(t, err)

	all, err := src.OrderBy(spec).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 36)

	var walked []int64
	cursor := ""
	page := 7
	for {
		conn, err := keyset.FetchPage[domain.Person](context.Background(), src, keyset.PageRequest{
			Sort: spec, First: &page, Cursor: cursor, Kind: keyset.After,
		})
		require.NoError(t, err)
		walked = append(walked, ids(conn.Nodes())...)
		if !conn.PageInfo.HasNextPage {
			break
		}
		cursor = *conn.PageInfo.EndCursor
	}
	assert.Equal(t, ids(all), walked)

	for i := 1; i < len(all); i++ {
		ka, err := spec.Key(all[i-1])
		require.NoError(t, err)
		kb, err := spec.Key(all[i])
		require.NoError(t, err)
		assert.Negative(t, spec.CompareKeys(ka, kb), "rows %d and %d out of order", i-1, i)
	}
}

func TestSliceBeforeAgainstSQLite(t *testing.T) {
	db := seed(t)
	spec, err := keyset.NewSortSpec[domain.Person](keyset.Asc("id"))
	require.NoError(t, err)

	q, err := keyset.SliceBefore[domain.Person](New[domain.Person](db, "people"), spec, nil, "asc::id::4")
	require.NoError(t, err)
	out, err := q.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(out))
}

func TestSQLUsesNumberedPlaceholders(t *testing.T) {
	spec, err := keyset.NewSortSpec[domain.Person](keyset.Asc("id"))
	require.NoError(t, err)
	q, err := keyset.SliceAfter[domain.Person](New[domain.Person](nil, "people"), spec, nil, "asc::id::4")
	require.NoError(t, err)

	query, args, err := q.(*Source[domain.Person]).SQL()
	require.NoError(t, err)
	assert.Contains(t, query, `WHERE "id" > ?1 ORDER BY "id" ASC NULLS FIRST`)
	assert.Equal(t, []any{int64(4)}, args)
}
