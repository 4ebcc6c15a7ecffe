package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/source/memory"
	mongosource "github.com/rpattn/keyset/internal/source/mongo"
	"github.com/rpattn/keyset/internal/source/postgres"
	"github.com/rpattn/keyset/internal/source/sqlite"
	"github.com/rpattn/keyset/pkg/keyset"
)

// PeopleTable is the table (or collection) people are stored in.
const PeopleTable = "people"

type personRepository struct {
	source keyset.Source[domain.Person]
	byID   *keyset.SortSpec
}

// NewPersonRepository creates a repository reading people from source.
func NewPersonRepository(source keyset.Source[domain.Person]) PersonRepository {
	byID, err := keyset.NewSortSpec[domain.Person](keyset.Asc(string(domain.PersonSortFieldID)))
	if err != nil {
		// Person is a fixed type; resolution only fails if its id field changes.
		panic(err)
	}
	return &personRepository{source: source, byID: byID}
}

// NewPostgresPersonRepository reads people through a pgx pool, connection or
// transaction.
func NewPostgresPersonRepository(db postgres.DBTX) PersonRepository {
	return NewPersonRepository(postgres.New[domain.Person](db, PeopleTable))
}

// NewSQLitePersonRepository reads people from a SQLite database.
func NewSQLitePersonRepository(db *sql.DB) PersonRepository {
	return NewPersonRepository(sqlite.New[domain.Person](db, PeopleTable))
}

// NewMongoPersonRepository reads people from a MongoDB collection.
func NewMongoPersonRepository(coll *mongo.Collection) PersonRepository {
	return NewPersonRepository(mongosource.New[domain.Person](coll))
}

// NewMemoryPersonRepository serves a fixed set of people.
func NewMemoryPersonRepository(people []domain.Person) PersonRepository {
	return NewPersonRepository(memory.New(people))
}

func (r *personRepository) Page(ctx context.Context, req keyset.PageRequest) (*keyset.Connection[domain.Person], error) {
	conn, err := keyset.FetchPage(ctx, r.source, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch people page: %w", err)
	}
	return conn, nil
}

func (r *personRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}

	col := r.byID.First()
	seen := make(map[int64]struct{}, len(ids))
	match := make(keyset.Or, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		match = append(match, keyset.Cmp{Column: col, Op: keyset.OpEq, Value: id})
	}

	people, err := r.source.OrderBy(r.byID).Where(match).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get people by ids: %w", err)
	}
	return people, nil
}
