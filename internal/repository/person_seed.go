package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rpattn/keyset/internal/domain"
)

var personColumns = []string{
	"id", "team", "name", "dob", "rank", "level", "height", "rating",
	"salary", "active", "manager_id", "external_id", "updated_at",
}

// SQLiteSchema creates the people table in SQLite. Postgres uses the embedded
// migrations instead. Salary has NUMERIC affinity so that decimal text is
// stored and compared as a number.
const SQLiteSchema = `CREATE TABLE IF NOT EXISTS people (
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
	external_id TEXT NOT NULL UNIQUE,
	updated_at DATETIME
)`

// personRow lists p in personColumns order. Times are stored in UTC because
// SQLite compares them as text.
func personRow(p domain.Person) []any {
	var updatedAt *time.Time
	if p.UpdatedAt != nil {
		t := p.UpdatedAt.UTC()
		updatedAt = &t
	}
	return []any{
		p.ID, p.Team, p.Name, p.DOB.UTC(), p.Rank, p.Level, p.Height, p.Rating,
		p.Salary, p.Active, p.ManagerID, p.ExternalID, updatedAt,
	}
}

// Copier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// SeedPostgres bulk-loads people with COPY.
func SeedPostgres(ctx context.Context, db Copier, people []domain.Person) (int64, error) {
	n, err := db.CopyFrom(ctx, pgx.Identifier{PeopleTable}, personColumns,
		pgx.CopyFromSlice(len(people), func(i int) ([]any, error) {
			return personRow(people[i]), nil
		}))
	if err != nil {
		return n, fmt.Errorf("failed to copy people: %w", err)
	}
	return n, nil
}

// SeedSQLite creates the people table if needed and inserts people in one
// transaction.
func SeedSQLite(ctx context.Context, db *sql.DB, people []domain.Person) error {
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to create people table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO people (id, team, name, dob, rank, level, height, rating, salary, active, manager_id, external_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range people {
		if _, err := stmt.ExecContext(ctx, personRow(p)...); err != nil {
			return fmt.Errorf("failed to insert person %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// SeedMongo inserts people as documents. The collection's client must use
// the keyset BSON registry so decimals and UUIDs are stored comparably.
func SeedMongo(ctx context.Context, coll *mongo.Collection, people []domain.Person) error {
	docs := make([]any, len(people))
	for i, p := range people {
		docs[i] = p
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert people: %w", err)
	}
	return nil
}
