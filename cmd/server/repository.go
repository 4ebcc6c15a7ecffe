package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rpattn/keyset/internal/config"
	"github.com/rpattn/keyset/internal/db"
	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/repository"
	mongosource "github.com/rpattn/keyset/internal/source/mongo"
	"github.com/rpattn/keyset/internal/source/sqlite"
)

// openRepository connects to the configured source. people backs the memory
// source and seeds an in-memory sqlite database. The returned func releases
// the source.
func openRepository(ctx context.Context, cfg config.Config, people []domain.Person, logger logrus.FieldLogger) (repository.PersonRepository, func(), error) {
	log := logger.WithField("source", cfg.Source)

	switch cfg.Source {
	case config.SourceMemory:
		log.WithField("people", len(people)).Info("serving people from memory")
		return repository.NewMemoryPersonRepository(people), func() {}, nil

	case config.SourceSQLite:
		conn, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		if cfg.SQLite.Path == ":memory:" {
			err = repository.SeedSQLite(ctx, conn, people)
		} else {
			_, err = conn.ExecContext(ctx, repository.SQLiteSchema)
		}
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to prepare sqlite database: %w", err)
		}
		log.WithField("path", cfg.SQLite.Path).Info("connected to sqlite")
		return repository.NewSQLitePersonRepository(conn), func() { conn.Close() }, nil

	case config.SourcePostgres:
		conn, err := db.NewConnection(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logrus.Fields{"host": cfg.Database.Host, "dbname": cfg.Database.DBName}).Info("connected to postgres")
		return repository.NewPostgresPersonRepository(conn.Pool), conn.Close, nil

	case config.SourceMongo:
		coll, closeFn, err := openMongo(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMongoPersonRepository(coll), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source)
}

func openMongo(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*mongo.Collection, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI).SetRegistry(mongosource.Registry()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	log.WithFields(logrus.Fields{"database": cfg.Mongo.Database, "collection": cfg.Mongo.Collection}).Info("connected to mongo")
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("failed to disconnect from mongo")
		}
	}
	return client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection), closeFn, nil
}
