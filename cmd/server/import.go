package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/keyset/internal/config"
	"github.com/rpattn/keyset/internal/db"
	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/ingestion"
	"github.com/rpattn/keyset/internal/repository"
	"github.com/rpattn/keyset/internal/source/sqlite"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Loads a CSV or XLSX people table into the configured source.",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	people, err := readPeopleFile(ctx, args[0], logger)
	if err != nil {
		return err
	}
	log := logger.WithFields(logrus.Fields{"source": cfg.Source, "people": len(people)})

	switch cfg.Source {
	case config.SourcePostgres:
		conn, err := db.NewConnection(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		if _, err := seedPostgres(ctx, conn, people); err != nil {
			return err
		}

	case config.SourceSQLite:
		if cfg.SQLite.Path == ":memory:" {
			return fmt.Errorf("cannot import into an in-memory sqlite database; use serve --data")
		}
		conn, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := repository.SeedSQLite(ctx, conn, people); err != nil {
			return err
		}

	case config.SourceMongo:
		coll, closeFn, err := openMongo(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := repository.SeedMongo(ctx, coll, people); err != nil {
			return err
		}

	default:
		return fmt.Errorf("source %q cannot be imported into; use serve --data", cfg.Source)
	}

	log.Info("imported people")
	return nil
}

// readPeopleFile parses a people table. Rows that fail validation are logged
// and skipped.
func readPeopleFile(ctx context.Context, path string, logger logrus.FieldLogger) ([]domain.Person, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	people, _, err := ingestion.NewService(logger).Read(ctx, ingestion.Request{FileName: filepath.Base(path), Data: f})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return people, nil
}
