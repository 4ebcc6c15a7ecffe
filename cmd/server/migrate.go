package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/keyset/internal/config"
	"github.com/rpattn/keyset/internal/db"
	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/repository"
)

func init() {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Applies the Postgres schema migrations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Load the sample directory after migrating")
	rootCmd.AddCommand(cmd)
}

func runMigrate(cmd *cobra.Command, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}

	if err := db.RunMigrations(cfg.Database, logger); err != nil {
		return err
	}
	if !seed {
		return nil
	}

	conn, err := db.NewConnection(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	n, err := seedPostgres(cmd.Context(), conn, domain.SamplePeople())
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"rows": n, "table": repository.PeopleTable}).Info("seeded sample directory")
	return nil
}

// seedPostgres replaces the contents of the people table in one transaction.
func seedPostgres(ctx context.Context, conn *db.Connection, people []domain.Person) (int64, error) {
	var n int64
	err := conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE "+pgx.Identifier{repository.PeopleTable}.Sanitize()); err != nil {
			return fmt.Errorf("failed to truncate people: %w", err)
		}
		var err error
		n, err = repository.SeedPostgres(ctx, tx, people)
		return err
	})
	return n, err
}
