package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/keyset/internal/config"
	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/export"
	"github.com/rpattn/keyset/internal/graphql"
	"github.com/rpattn/keyset/internal/ingestion"
	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/internal/repository"
	"github.com/rpattn/keyset/internal/rest"
	"github.com/rpattn/keyset/pkg/keyset"
)

var dataFile string

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP server.",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&dataFile, "data", "", "CSV or XLSX people table for the memory and in-memory sqlite sources")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	people := domain.SamplePeople()
	if dataFile != "" {
		if people, err = readPeopleFile(ctx, dataFile, logger); err != nil {
			return err
		}
	}

	repo, closeRepo, err := openRepository(ctx, cfg, people, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg, logger, repo, codec),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Server.Addr, "source": cfg.Source}).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

func newRouter(cfg config.Config, logger *logrus.Logger, repo repository.PersonRepository, codec *keyset.Codec) http.Handler {
	limits := domain.PagingLimits{DefaultFirst: cfg.Paging.DefaultFirst, MaxFirst: cfg.Paging.MaxFirst}

	mux := http.NewServeMux()
	mux.Handle("/people", rest.NewPeopleHandler(repo, limits, codec))
	mux.Handle("/people/export.xlsx", export.NewHTTPHandler(export.NewService(repo), limits, codec))
	mux.Handle("/people/import/validate", ingestion.NewHTTPHandler(ingestion.NewService(logger)))
	mux.Handle("/graphql", middleware.DataLoaderMiddleware(repo)(
		graphql.NewHandler(graphql.NewResolver(repo, limits, codec)),
	))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
	})
	return corsHandler.Handler(middleware.LoggingMiddleware(logger)(mux))
}
