package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"barrio-etl/internal/config"
	internaldb "barrio-etl/internal/db"
	"barrio-etl/internal/db/repository"
	"barrio-etl/internal/service/pipeline"
	"barrio-etl/internal/transform"
	"barrio-etl/internal/validate"
)

var version = "dev"

// execute runs the CLI and returns the process exit code.
func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Barcelona neighborhood data-integration pipeline",
		Long:          "Ingests neighborhood, price, demographic, income, and geometry extracts,\nvalidates referential integrity, and reloads the analytics store idempotently.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newScheduleCmd())

	return rootCmd
}

// env holds everything a command needs after bootstrap.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	metaDB *sql.DB
	svc    *pipeline.Service
	runs   *repository.RunRepo
}

// bootstrap loads configuration, initializes logging, opens and migrates the
// metastore, and wires the pipeline service.
func bootstrap() (*env, func(), error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	if err := os.MkdirAll(cfg.ProcessedDir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create processed dir: %w", err)
	}

	datasets, err := config.LoadDatasets(cfg.DatasetsFile)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := validate.ParseStrategy(cfg.FKStrategy)
	if err != nil {
		return nil, nil, err
	}

	metaDB, err := internaldb.OpenSQLite(cfg.MetaDBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := internaldb.RunMigrations(metaDB); err != nil {
		_ = metaDB.Close()
		return nil, nil, err
	}

	runs := repository.NewRunRepo(metaDB)
	svc := pipeline.New(cfg, datasets, transform.NewRegistry(), runs, strategy, logger)

	cleanup := func() { _ = metaDB.Close() }
	return &env{cfg: cfg, logger: logger, metaDB: metaDB, svc: svc, runs: runs}, cleanup, nil
}
