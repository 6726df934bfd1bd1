// Package main provides the CLI entrypoint for the library service.
// It wires subcommands (item, user, checkout, return, loans, verify, migrate,
// serve), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"librarian/internal/config"
	"librarian/internal/ledger"
	"librarian/internal/library"
	"librarian/pkg/logger"
	"librarian/pkg/storage"
	"librarian/pkg/storage/file"
	"librarian/pkg/storage/postgres"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Debug(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// getStorage opens the backend selected by cfg.Storage.Driver.
func getStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func()) {
	if cfg.Storage.Driver == config.PostgresDriver {
		return getPostgres(ctx, cfg)
	}

	st, err := file.Open(ctx, file.Options{Dir: cfg.Storage.Dir})
	if err != nil {
		logger.Fatal(ctx, "could not open file storage", zap.Error(err), zap.String("dir", cfg.Storage.Dir))
	}

	return st, func() { _ = st.Close() }
}

// getLibrary loads the library from the configured storage.
func getLibrary(ctx context.Context, cfg *config.Config, opts ledger.Options) (library.Library, func()) {
	st, closeStrg := getStorage(ctx, cfg)

	lib, err := library.Open(ctx, st, opts)
	if err != nil {
		closeStrg()
		logger.Fatal(ctx, "could not load library", zap.Error(err))
	}

	return lib, closeStrg
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:          "librarian",
		Short:        "Manages a library catalog, its borrowers and their loans",
		SilenceUsage: true,
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file: ", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync(ctx)

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		itemCommand(cfg),
		userCommand(cfg),
		checkoutCommand(cfg),
		returnCommand(cfg),
		loansCommand(cfg),
		verifyCommand(cfg),
		migrateCommand(cfg),
		serveCommand(cfg),
	)

	err = rootCmd.Execute()
	logger.Sync(ctx)
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
