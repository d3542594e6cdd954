package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sumire/orgissues/internal/config"
	"github.com/sumire/orgissues/internal/logger"
	"github.com/sumire/orgissues/internal/repository"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "orgissues",
		Short:         "Multi-tenant issue tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), envFile)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context(), envFile)
			},
		},
	)

	return root
}

// bootstrap loads configuration and opens the logger and database shared by every command.
func bootstrap(ctx context.Context, envFile string) (config.Config, *zap.Logger, *sqlx.DB, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, repository.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		_ = log.Sync()
		return config.Config{}, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("database connected", zap.String("driver", cfg.DatabaseDriver))

	return cfg, log, db, nil
}

func migrate(ctx context.Context, envFile string) error {
	_, log, db, err := bootstrap(ctx, envFile)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	m := repository.NewMigrator(db, log)
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info("schema up to date", zap.Int("version", version))
	return nil
}
