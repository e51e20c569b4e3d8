// Package commands holds the compta CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinoosan/compta/internal/config"
	"github.com/tinoosan/compta/internal/storage"
	"github.com/tinoosan/compta/internal/storage/memory"
	pgstore "github.com/tinoosan/compta/internal/storage/postgres"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var cfgPath string
	rootCmd := &cobra.Command{
		Use:   "compta",
		Short: "Double-entry general ledger service",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("COMPTA_CONFIG"), "path to a compta.yaml file")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid config: %w", err)
		}
		logger := buildLogger(cfg.Log)
		slog.SetDefault(logger)
		return cfg, logger, nil
	}

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newMigrateCommand(load))
	rootCmd.AddCommand(newSeedCommand(load))
	return rootCmd
}

type loader func() (*config.Config, *slog.Logger, error)

// openStore returns the postgres store when a database URL is configured and
// the memory store otherwise. closeFn releases it.
func openStore(ctx context.Context, cfg *config.Config) (store storage.Store, closeFn func(), err error) {
	if cfg.Database.URL == "" {
		return memory.New(), func() {}, nil
	}
	pg, err := pgstore.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pg, pg.Close, nil
}

// parseLogLevel maps config values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.Level)}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
