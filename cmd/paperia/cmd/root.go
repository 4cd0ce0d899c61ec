// Package cmd implements the paperia command line: database maintenance,
// one-off OCR runs, bulk ingestion and invoice export.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	dsn      string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paperia",
	Short: "Scanned business documents to reviewed invoices and purchases",
	Long: `paperia turns scanned invoices and purchase orders into business records.

Documents are preprocessed, read with OCR and spell-corrected, then wait for a
human review before their invoice or purchase is written to the database.

Examples:
  paperia migrate
  paperia ocr scan.jpg --correct
  paperia ingest ./inbox --doc-type invoice
  paperia export --out invoices.xlsx --from 2024-01-01`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLevel(logLevel)}))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for tests.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in . and /etc/paperia)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database DSN, overrides DB_URL")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads configuration with the --dsn flag bound over DB_URL.
// validate is false for commands that never touch the database.
func loadConfig(validate bool) (*common.Config, error) {
	loader := common.NewLoader(envFile)
	if dsn != "" {
		loader.Viper().Set("database.dsn", dsn)
	}
	if validate {
		return loader.Load(cfgFile)
	}
	return loader.LoadWithoutValidation(cfgFile)
}

func openDB(ctx context.Context, cfg *common.Config) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
