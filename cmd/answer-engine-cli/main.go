// Package main provides the answer engine CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/onec-assist/answer-engine/internal/cache"
	"github.com/onec-assist/answer-engine/internal/config"
	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/feedback"
	"github.com/onec-assist/answer-engine/internal/match"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "answer-engine-cli",
	Short: "Answer engine CLI for querying, teaching, and administration",
	Long: `Answer engine CLI provides commands for managing the typo-tolerant
question/answer knowledge base.

Use this tool to:
- Ask questions against the knowledge base with fuzzy matching
- Teach new question/answer pairs
- Bulk-import entries from JSON files
- Inspect matching and feedback statistics
- Rebuild the index snapshot

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		logLevel := "warn"
		if outputJSON {
			logFormat = "json"
		}
		if verbose {
			logLevel = cfg.Observability.LogLevel
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      logFormat,
			ServiceName: "answer-engine-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newLearnCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReindexCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine builds the engine from the loaded configuration. The returned
// cleanup function flushes the index snapshot and closes the backend.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open backend: %w", err)
	}

	store := storage.NewStore(ctx, backend, logger)
	fb := feedback.NewStore(cfg.Feedback.Path, cfg.Feedback.MaxRecords, logger)

	eng := engine.New(engine.Config{
		Match: match.Config{
			FuzzyThreshold:       cfg.Matching.FuzzyThreshold,
			ButtonFuzzyThreshold: cfg.Matching.ButtonFuzzyThreshold,
			GlobalFuzzyThreshold: cfg.Matching.GlobalFuzzyThreshold,
			RelaxedFactor:        cfg.Matching.RelaxedFactor,
		},
		CacheTTL:     cfg.Cache.TTL,
		SnapshotPath: cfg.Storage.Snapshot.Path,
	}, store, fb, cache.NewNopClient(), logger)

	cleanup := func() {
		if err := eng.WriteSnapshot(); err != nil {
			logger.Warn().Err(err).Msg("snapshot write failed")
		}
		if err := eng.Close(); err != nil {
			logger.Warn().Err(err).Msg("engine close failed")
		}
	}

	return eng, cleanup, nil
}

// openBackend opens the configured knowledge base backend.
func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return storage.NewSQLBackend("sqlite3", cfg.Storage.SQLite.Path, storage.SQLOptions{
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
		})
	case "postgres":
		return storage.NewSQLBackend("postgres", cfg.Storage.Postgres.DSN, storage.SQLOptions{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
	default:
		return storage.NewJSONBackend(cfg.Storage.JSON.Path), nil
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				fmt.Println(`{"version":"0.1.0"}`)
				return
			}
			fmt.Println("answer-engine-cli v0.1.0")
		},
	}
}
