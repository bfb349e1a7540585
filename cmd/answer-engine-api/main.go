// Package main provides the answer engine API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/onec-assist/answer-engine/internal/cache"
	"github.com/onec-assist/answer-engine/internal/config"
	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/feedback"
	"github.com/onec-assist/answer-engine/internal/match"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

func main() {
	// .env is optional, used for local development
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("cache", cfg.Cache.Driver).
		Bool("telegram", cfg.Telegram.Enabled).
		Msg("Starting answer engine API")

	ctx := context.Background()

	backend, err := newBackend(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open knowledge base backend")
	}

	store := storage.NewStore(ctx, backend, logger)
	fb := feedback.NewStore(cfg.Feedback.Path, cfg.Feedback.MaxRecords, logger)
	results := newResultCache(cfg, logger)

	eng := engine.New(engine.Config{
		Match: match.Config{
			FuzzyThreshold:       cfg.Matching.FuzzyThreshold,
			ButtonFuzzyThreshold: cfg.Matching.ButtonFuzzyThreshold,
			GlobalFuzzyThreshold: cfg.Matching.GlobalFuzzyThreshold,
			RelaxedFactor:        cfg.Matching.RelaxedFactor,
		},
		CacheTTL:     cfg.Cache.TTL,
		SnapshotPath: cfg.Storage.Snapshot.Path,
	}, store, fb, results, logger)

	router := NewRouter(logger, cfg, eng)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	if err := eng.WriteSnapshot(); err != nil {
		logger.Warn().Err(err).Msg("Index snapshot write failed")
	}

	if err := eng.Close(); err != nil {
		logger.Warn().Err(err).Msg("Engine close failed")
	}

	logger.Info().Msg("Server stopped")
}

// newBackend opens the configured knowledge base backend.
func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		dsn := cfg.Storage.SQLite.Path
		if cfg.Storage.SQLite.JournalMode != "" {
			dsn += "?_journal_mode=" + cfg.Storage.SQLite.JournalMode
		}
		return storage.NewSQLBackend("sqlite3", dsn, storage.SQLOptions{
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

// newResultCache builds the match-result cache for the configured driver.
// Redis failures degrade to the in-memory cache so a broken cache never
// blocks startup.
func newResultCache(cfg *config.Config, logger *observability.Logger) cache.Client {
	switch cfg.Cache.Driver {
	case "redis":
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
			return cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
		return client
	case "off":
		return cache.NewNopClient()
	default:
		return cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
}
