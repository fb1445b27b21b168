// Package cli provides common initialization shared by cmd/pawco,
// cmd/pawco-worker and cmd/pawcoctl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pawco/internal/config"
	applog "pawco/internal/log"
	"pawco/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level slog.Level) *slog.Logger {
	logger := applog.New(applog.Config{Level: level, Output: os.Stdout})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldOperation, applog.OpValidate)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap is the common prologue of every binary: .env, config, and a
// logger at the configured level.
func Bootstrap() (*config.Config, *slog.Logger) {
	LoadEnvFile()
	logger := SetupLogger(slog.LevelInfo)
	cfg := LoadAndValidateConfig(logger)
	return cfg, SetupLogger(cfg.SlogLevel())
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// RunCleanup runs cleanup bounded by timeout, logging when it overruns.
func RunCleanup(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		cleanup(ctx)
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
