// Package main is the entry point for the placeholder todo API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-crud/internal/config"
	"github.com/vyrodovalexey/todo-crud/internal/logging"
	"github.com/vyrodovalexey/todo-crud/internal/server"
	"github.com/vyrodovalexey/todo-crud/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, logging.EncodingJSON)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Int("seed_count", cfg.SeedCount),
		zap.String("auth_mode", string(cfg.AuthMode)),
	)

	authenticator, err := cfg.Authenticator()
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	todoStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return 1
	}
	defer func() {
		if err := todoStore.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	srv, err := server.New(cfg, logger, todoStore, server.WithAuthenticator(authenticator))
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return 1
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// openStore opens the configured backend and seeds it when it is empty.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	var (
		todoStore store.Store
		err       error
	)

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		todoStore, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
	case config.BackendMemory:
		todoStore = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("open store: %w", config.ErrInvalidStoreBackend)
	}

	existing, err := todoStore.List(ctx, store.Filter{})
	if err != nil {
		_ = todoStore.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	if len(existing) == 0 && cfg.SeedCount > 0 {
		if err := store.Seed(ctx, todoStore, cfg.SeedCount); err != nil {
			_ = todoStore.Close()
			return nil, err
		}
		logger.Info("store seeded", zap.Int("count", cfg.SeedCount))
	}

	return todoStore, nil
}
