package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/dbpool"
	"github.com/JonMunkholm/attendance/internal/logging"
	"github.com/JonMunkholm/attendance/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	pool := dbpool.New(cfg.Database, dbpool.WithLogger(logger))

	// Start the single connection attempt now rather than on the first
	// request. Failures are logged by the pool and returned to every caller.
	go func() {
		_, _ = pool.Acquire(context.Background())
	}()

	service := core.NewService(pool, cfg.Upload)
	logger.Info("upload kinds registered", "count", core.KindCount())

	server := web.NewServer(service, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for batch transactions in flight
		if status := service.UploadLimiterStatus(); status.Active > 0 {
			logger.Info("waiting for batches to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				logger.Warn("batches did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		if err := pool.Close(); err != nil {
			logger.Error("close database pool", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}
