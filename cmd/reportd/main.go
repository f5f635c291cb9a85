package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saasreports/internal/cli"
	apphttp "saasreports/internal/http"
	"saasreports/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg)

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{
		Publish:      true,
		CacheCleanup: true,
	})
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard:       app.Dashboard,
		Reports:         app.Reports,
		Exports:         app.Exports,
		Ready:           app.Ready,
		Clock:           app.Clock,
		Logger:          logger,
		ExportRateLimit: cfg.ExportRateLimit,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 90 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting report server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
