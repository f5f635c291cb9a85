package main

import (
	"context"
	"errors"
	"os"
	"time"

	"saasreports/internal/amqp"
	"saasreports/internal/cli"
	"saasreports/internal/log"
	"saasreports/internal/sheets"
	gsheet "saasreports/internal/sheets/google"
	memsheet "saasreports/internal/sheets/memory"
	"saasreports/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{})
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var publisher sheets.ReportPublisher
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background(), cfg.ReportCurrency)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		publisher = memsheet.New()
		logger.Info("Google Sheets disabled - mirroring to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(app.Reports, publisher, app.Clock, logger)
	scopes, err := cfg.MirrorScopes()
	if err != nil {
		logger.Error("Invalid mirror tenants", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Performing startup resync", "tenants", len(scopes))
	if err := mirror.Resync(ctx, scopes); err != nil {
		logger.Error("Startup resync failed", log.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeExportReady(ctx, mirror.HandleExportReady); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := mirror.Resync(ctx, scopes); err != nil {
					logger.Error("Periodic resync failed", log.FieldError, err)
				}
			}
		}
	}()

	logger.Info("Report worker started", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	cli.WaitForShutdown(ctx, done)
}
