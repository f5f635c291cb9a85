package cli

import (
	"context"
	"errors"
	"fmt"

	"saasreports/internal/amqp"
	"saasreports/internal/artifact"
	"saasreports/internal/backend"
	"saasreports/internal/cache"
	"saasreports/internal/clock"
	"saasreports/internal/config"
	"saasreports/internal/core"
	"saasreports/internal/export"
	"saasreports/internal/log"
	"saasreports/internal/services"
	"saasreports/internal/storage"
	"saasreports/internal/tenant"
)

// AppOptions selects the optional parts of the assembly.
type AppOptions struct {
	// Publish connects to AMQP (when configured) and announces exports.
	Publish bool
	// CacheCleanup starts the periodic sweep of expired cache entries.
	CacheCleanup bool
	Clock        clock.Clock
}

// App is the wired reporting stack.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Clock      clock.Clock
	Repository storage.Repository
	Dashboard  *services.DashboardService
	Reports    *services.ReportService
	Exports    *services.ExportService
	AMQP       *amqp.Client

	caches  *cache.Manager
	closers []func() error
}

// NewApp opens the configured backend and builds the services on top of it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts AppOptions) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if logger == nil {
		logger = log.Discard()
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger, opts.Clock).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Clock:      opts.Clock,
		Repository: res.Repository,
		caches:     cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache)),
	}
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	dashboardCache := cache.NewLRUCache[core.DashboardSnapshot](cfg.CacheMaxEntries, opts.Clock)
	artifactCache := cache.NewLRUCache[artifact.Artifact](cfg.CacheMaxEntries, opts.Clock)
	app.caches.Register(dashboardCache)
	app.caches.Register(artifactCache)
	if opts.CacheCleanup {
		app.caches.StartCleanup(cfg.CacheCleanupInterval)
	}
	app.closers = append(app.closers, func() error { app.caches.Stop(); return nil })

	var notifier services.ExportNotifier
	if opts.Publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, exports will not be announced", log.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			app.AMQP = client
			notifier = client
			app.closers = append(app.closers, client.Close)
		}
	}

	app.Reports = services.NewReportService(res.Repository, logger)
	app.Dashboard = services.NewDashboardService(res.Repository, dashboardCache, cfg.DashboardCacheTTL, logger)
	app.Exports = services.NewExportService(
		app.Reports,
		artifact.NewTokenCache(artifactCache, cfg.ExportTTL, opts.Clock),
		notifier,
		opts.Clock,
		logger,
		export.NewTabularExporter(cfg.ReportCurrency),
		export.NewDocumentExporter(cfg.ReportCurrency, export.DefaultMaxRows),
	)
	return app, nil
}

// Ready probes the repository with a cheap host scoped count.
func (a *App) Ready(ctx context.Context) error {
	if _, err := a.Repository.CountCustomers(ctx, tenant.Host()); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Close releases everything NewApp opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
