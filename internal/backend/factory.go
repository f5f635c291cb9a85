package backend

import (
	"context"
	"fmt"

	"saasreports/internal/clock"
	"saasreports/internal/log"
	"saasreports/internal/storage"
	"saasreports/internal/storage/memory"
	"saasreports/internal/storage/seed"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	clock  clock.Clock
}

// NewFactory creates a new backend factory. The clock anchors seeded data.
func NewFactory(logger *log.Logger, clk clock.Clock) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		clock:  clk,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.seed(ctx, res.Repository, config); err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, err
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	repo.WithLogger(f.logger)

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Repository: store,
		Cleanup:    store.Close,
	}
}

func (f *DefaultFactory) seed(ctx context.Context, repo storage.Repository, config Config) error {
	now := f.clock.Now()
	for _, scope := range config.SeedScopes {
		res, err := seed.Demo(ctx, repo, scope, now, seed.DefaultOptions())
		if err != nil {
			return fmt.Errorf("seed demo data for %s: %w", scope, err)
		}
		f.logger.Info("Seeded demo data",
			log.FieldTenant, scope.Key(),
			"customers", res.Customers,
			"invoices", res.Invoices,
			"payments", res.Payments)
	}
	return nil
}
