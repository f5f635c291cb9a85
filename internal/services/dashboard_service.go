package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"saasreports/internal/cache"
	"saasreports/internal/core"
	"saasreports/internal/log"
	"saasreports/internal/storage"
	"saasreports/internal/tenant"
)

const (
	// DashboardCachePrefix namespaces dashboard snapshots: "dashboard:stats:{tenant|host}".
	DashboardCachePrefix = "dashboard:stats"
	DefaultDashboardTTL  = 5 * time.Minute
)

// DashboardReader is the data the dashboard snapshot is derived from.
type DashboardReader interface {
	storage.StatsReader
	storage.PaymentLister
}

// DashboardService serves tenant dashboard snapshots through a cache-aside
// cache. Concurrent misses for the same tenant each recompute; the last
// writer wins.
type DashboardService struct {
	reader DashboardReader
	cache  cache.Store[core.DashboardSnapshot]
	ttl    time.Duration
	logger *log.Logger
}

func NewDashboardService(reader DashboardReader, store cache.Store[core.DashboardSnapshot], ttl time.Duration, logger *log.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		reader: reader,
		cache:  store,
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// GetStats returns the cached snapshot for scope, or computes, caches and
// returns a fresh one. Errors from the reader are returned as is and
// nothing is cached.
func (s *DashboardService) GetStats(ctx context.Context, scope tenant.Scope, now time.Time) (core.DashboardSnapshot, error) {
	key := scope.CacheKey(DashboardCachePrefix)
	if snap, ok := s.cache.Get(key); ok {
		s.logger.DebugContext(ctx, "Dashboard cache hit", log.FieldCacheKey, key)
		return snap.Clone(), nil
	}

	snap, err := s.compute(ctx, scope, now)
	if err != nil {
		return core.DashboardSnapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.DashboardSnapshot{}, err
	}

	s.cache.Set(key, snap.Clone(), s.ttl)
	s.logger.InfoContext(ctx, "Dashboard snapshot computed",
		log.FieldTenant, scope.Key(),
		log.FieldCacheKey, key,
		"customers", snap.TotalCustomers,
		"active_projects", snap.ActiveProjects)

	return snap, nil
}

// Invalidate drops the cached snapshot for scope.
func (s *DashboardService) Invalidate(scope tenant.Scope) {
	s.cache.Delete(scope.CacheKey(DashboardCachePrefix))
}

func (s *DashboardService) compute(ctx context.Context, scope tenant.Scope, now time.Time) (core.DashboardSnapshot, error) {
	var (
		snap     core.DashboardSnapshot
		payments []core.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.reader.CountCustomers(gctx, scope)
		snap.TotalCustomers = n
		return err
	})
	g.Go(func() error {
		n, err := s.reader.CountProjectsByStatus(gctx, scope, core.ProjectActive)
		snap.ActiveProjects = n
		return err
	})
	g.Go(func() error {
		n, err := s.reader.CountOpenTasks(gctx, scope)
		snap.PendingTasks = n
		return err
	})
	g.Go(func() error {
		sum, err := s.reader.SumOutstandingInvoices(gctx, scope)
		snap.OutstandingInvoices = core.RoundMoney(sum)
		return err
	})
	g.Go(func() error {
		sum, err := s.reader.SumPaymentsSince(gctx, scope, core.StartOfMonth(now))
		snap.MonthRevenue = core.RoundMoney(sum)
		return err
	})
	g.Go(func() error {
		from := RevenueSeriesStart(now)
		var err error
		payments, err = s.reader.ListPayments(gctx, scope, &from, nil)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.DashboardSnapshot{}, err
	}

	snap.RevenueByMonth = BuildRevenueSeries(payments, now)
	return snap, nil
}
