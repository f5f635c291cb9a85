// Package memory is an in-process ReportPublisher for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saasreports/internal/core"
	ports "saasreports/internal/sheets"
	"saasreports/internal/tenant"
)

var _ ports.ReportPublisher = (*Store)(nil)

// Published is the last report mirrored for a tenant.
type Published struct {
	Report      core.InvoiceReport
	GeneratedAt time.Time
	Version     int
}

type Store struct {
	mu      sync.Mutex
	reports map[string]Published
}

func New() *Store {
	return &Store{reports: make(map[string]Published)}
}

// PublishInvoiceReport replaces the tenant's stored copy and returns a synthetic reference.
func (s *Store) PublishInvoiceReport(_ context.Context, scope tenant.Scope, report core.InvoiceReport, generatedAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.reports[scope.Key()]
	s.reports[scope.Key()] = Published{
		Report: core.InvoiceReport{
			Summary: report.Summary,
			Items:   append([]core.InvoiceReportRow(nil), report.Items...),
		},
		GeneratedAt: generatedAt,
		Version:     prev.Version + 1,
	}
	return fmt.Sprintf("mem:%s:%d", scope.Key(), prev.Version+1), nil
}

// Get returns the last report published for scope.
func (s *Store) Get(scope tenant.Scope) (Published, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.reports[scope.Key()]
	return p, ok
}
