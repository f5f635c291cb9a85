// Package memory is an in-process Repository used for demos, the CLI and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/storage"
	"saasreports/internal/tenant"
)

type Store struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]core.Customer
	projects  map[uuid.UUID]core.Project
	tasks     map[uuid.UUID]core.WorkTask
	invoices  map[uuid.UUID]core.Invoice
	payments  map[uuid.UUID]core.Payment
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		customers: make(map[uuid.UUID]core.Customer),
		projects:  make(map[uuid.UUID]core.Project),
		tasks:     make(map[uuid.UUID]core.WorkTask),
		invoices:  make(map[uuid.UUID]core.Invoice),
		payments:  make(map[uuid.UUID]core.Payment),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CountCustomers(_ context.Context, scope tenant.Scope) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.customers {
		if scope.Owns(c.TenantID) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountProjectsByStatus(_ context.Context, scope tenant.Scope, status core.ProjectStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.projects {
		if scope.Owns(p.TenantID) && p.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountOpenTasks(_ context.Context, scope tenant.Scope) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tasks {
		if scope.Owns(t.TenantID) && t.Status != core.TaskDone {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumOutstandingInvoices(_ context.Context, scope tenant.Scope) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, inv := range s.invoices {
		if scope.Owns(inv.TenantID) && inv.Status != core.InvoicePaid {
			total = total.Add(inv.TotalAmount)
		}
	}
	return total, nil
}

func (s *Store) SumPaymentsSince(_ context.Context, scope tenant.Scope, since time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, p := range s.payments {
		if scope.Owns(p.TenantID) && !p.PaidAt.Before(since) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (s *Store) ListPayments(_ context.Context, scope tenant.Scope, from, to *time.Time) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Payment
	for _, p := range s.payments {
		if !scope.Owns(p.TenantID) {
			continue
		}
		if from != nil && p.PaidAt.Before(*from) {
			continue
		}
		if to != nil && p.PaidAt.After(*to) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b core.Payment) int {
		if c := a.PaidAt.Compare(b.PaidAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *Store) QueryInvoices(_ context.Context, scope tenant.Scope, q core.InvoiceQuery) ([]core.InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.InvoiceRecord
	for _, inv := range s.invoices {
		if !scope.Owns(inv.TenantID) || !q.Matches(inv) {
			continue
		}
		rec := core.InvoiceRecord{
			ID:         inv.ID,
			InvoiceNo:  inv.InvoiceNumber,
			CustomerID: inv.CustomerID,
			Amount:     inv.TotalAmount,
			Status:     inv.Status,
			IssueDate:  inv.IssueDate,
		}
		if inv.ProjectID != nil {
			pid := *inv.ProjectID
			rec.ProjectID = &pid
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b core.InvoiceRecord) int {
		if c := b.IssueDate.Compare(a.IssueDate); c != 0 {
			return c
		}
		return cmp.Compare(b.InvoiceNo, a.InvoiceNo)
	})
	return out, nil
}

func (s *Store) SumPaymentsForInvoices(_ context.Context, scope tenant.Scope, invoiceIDs []uuid.UUID) (decimal.Decimal, error) {
	ids := make(map[uuid.UUID]struct{}, len(invoiceIDs))
	for _, id := range invoiceIDs {
		ids[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, p := range s.payments {
		if _, ok := ids[p.InvoiceID]; ok && scope.Owns(p.TenantID) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (s *Store) CustomerNames(_ context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if c, ok := s.customers[id]; ok && scope.Owns(c.TenantID) {
			names[id] = c.Name
		}
	}
	return names, nil
}

func (s *Store) ProjectNames(_ context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if p, ok := s.projects[id]; ok && scope.Owns(p.TenantID) {
			names[id] = p.Name
		}
	}
	return names, nil
}

func (s *Store) PutCustomer(_ context.Context, c core.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return nil
}

func (s *Store) PutProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *Store) PutTask(_ context.Context, t core.WorkTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) PutInvoice(_ context.Context, inv core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
	return nil
}

func (s *Store) PutPayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}
