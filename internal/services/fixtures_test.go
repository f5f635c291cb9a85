package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/storage/memory"
	"saasreports/internal/tenant"
)

// countingStore wraps the in-memory store and counts reads per port method.
type countingStore struct {
	*memory.Store

	stats     atomic.Int64
	payments  atomic.Int64
	queries   atomic.Int64
	lookups   atomic.Int64
	revenue   atomic.Int64
	failStats error
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New()}
}

func (c *countingStore) CountCustomers(ctx context.Context, scope tenant.Scope) (int, error) {
	c.stats.Add(1)
	if c.failStats != nil {
		return 0, c.failStats
	}
	return c.Store.CountCustomers(ctx, scope)
}

func (c *countingStore) ListPayments(ctx context.Context, scope tenant.Scope, from, to *time.Time) ([]core.Payment, error) {
	c.payments.Add(1)
	return c.Store.ListPayments(ctx, scope, from, to)
}

func (c *countingStore) QueryInvoices(ctx context.Context, scope tenant.Scope, q core.InvoiceQuery) ([]core.InvoiceRecord, error) {
	c.queries.Add(1)
	return c.Store.QueryInvoices(ctx, scope, q)
}

func (c *countingStore) CustomerNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	c.lookups.Add(1)
	return c.Store.CustomerNames(ctx, scope, ids)
}

func (c *countingStore) ProjectNames(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	c.lookups.Add(1)
	return c.Store.ProjectNames(ctx, scope, ids)
}

func (c *countingStore) SumPaymentsForInvoices(ctx context.Context, scope tenant.Scope, ids []uuid.UUID) (decimal.Decimal, error) {
	c.revenue.Add(1)
	return c.Store.SumPaymentsForInvoices(ctx, scope, ids)
}

type fixture struct {
	store    *countingStore
	tenantID uuid.UUID
	scope    tenant.Scope
	acme     core.Customer
	globex   core.Customer
	website  core.Project
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newCountingStore(), tenantID: uuid.New()}
	f.scope = tenant.ForTenant(f.tenantID)
	f.acme = core.Customer{ID: uuid.New(), TenantID: f.tenantID, Name: "Acme", IsActive: true}
	f.globex = core.Customer{ID: uuid.New(), TenantID: f.tenantID, Name: "Globex", IsActive: true}
	f.website = core.Project{ID: uuid.New(), TenantID: f.tenantID, CustomerID: f.acme.ID, Name: "Website", Status: core.ProjectActive}

	ctx := context.Background()
	for _, c := range []core.Customer{f.acme, f.globex} {
		if err := f.store.PutCustomer(ctx, c); err != nil {
			t.Fatalf("PutCustomer: %v", err)
		}
	}
	if err := f.store.PutProject(ctx, f.website); err != nil {
		t.Fatalf("PutProject: %v", err)
	}
	return f
}

func (f *fixture) invoice(t *testing.T, no string, customer uuid.UUID, project *uuid.UUID, amount string, status core.InvoiceStatus, issued time.Time) core.Invoice {
	t.Helper()
	inv := core.Invoice{
		ID:            uuid.New(),
		TenantID:      f.tenantID,
		CustomerID:    customer,
		ProjectID:     project,
		InvoiceNumber: no,
		IssueDate:     issued,
		DueDate:       issued.AddDate(0, 0, 30),
		SubTotal:      money(amount),
		TotalAmount:   money(amount),
		Status:        status,
	}
	if err := f.store.PutInvoice(context.Background(), inv); err != nil {
		t.Fatalf("PutInvoice: %v", err)
	}
	return inv
}

func (f *fixture) payment(t *testing.T, invoiceID uuid.UUID, amount string, paidAt time.Time) {
	t.Helper()
	p := core.Payment{
		ID:        uuid.New(),
		TenantID:  f.tenantID,
		InvoiceID: invoiceID,
		Amount:    money(amount),
		PaidAt:    paidAt,
		Method:    core.PaymentBankTransfer,
	}
	if err := f.store.PutPayment(context.Background(), p); err != nil {
		t.Fatalf("PutPayment: %v", err)
	}
}
