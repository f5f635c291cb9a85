package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"saasreports/internal/core"
)

func TestReportService_EmptyResultSkipsLookups(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store, nil)

	cancelled := core.InvoiceCancelled
	report, err := svc.BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{Status: &cancelled})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if report.Items == nil || len(report.Items) != 0 {
		t.Fatalf("items = %#v, want empty non-nil slice", report.Items)
	}
	if report.Summary.TotalInvoices != 0 || !report.Summary.TotalRevenue.IsZero() {
		t.Fatalf("summary = %+v", report.Summary)
	}
	if f.store.lookups.Load() != 0 || f.store.revenue.Load() != 0 {
		t.Fatalf("lookups=%d revenue=%d, want none", f.store.lookups.Load(), f.store.revenue.Load())
	}
}

func TestReportService_SummaryAndNames(t *testing.T) {
	f := newFixture(t)
	orphan := uuid.New()
	missingProject := uuid.New()

	paid := f.invoice(t, "INV-1", f.acme.ID, &f.website.ID, "1000", core.InvoicePaid, day(2024, 3, 1))
	f.invoice(t, "INV-2", f.globex.ID, nil, "200", core.InvoiceSent, day(2024, 3, 2))
	f.invoice(t, "INV-3", f.globex.ID, &missingProject, "300", core.InvoiceOverdue, day(2024, 3, 3))
	f.invoice(t, "INV-4", orphan, nil, "400", core.InvoiceCancelled, day(2024, 3, 4))
	f.invoice(t, "INV-5", f.acme.ID, nil, "500", core.InvoicePartiallyPaid, day(2024, 3, 5))
	// only partially reconciled, revenue follows payments
	f.payment(t, paid.ID, "600", day(2024, 3, 10))

	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	s := report.Summary
	if s.TotalInvoices != 5 || s.PaidInvoices != 1 || s.PendingInvoices != 2 || s.OverdueInvoices != 1 {
		t.Errorf("summary = %+v", s)
	}
	if !s.TotalRevenue.Equal(money("600")) {
		t.Errorf("total revenue = %s, want 600", s.TotalRevenue)
	}
	if f.store.lookups.Load() != 2 {
		t.Errorf("name lookups = %d, want 2", f.store.lookups.Load())
	}

	byNo := make(map[string]core.InvoiceReportRow)
	for _, r := range report.Items {
		byNo[r.InvoiceNo] = r
	}
	if r := byNo["INV-1"]; r.CustomerName != "Acme" || r.ProjectName != "Website" {
		t.Errorf("INV-1 = %+v", r)
	}
	if r := byNo["INV-2"]; r.ProjectName != core.NoProjectName {
		t.Errorf("INV-2 project = %q", r.ProjectName)
	}
	if r := byNo["INV-3"]; r.ProjectName != core.NoProjectName {
		t.Errorf("INV-3 unresolved project = %q", r.ProjectName)
	}
	if r := byNo["INV-4"]; r.CustomerName != core.UnknownCustomerName {
		t.Errorf("INV-4 customer = %q", r.CustomerName)
	}

	// default order is newest first
	if report.Items[0].InvoiceNo != "INV-5" || report.Items[4].InvoiceNo != "INV-1" {
		t.Errorf("order = %s..%s", report.Items[0].InvoiceNo, report.Items[4].InvoiceNo)
	}
}

func TestReportService_LooksUpProjectsWithoutProjectRows(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "INV-1", f.acme.ID, nil, "100", core.InvoiceSent, day(2024, 3, 1))
	f.invoice(t, "INV-2", f.globex.ID, nil, "200", core.InvoiceSent, day(2024, 3, 2))

	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if f.store.lookups.Load() != 2 {
		t.Errorf("name lookups = %d, want 2", f.store.lookups.Load())
	}
	for _, r := range report.Items {
		if r.ProjectName != core.NoProjectName {
			t.Errorf("%s project = %q", r.InvoiceNo, r.ProjectName)
		}
	}
}

func TestReportService_KeepsEmptyStoredNames(t *testing.T) {
	f := newFixture(t)
	blank := core.Customer{ID: uuid.New(), TenantID: f.tenantID, IsActive: true}
	if err := f.store.PutCustomer(context.Background(), blank); err != nil {
		t.Fatalf("PutCustomer: %v", err)
	}
	untitled := core.Project{ID: uuid.New(), TenantID: f.tenantID, CustomerID: blank.ID, Status: core.ProjectActive}
	if err := f.store.PutProject(context.Background(), untitled); err != nil {
		t.Fatalf("PutProject: %v", err)
	}
	f.invoice(t, "INV-1", blank.ID, &untitled.ID, "100", core.InvoiceSent, day(2024, 3, 1))

	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if r := report.Items[0]; r.CustomerName != "" || r.ProjectName != "" {
		t.Errorf("row = %+v, want stored empty names", r)
	}
}

func TestReportService_DateBoundsAreInclusive(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "INV-early", f.acme.ID, nil, "1", core.InvoiceSent, time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC))
	f.invoice(t, "INV-first", f.acme.ID, nil, "1", core.InvoiceSent, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	f.invoice(t, "INV-last", f.acme.ID, nil, "1", core.InvoiceSent, time.Date(2024, 3, 20, 23, 59, 59, 0, time.UTC))
	f.invoice(t, "INV-late", f.acme.ID, nil, "1", core.InvoiceSent, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC))

	from, to := day(2024, 3, 10), day(2024, 3, 20)
	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{FromDate: &from, ToDate: &to})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if len(report.Items) != 2 || report.Items[0].InvoiceNo != "INV-last" || report.Items[1].InvoiceNo != "INV-first" {
		t.Fatalf("items = %+v", report.Items)
	}
}

func TestReportService_InvertedRangeIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "INV-1", f.acme.ID, nil, "1", core.InvoiceSent, day(2024, 3, 15))

	from, to := day(2024, 3, 20), day(2024, 3, 10)
	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{FromDate: &from, ToDate: &to})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if len(report.Items) != 0 {
		t.Fatalf("expected no rows, got %d", len(report.Items))
	}
}

func TestReportService_Sorting(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "B", f.globex.ID, nil, "300", core.InvoiceSent, day(2024, 3, 1))
	f.invoice(t, "A", f.acme.ID, nil, "100", core.InvoicePaid, day(2024, 3, 2))
	f.invoice(t, "C", f.acme.ID, nil, "200", core.InvoiceDraft, day(2024, 3, 3))

	cases := []struct {
		sort core.SortKey
		want string
	}{
		{core.SortIssueDateDesc, "CAB"},
		{core.SortIssueDateAsc, "BAC"},
		{core.SortAmountDesc, "BCA"},
		{core.SortAmountAsc, "ACB"},
		{core.SortInvoiceNo, "ABC"},
		{core.SortStatus, "CBA"},
	}
	svc := NewReportService(f.store, nil)
	for _, tc := range cases {
		t.Run(string(tc.sort), func(t *testing.T) {
			report, err := svc.BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{Sort: tc.sort})
			if err != nil {
				t.Fatalf("BuildReport: %v", err)
			}
			got := ""
			for _, r := range report.Items {
				got += r.InvoiceNo
			}
			if got != tc.want {
				t.Errorf("order = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReportService_InvalidSortKey(t *testing.T) {
	f := newFixture(t)
	_, err := NewReportService(f.store, nil).BuildReport(context.Background(), f.scope, core.InvoiceReportFilter{Sort: "customer.Name desc"})
	if !errors.Is(err, core.ErrInvalidSortKey) {
		t.Fatalf("expected ErrInvalidSortKey, got %v", err)
	}
	if f.store.queries.Load() != 0 {
		t.Fatalf("storage should not be queried for an invalid sort")
	}
}

func TestReportService_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "INV-1", f.acme.ID, nil, "100", core.InvoiceSent, day(2024, 3, 1))

	other := newFixture(t)
	report, err := NewReportService(f.store, nil).BuildReport(context.Background(), other.scope, core.InvoiceReportFilter{})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if len(report.Items) != 0 {
		t.Fatalf("other tenant sees %d invoices", len(report.Items))
	}
}

func TestReportService_RevenueReport(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, "INV-1", f.acme.ID, nil, "1000", core.InvoicePaid, day(2024, 1, 1))
	f.payment(t, inv.ID, "100", day(2024, 1, 10))
	f.payment(t, inv.ID, "200", day(2024, 1, 20))
	f.payment(t, inv.ID, "50", day(2024, 3, 1))
	f.payment(t, inv.ID, "999", day(2024, 5, 1))

	svc := NewReportService(f.store, nil)
	report, err := svc.RevenueReport(context.Background(), f.scope, day(2024, 1, 1), day(2024, 3, 31))
	if err != nil {
		t.Fatalf("RevenueReport: %v", err)
	}
	if len(report.Buckets) != 2 {
		t.Fatalf("buckets = %+v", report.Buckets)
	}
	if report.Buckets[0].Period != "2024-01" || !report.Buckets[0].Amount.Equal(money("300")) {
		t.Errorf("january = %+v", report.Buckets[0])
	}
	if !report.TotalRevenue.Equal(money("350")) {
		t.Errorf("total = %s", report.TotalRevenue)
	}

	empty, err := svc.RevenueReport(context.Background(), f.scope, day(2024, 4, 1), day(2024, 1, 1))
	if err != nil || len(empty.Buckets) != 0 || !empty.TotalRevenue.IsZero() {
		t.Fatalf("inverted range = %+v, %v", empty, err)
	}
}

func TestDefaultRevenueRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	from, to := DefaultRevenueRange(nil, nil, now)
	if !from.Equal(day(2023, 7, 1)) || !to.Equal(now) {
		t.Fatalf("range = %v..%v", from, to)
	}

	explicit := day(2024, 1, 1)
	from, _ = DefaultRevenueRange(&explicit, nil, now)
	if !from.Equal(explicit) {
		t.Fatalf("explicit from ignored")
	}
}
