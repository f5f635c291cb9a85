package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/artifact"
	"saasreports/internal/cache"
	"saasreports/internal/clock"
	"saasreports/internal/core"
	"saasreports/internal/export"
	"saasreports/internal/services"
	"saasreports/internal/storage/memory"
	"saasreports/internal/tenant"
)

var testNow = time.Date(2024, 6, 15, 9, 30, 15, 0, time.UTC)

type testEnv struct {
	srv      *Server
	clock    *clock.Fixed
	tenantID uuid.UUID
}

func newTestEnv(t *testing.T, exportLimit int, ready func(context.Context) error) *testEnv {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewFixed(testNow)
	store := memory.New()
	tenantID := uuid.New()

	acme := core.Customer{ID: uuid.New(), TenantID: tenantID, Name: "Acme", IsActive: true}
	website := core.Project{ID: uuid.New(), TenantID: tenantID, CustomerID: acme.ID, Name: "Website", Status: core.ProjectActive}
	must(t, store.PutCustomer(ctx, acme))
	must(t, store.PutProject(ctx, website))

	put := func(no, amount string, project *uuid.UUID, status core.InvoiceStatus, issued time.Time) uuid.UUID {
		inv := core.Invoice{
			ID: uuid.New(), TenantID: tenantID, CustomerID: acme.ID, ProjectID: project,
			InvoiceNumber: no, IssueDate: issued, DueDate: issued.AddDate(0, 0, 30),
			SubTotal: decimal.RequireFromString(amount), TotalAmount: decimal.RequireFromString(amount),
			Status: status,
		}
		must(t, store.PutInvoice(ctx, inv))
		return inv.ID
	}
	pay := func(invoiceID uuid.UUID, amount string, at time.Time) {
		must(t, store.PutPayment(ctx, core.Payment{
			ID: uuid.New(), TenantID: tenantID, InvoiceID: invoiceID,
			Amount: decimal.RequireFromString(amount), PaidAt: at, Method: core.PaymentBankTransfer,
		}))
	}

	paid := put("INV-001", "1000", &website.ID, core.InvoicePaid, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	put("INV-002", "500", nil, core.InvoiceSent, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	overdue := put("INV-003", "250", nil, core.InvoiceOverdue, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	pay(paid, "600", time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC))
	pay(overdue, "100", time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC))

	reports := services.NewReportService(store, nil)
	tokens := artifact.NewTokenCache(cache.NewLRUCache[artifact.Artifact](100, clk), artifact.DefaultTTL, clk)
	srv := NewServer(":0", Deps{
		Dashboard: services.NewDashboardService(store, cache.NewLRUCache[core.DashboardSnapshot](100, clk), 5*time.Minute, nil),
		Reports:   reports,
		Exports: services.NewExportService(reports, tokens, nil, clk, nil,
			export.NewTabularExporter("SAR"), export.NewDocumentExporter("SAR", export.DefaultMaxRows)),
		Ready:           ready,
		Clock:           clk,
		ExportRateLimit: exportLimit,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{srv: srv, clock: clk, tenantID: tenantID}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(tenant.Header, e.tenantID.String())
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.get(t, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	down := newTestEnv(t, 30, func(context.Context) error { return errors.New("database is locked") })
	rec := down.get(t, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing storage status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "database is locked") {
		t.Fatalf("readyz body = %s", rec.Body.String())
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	rec := env.get(t, "/dashboard/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}

	got := decode[dashboardDTO](t, rec)
	if got.TotalCustomers != 1 || got.ActiveProjects != 1 || got.PendingTasks != 0 {
		t.Fatalf("counts = %+v", got)
	}
	if got.OutstandingInvoices != "750.00" || got.MonthRevenue != "100.00" {
		t.Fatalf("outstanding=%s monthRevenue=%s", got.OutstandingInvoices, got.MonthRevenue)
	}
	if len(got.RevenueByMonth) != 12 {
		t.Fatalf("revenueByMonth has %d points", len(got.RevenueByMonth))
	}
	last := got.RevenueByMonth[11]
	prev := got.RevenueByMonth[10]
	if last.Month != "2024-06" || last.Amount != "100.00" || prev.Month != "2024-05" || prev.Amount != "600.00" {
		t.Fatalf("last points = %+v %+v", prev, last)
	}
	if got.RevenueByMonth[0].Month != "2023-07" || got.RevenueByMonth[0].Amount != "0.00" {
		t.Fatalf("first point = %+v", got.RevenueByMonth[0])
	}
}

func TestInvoiceReport(t *testing.T) {
	env := newTestEnv(t, 30, nil)

	rec := env.get(t, "/reports/invoices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[invoiceReportDTO](t, rec)
	s := got.Summary
	if s.TotalInvoices != 3 || s.PaidInvoices != 1 || s.PendingInvoices != 1 || s.OverdueInvoices != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.TotalRevenue != "700.00" {
		t.Fatalf("totalRevenue = %s, want 700.00", s.TotalRevenue)
	}
	var order []string
	for _, it := range got.Items {
		order = append(order, it.InvoiceNo)
	}
	if strings.Join(order, ",") != "INV-002,INV-001,INV-003" {
		t.Fatalf("default order = %v", order)
	}
	if got.Items[1].ProjectName != "Website" || got.Items[0].ProjectName != core.NoProjectName {
		t.Fatalf("project names = %q, %q", got.Items[1].ProjectName, got.Items[0].ProjectName)
	}
	if got.Items[1].Status != int(core.InvoicePaid) || got.Items[1].StatusName != "Paid" || got.Items[1].Date != "2024-05-10" {
		t.Fatalf("row = %+v", got.Items[1])
	}

	rec = env.get(t, "/reports/invoices?status=Paid&sort=amountAsc")
	got = decode[invoiceReportDTO](t, rec)
	if len(got.Items) != 1 || got.Items[0].InvoiceNo != "INV-001" || got.Summary.TotalRevenue != "600.00" {
		t.Fatalf("paid filter = %+v", got)
	}

	rec = env.get(t, "/reports/invoices?fromDate=2024-06-10&toDate=2024-05-01")
	got = decode[invoiceReportDTO](t, rec)
	if rec.Code != http.StatusOK || len(got.Items) != 0 || got.Items == nil {
		t.Fatalf("inverted range: status=%d items=%v", rec.Code, got.Items)
	}
}

func TestInvoiceReport_BadRequests(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	for _, target := range []string{
		"/reports/invoices?sort=customer.Name",
		"/reports/invoices?status=Lost",
		"/reports/invoices?customerId=42",
		"/reports/invoices?fromDate=15/06/2024",
		"/reports/revenue?from=yesterday",
	} {
		rec := env.get(t, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", target, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/invoices", nil)
	req.Header.Set(tenant.Header, "not-a-tenant")
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tenant status=%d", rec.Code)
	}
}

func TestInvoiceReport_TenantIsolation(t *testing.T) {
	env := newTestEnv(t, 30, nil)

	// no header means host, which owns nothing here
	rec := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/invoices", nil))
	got := decode[invoiceReportDTO](t, rec)
	if len(got.Items) != 0 || got.Summary.TotalInvoices != 0 || got.Summary.TotalRevenue != "0.00" {
		t.Fatalf("host report = %+v", got)
	}
}

func TestRevenueReport(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	rec := env.get(t, "/reports/revenue?from=2024-05-01&to=2024-06-30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[revenueReportDTO](t, rec)
	if got.TotalRevenue != "700.00" || len(got.Buckets) != 2 {
		t.Fatalf("revenue = %+v", got)
	}
	if got.Buckets[0].Period != "2024-05" || got.Buckets[1].Period != "2024-06" || got.Buckets[1].Amount != "100.00" {
		t.Fatalf("buckets = %+v", got.Buckets)
	}

	rec = env.get(t, "/reports/revenue")
	got = decode[revenueReportDTO](t, rec)
	if !got.From.Equal(time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)) || !got.To.Equal(testNow) {
		t.Fatalf("default range = %v..%v", got.From, got.To)
	}
}

func TestExcelExportAndDownload(t *testing.T) {
	env := newTestEnv(t, 30, nil)

	rec := env.get(t, "/reports/invoices-excel")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.MimeXLSX {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=Invoices-20240615-093015.xlsx" {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec.Header().Get(HeaderExportRows) != "3" {
		t.Fatalf("rows header = %q", rec.Header().Get(HeaderExportRows))
	}
	token := rec.Header().Get(HeaderExportToken)
	if len(token) != 43 {
		t.Fatalf("token = %q", token)
	}
	content := rec.Body.Bytes()

	env.clock.Advance(9 * time.Minute)
	again := env.get(t, "/reports/files/"+token)
	if again.Code != http.StatusOK || !bytes.Equal(again.Body.Bytes(), content) {
		t.Fatalf("re-download status=%d same=%v", again.Code, bytes.Equal(again.Body.Bytes(), content))
	}

	env.clock.Advance(2 * time.Minute)
	gone := env.get(t, "/reports/files/"+token)
	if gone.Code != http.StatusGone {
		t.Fatalf("expired download status=%d, want 410", gone.Code)
	}
	if env.get(t, "/reports/files/unknown").Code != http.StatusGone {
		t.Fatal("unknown token should be 410")
	}
}

func TestPDFExport(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	rec := env.get(t, "/reports/invoices-pdf?sort=invoiceNo")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.MimePDF {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("body is not a PDF")
	}
	if !strings.HasSuffix(rec.Header().Get("Content-Disposition"), ".pdf") {
		t.Fatalf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestExportRateLimit(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	for i := 0; i < 2; i++ {
		if rec := env.get(t, "/reports/invoices-pdf"); rec.Code != http.StatusOK {
			t.Fatalf("export %d status=%d", i+1, rec.Code)
		}
	}
	rec := env.get(t, "/reports/invoices-excel")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third export status=%d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
	// JSON reports are not throttled
	if rec := env.get(t, "/reports/invoices"); rec.Code != http.StatusOK {
		t.Fatalf("report status=%d", rec.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t, 30, nil)
	rec := env.get(t, "/nope")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("status=%d content-type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
}
