package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"saasreports/internal/amqp"
	"saasreports/internal/clock"
	"saasreports/internal/core"
	sheetsmem "saasreports/internal/sheets/memory"
	"saasreports/internal/tenant"
)

type stubReports struct {
	filters []core.InvoiceReportFilter
	err     error
}

func (s *stubReports) BuildReport(_ context.Context, _ tenant.Scope, filter core.InvoiceReportFilter) (core.InvoiceReport, error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return core.InvoiceReport{}, s.err
	}
	return core.InvoiceReport{
		Summary: core.InvoiceReportSummary{TotalInvoices: 1},
		Items:   []core.InvoiceReportRow{{InvoiceNo: "INV-1"}},
	}, nil
}

func newTestWorker(reports ReportBuilder) (*MirrorWorker, *sheetsmem.Store) {
	pub := sheetsmem.New()
	clk := clock.NewFixed(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	return NewMirrorWorker(reports, pub, clk, nil), pub
}

func TestMirrorWorker_HandleExportReady(t *testing.T) {
	reports := &stubReports{}
	w, pub := newTestWorker(reports)
	scope := tenant.ForTenant(uuid.New())
	overdue := core.InvoiceOverdue

	msg := amqp.NewExportReadyMessage(scope, "tok", "xlsx", "Invoices.xlsx", 1, core.InvoiceReportFilter{Status: &overdue})
	if err := w.HandleExportReady(context.Background(), msg); err != nil {
		t.Fatalf("HandleExportReady: %v", err)
	}

	if len(reports.filters) != 1 || reports.filters[0].Status == nil || *reports.filters[0].Status != overdue {
		t.Fatalf("filter not carried through: %+v", reports.filters)
	}
	got, ok := pub.Get(scope)
	if !ok || len(got.Report.Items) != 1 {
		t.Fatalf("published = %+v, %v", got, ok)
	}
}

func TestMirrorWorker_PermanentErrors(t *testing.T) {
	w, _ := newTestWorker(&stubReports{})

	badTenant := &amqp.ExportReadyMessage{Tenant: "not-a-uuid"}
	if err := w.HandleExportReady(context.Background(), badTenant); !errors.Is(err, ErrPermanent) {
		t.Errorf("bad tenant: got %v", err)
	}

	badFilter := &amqp.ExportReadyMessage{Tenant: tenant.HostKey, Filter: amqp.ReportFilterPayload{Sort: "nope"}}
	if err := w.HandleExportReady(context.Background(), badFilter); !errors.Is(err, ErrPermanent) {
		t.Errorf("bad filter: got %v", err)
	}
}

func TestMirrorWorker_ResyncCollectsErrors(t *testing.T) {
	boom := errors.New("db down")
	w, _ := newTestWorker(&stubReports{err: boom})

	err := w.Resync(context.Background(), []tenant.Scope{tenant.Host(), tenant.ForTenant(uuid.New())})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestMirrorWorker_ResyncPublishesEveryScope(t *testing.T) {
	w, pub := newTestWorker(&stubReports{})
	scopes := []tenant.Scope{tenant.Host(), tenant.ForTenant(uuid.New())}

	if err := w.Resync(context.Background(), scopes); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	for _, s := range scopes {
		if _, ok := pub.Get(s); !ok {
			t.Errorf("%s not published", s.Key())
		}
	}
}
