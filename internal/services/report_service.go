package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saasreports/internal/core"
	"saasreports/internal/log"
	"saasreports/internal/storage"
	"saasreports/internal/tenant"
)

// ReportReader is the data the invoice and revenue reports are built from.
type ReportReader interface {
	storage.InvoiceReader
	storage.NameResolver
	storage.PaymentLister
}

// ReportService builds filtered invoice reports and revenue reports.
type ReportService struct {
	reader ReportReader
	logger *log.Logger
}

func NewReportService(reader ReportReader, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		reader: reader,
		logger: logger.WithComponent(log.ComponentReports),
	}
}

// BuildReport returns the invoices matching filter with display names
// resolved and a summary over the same set. An empty match returns an empty
// report without further lookups.
func (s *ReportService) BuildReport(ctx context.Context, scope tenant.Scope, filter core.InvoiceReportFilter) (core.InvoiceReport, error) {
	sortKey, err := core.ParseSortKey(string(filter.Sort))
	if err != nil {
		return core.InvoiceReport{}, err
	}

	records, err := s.reader.QueryInvoices(ctx, scope, filter.Query())
	if err != nil {
		return core.InvoiceReport{}, fmt.Errorf("query invoices: %w", err)
	}
	if len(records) == 0 {
		return emptyReport(), nil
	}

	customerIDs, projectIDs, invoiceIDs := distinctIDs(records)

	customers, err := s.reader.CustomerNames(ctx, scope, customerIDs)
	if err != nil {
		return core.InvoiceReport{}, fmt.Errorf("resolve customer names: %w", err)
	}
	projects, err := s.reader.ProjectNames(ctx, scope, projectIDs)
	if err != nil {
		return core.InvoiceReport{}, fmt.Errorf("resolve project names: %w", err)
	}

	revenue, err := s.reader.SumPaymentsForInvoices(ctx, scope, invoiceIDs)
	if err != nil {
		return core.InvoiceReport{}, fmt.Errorf("sum payments: %w", err)
	}

	report := core.InvoiceReport{
		Summary: core.InvoiceReportSummary{
			TotalRevenue:  core.RoundMoney(revenue),
			TotalInvoices: len(records),
		},
		Items: make([]core.InvoiceReportRow, 0, len(records)),
	}
	for _, r := range records {
		switch {
		case r.Status == core.InvoicePaid:
			report.Summary.PaidInvoices++
		case r.Status == core.InvoiceOverdue:
			report.Summary.OverdueInvoices++
		case r.Status.IsPending():
			report.Summary.PendingInvoices++
		}
		report.Items = append(report.Items, core.InvoiceReportRow{
			InvoiceNo:    r.InvoiceNo,
			CustomerName: nameOr(customers, r.CustomerID, core.UnknownCustomerName),
			ProjectName:  projectName(projects, r.ProjectID),
			Amount:       core.RoundMoney(r.Amount),
			Status:       r.Status,
			Date:         r.IssueDate,
		})
	}

	// Storage already returns issue date descending.
	if sortKey != core.SortIssueDateDesc {
		slices.SortStableFunc(report.Items, sortKey.Comparator())
	}

	s.logger.DebugContext(ctx, "Invoice report built",
		log.FieldTenant, scope.Key(),
		log.FieldRows, len(report.Items),
		"sort", string(sortKey))

	return report, nil
}

// RevenueReport sums payments with from <= paidAt <= to per calendar month.
// Only months with payments appear; a range with from after to is empty.
func (s *ReportService) RevenueReport(ctx context.Context, scope tenant.Scope, from, to time.Time) (core.RevenueReport, error) {
	report := core.RevenueReport{
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		Buckets:      []core.RevenueBucket{},
	}
	if from.After(to) {
		return report, nil
	}

	payments, err := s.reader.ListPayments(ctx, scope, &from, &to)
	if err != nil {
		return core.RevenueReport{}, fmt.Errorf("list payments: %w", err)
	}

	buckets, total := groupRevenueByPeriod(payments, from.Location())
	if len(buckets) > 0 {
		report.Buckets = buckets
	}
	report.TotalRevenue = total
	return report, nil
}

// DefaultRevenueRange is used when the caller leaves either bound open:
// from the start of the trailing twelve-month window through now.
func DefaultRevenueRange(from, to *time.Time, now time.Time) (time.Time, time.Time) {
	start, end := RevenueSeriesStart(now), now
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	return start, end
}

func emptyReport() core.InvoiceReport {
	return core.InvoiceReport{
		Summary: core.InvoiceReportSummary{TotalRevenue: decimal.Zero},
		Items:   []core.InvoiceReportRow{},
	}
}

func distinctIDs(records []core.InvoiceRecord) (customers, projects, invoices []uuid.UUID) {
	seenCustomers := make(map[uuid.UUID]struct{})
	seenProjects := make(map[uuid.UUID]struct{})
	invoices = make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, r.ID)
		if _, ok := seenCustomers[r.CustomerID]; !ok {
			seenCustomers[r.CustomerID] = struct{}{}
			customers = append(customers, r.CustomerID)
		}
		if r.ProjectID != nil {
			if _, ok := seenProjects[*r.ProjectID]; !ok {
				seenProjects[*r.ProjectID] = struct{}{}
				projects = append(projects, *r.ProjectID)
			}
		}
	}
	return customers, projects, invoices
}

// nameOr substitutes fallback only when id has no entry; stored names are
// used as is, even when empty.
func nameOr(names map[uuid.UUID]string, id uuid.UUID, fallback string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fallback
}

func projectName(names map[uuid.UUID]string, id *uuid.UUID) string {
	if id == nil {
		return core.NoProjectName
	}
	return nameOr(names, *id, core.NoProjectName)
}
