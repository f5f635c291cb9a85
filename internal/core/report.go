package core

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodLayout labels monthly buckets ("2024-06").
const PeriodLayout = "2006-01"

// DateLayout is the calendar date format used in exports and query strings.
const DateLayout = "2006-01-02"

// Report row fallbacks when a related entity cannot be resolved.
const (
	UnknownCustomerName = "Unknown Customer"
	NoProjectName       = "N/A"
)

type (
	// RevenueBucket is the summed payment amount of one calendar month.
	RevenueBucket struct {
		Period string
		Amount decimal.Decimal
	}

	// DashboardSnapshot is the cached per-tenant dashboard payload.
	DashboardSnapshot struct {
		TotalCustomers      int
		ActiveProjects      int
		PendingTasks        int
		OutstandingInvoices decimal.Decimal
		MonthRevenue        decimal.Decimal
		RevenueByMonth      []RevenueBucket
	}

	// RevenueReport covers an arbitrary caller supplied range.
	RevenueReport struct {
		From         time.Time
		To           time.Time
		TotalRevenue decimal.Decimal
		Buckets      []RevenueBucket
	}

	// InvoiceRecord is the minimal invoice projection read by the report builder.
	InvoiceRecord struct {
		ID         uuid.UUID
		InvoiceNo  string
		CustomerID uuid.UUID
		ProjectID  *uuid.UUID
		Amount     decimal.Decimal
		Status     InvoiceStatus
		IssueDate  time.Time
	}

	InvoiceReportRow struct {
		InvoiceNo    string
		CustomerName string
		ProjectName  string
		Amount       decimal.Decimal
		Status       InvoiceStatus
		Date         time.Time
	}

	// InvoiceReportSummary classifies matched invoices. Cancelled invoices
	// count toward TotalInvoices only.
	InvoiceReportSummary struct {
		TotalRevenue    decimal.Decimal
		TotalInvoices   int
		PaidInvoices    int
		PendingInvoices int
		OverdueInvoices int
	}

	InvoiceReport struct {
		Summary InvoiceReportSummary
		Items   []InvoiceReportRow
	}

	// InvoiceReportFilter holds the optional report criteria. Dates are
	// calendar dates: FromDate is inclusive from midnight, ToDate through
	// the end of its day.
	InvoiceReportFilter struct {
		FromDate   *time.Time
		ToDate     *time.Time
		CustomerID *uuid.UUID
		Status     *InvoiceStatus
		Sort       SortKey
	}

	// InvoiceQuery is the resolved filter handed to storage.
	InvoiceQuery struct {
		IssuedFrom *time.Time
		IssuedTo   *time.Time
		CustomerID *uuid.UUID
		Status     *InvoiceStatus
	}
)

// Query resolves calendar dates into the instant bounds used by storage.
func (f InvoiceReportFilter) Query() InvoiceQuery {
	q := InvoiceQuery{CustomerID: f.CustomerID, Status: f.Status}
	if f.FromDate != nil {
		from := StartOfDay(*f.FromDate)
		q.IssuedFrom = &from
	}
	if f.ToDate != nil {
		to := EndOfDay(*f.ToDate)
		q.IssuedTo = &to
	}
	return q
}

// Matches applies the query to a single invoice. Used by in-memory stores.
func (q InvoiceQuery) Matches(inv Invoice) bool {
	if q.IssuedFrom != nil && inv.IssueDate.Before(*q.IssuedFrom) {
		return false
	}
	if q.IssuedTo != nil && inv.IssueDate.After(*q.IssuedTo) {
		return false
	}
	if q.CustomerID != nil && inv.CustomerID != *q.CustomerID {
		return false
	}
	if q.Status != nil && inv.Status != *q.Status {
		return false
	}
	return true
}

// SortKey selects one of the supported report orderings.
type SortKey string

const (
	SortIssueDateDesc SortKey = "issueDate"
	SortIssueDateAsc  SortKey = "issueDateAsc"
	SortAmountDesc    SortKey = "amount"
	SortAmountAsc     SortKey = "amountAsc"
	SortInvoiceNo     SortKey = "invoiceNo"
	SortCustomer      SortKey = "customer"
	SortStatus        SortKey = "status"
)

var rowComparators = map[SortKey]func(a, b InvoiceReportRow) int{
	SortIssueDateDesc: func(a, b InvoiceReportRow) int { return b.Date.Compare(a.Date) },
	SortIssueDateAsc:  func(a, b InvoiceReportRow) int { return a.Date.Compare(b.Date) },
	SortAmountDesc:    func(a, b InvoiceReportRow) int { return b.Amount.Cmp(a.Amount) },
	SortAmountAsc:     func(a, b InvoiceReportRow) int { return a.Amount.Cmp(b.Amount) },
	SortInvoiceNo:     func(a, b InvoiceReportRow) int { return cmp.Compare(a.InvoiceNo, b.InvoiceNo) },
	SortCustomer: func(a, b InvoiceReportRow) int {
		return cmp.Compare(strings.ToLower(a.CustomerName), strings.ToLower(b.CustomerName))
	},
	SortStatus: func(a, b InvoiceReportRow) int { return cmp.Compare(a.Status, b.Status) },
}

// ParseSortKey maps a query value to a SortKey. Empty selects issue date descending.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortIssueDateDesc, nil
	}
	for key := range rowComparators {
		if strings.EqualFold(string(key), s) {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
}

// Comparator returns the row ordering for k. Unknown keys fall back to issue date descending.
func (k SortKey) Comparator() func(a, b InvoiceReportRow) int {
	if c, ok := rowComparators[k]; ok {
		return c
	}
	return rowComparators[SortIssueDateDesc]
}

// Clone returns a copy that shares no slices with s.
func (s DashboardSnapshot) Clone() DashboardSnapshot {
	s.RevenueByMonth = append([]RevenueBucket(nil), s.RevenueByMonth...)
	return s
}
