// Package export renders invoice reports into downloadable files.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"saasreports/internal/core"
)

// Format identifies an export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePDF  = "application/pdf"
)

// FileNamePrefix starts every export file name.
const FileNamePrefix = "Invoices"

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts "xlsx", "excel" or "pdf" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) MimeType() string {
	switch f {
	case FormatXLSX:
		return MimeXLSX
	case FormatPDF:
		return MimePDF
	}
	return "application/octet-stream"
}

// FileName returns "Invoices-yyyyMMdd-HHmmss.<ext>" for the generation time.
func FileName(f Format, generatedAt time.Time) string {
	return fmt.Sprintf("%s-%s.%s", FileNamePrefix, generatedAt.Format("20060102-150405"), f)
}

// Result is a rendered export. RenderedRows is lower than Rows when the
// format caps the number of invoice rows.
type Result struct {
	Content      []byte
	Rows         int
	RenderedRows int
	Truncated    bool
}

// Renderer turns a report into file bytes.
type Renderer interface {
	Format() Format
	Render(report core.InvoiceReport, generatedAt time.Time) (Result, error)
}

// Summary labels shared by the spreadsheet, the PDF cards and the Sheets mirror.
const (
	LabelTotalRevenue    = "Total Revenue"
	LabelTotalInvoices   = "Total Invoices"
	LabelPaidInvoices    = "Paid Invoices"
	LabelPendingInvoices = "Pending Invoices"
	LabelOverdueInvoices = "Overdue Invoices"
)

// InvoiceHeaders are the column titles of the invoice table.
var InvoiceHeaders = []string{"InvoiceNo", "Customer", "Project", "Amount", "Status", "Date"}

// SummaryRows returns the Metric/Value table, header first.
func SummaryRows(s core.InvoiceReportSummary, currency string) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{LabelTotalRevenue, core.FormatCurrency(s.TotalRevenue, currency)},
		{LabelTotalInvoices, s.TotalInvoices},
		{LabelPaidInvoices, s.PaidInvoices},
		{LabelPendingInvoices, s.PendingInvoices},
		{LabelOverdueInvoices, s.OverdueInvoices},
	}
}

// InvoiceRow returns the cell values of one report row in InvoiceHeaders order.
// Amount stays numeric so spreadsheets can sum it.
func InvoiceRow(r core.InvoiceReportRow) []any {
	return []any{
		r.InvoiceNo,
		r.CustomerName,
		r.ProjectName,
		r.Amount.Round(2).InexactFloat64(),
		r.Status.String(),
		r.Date.Format(core.DateLayout),
	}
}
