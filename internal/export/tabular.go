package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"saasreports/internal/core"
)

const (
	SummarySheet  = "Summary"
	InvoicesSheet = "Invoices"

	amountNumFmt = "#,##0.00"
)

// TabularExporter writes a workbook with a Summary sheet and an Invoices
// sheet holding one row per report item.
type TabularExporter struct {
	Currency string
}

func NewTabularExporter(currency string) *TabularExporter {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &TabularExporter{Currency: currency}
}

func (e *TabularExporter) Format() Format { return FormatXLSX }

func (e *TabularExporter) Render(report core.InvoiceReport, _ time.Time) (Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return Result{}, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(InvoicesSheet); err != nil {
		return Result{}, fmt.Errorf("create invoices sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#0F5A9C"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#EAF3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return Result{}, fmt.Errorf("header style: %w", err)
	}
	numFmt := amountNumFmt
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return Result{}, fmt.Errorf("amount style: %w", err)
	}

	if err := e.writeSummary(f, report.Summary, headerStyle); err != nil {
		return Result{}, err
	}
	if err := writeInvoices(f, report.Items, headerStyle, amountStyle); err != nil {
		return Result{}, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("write workbook: %w", err)
	}
	return Result{
		Content:      buf.Bytes(),
		Rows:         len(report.Items),
		RenderedRows: len(report.Items),
	}, nil
}

func (e *TabularExporter) writeSummary(f *excelize.File, s core.InvoiceReportSummary, headerStyle int) error {
	for i, row := range SummaryRows(s, e.Currency) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetRowStyle(SummarySheet, 1, 1, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeInvoices(f *excelize.File, items []core.InvoiceReportRow, headerStyle, amountStyle int) error {
	header := make([]any, len(InvoiceHeaders))
	for i, h := range InvoiceHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(InvoicesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write invoice header: %w", err)
	}
	if err := f.SetRowStyle(InvoicesSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, item := range items {
		row := InvoiceRow(item)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(InvoicesSheet, cell, &row); err != nil {
			return fmt.Errorf("write invoice row %d: %w", i+2, err)
		}
	}
	if len(items) > 0 {
		if err := f.SetCellStyle(InvoicesSheet, "D2", fmt.Sprintf("D%d", len(items)+1), amountStyle); err != nil {
			return err
		}
	}

	if err := f.SetPanes(InvoicesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	for _, c := range invoiceColWidths {
		if err := f.SetColWidth(InvoicesSheet, c.from, c.to, c.width); err != nil {
			return fmt.Errorf("set width %s:%s: %w", c.from, c.to, err)
		}
	}
	return nil
}

var invoiceColWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "A", 16},
	{"B", "C", 28},
	{"D", "F", 14},
}
