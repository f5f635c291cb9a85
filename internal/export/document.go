package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"saasreports/internal/core"
)

// DefaultMaxRows caps the invoice rows drawn into a PDF.
const DefaultMaxRows = 1500

// fontFamily is the embedded Unicode TrueType font used for all text; the
// core PDF fonts stop at cp1252.
const fontFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

const (
	pageMargin   = 12.0
	footerHeight = 10.0
	rowHeight    = 6.5
	cardHeight   = 18.0
	cardGap      = 4.0
)

type rgb struct{ r, g, b int }

func hexColor(s string) rgb {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return rgb{}
	}
	return rgb{int(byte(v >> 16)), int(byte(v >> 8)), int(byte(v))}
}

var (
	colorText       = hexColor("#12314A")
	colorMuted      = hexColor("#5B7890")
	colorBrand      = hexColor("#1476CC")
	colorHeaderFill = hexColor("#EAF3FF")
	colorHeaderText = hexColor("#0F5A9C")
	colorZebra      = hexColor("#F7FAFD")
	colorNoticeFill = hexColor("#FFF4D6")
	colorNoticeText = hexColor("#996300")
	colorBorder     = hexColor("#D5E3F0")
	colorWhite      = hexColor("#FFFFFF")
	statusColors    = map[core.InvoiceStatus]rgb{
		core.InvoicePaid:          hexColor("#1A9B64"),
		core.InvoiceOverdue:       hexColor("#B42318"),
		core.InvoicePartiallyPaid: hexColor("#996300"),
		core.InvoiceSent:          hexColor("#1476CC"),
		core.InvoiceDraft:         hexColor("#5B7890"),
		core.InvoiceCancelled:     hexColor("#6B7280"),
	}
)

type summaryCard struct {
	label string
	value string
	fill  rgb
	text  rgb
}

// column widths are fractions of the usable page width.
var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Invoice No", 0.14, "L"},
	{"Customer", 0.25, "L"},
	{"Project", 0.23, "L"},
	{"Amount", 0.15, "R"},
	{"Status", 0.11, "L"},
	{"Date", 0.12, "L"},
}

// DocumentExporter renders a landscape A4 report: header, summary cards,
// an optional truncation notice, the invoice table and a page footer.
//
// The row cap keeps the first MaxRows rows in the order the report arrives
// in, so a non-default sort changes which rows make it into the file.
type DocumentExporter struct {
	Currency string
	MaxRows  int
	// Compress the content streams. Tests switch it off to inspect text.
	Compress bool
}

func NewDocumentExporter(currency string, maxRows int) *DocumentExporter {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &DocumentExporter{Currency: currency, MaxRows: maxRows, Compress: true}
}

func (e *DocumentExporter) Format() Format { return FormatPDF }

// Render draws at most MaxRows invoice rows. Summary figures always cover
// the full report.
func (e *DocumentExporter) Render(report core.InvoiceReport, generatedAt time.Time) (Result, error) {
	maxRows := e.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	total := len(report.Items)
	rendered := min(total, maxRows)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(e.Compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin+footerHeight)
	pdf.SetTitle("Invoices Report", true)
	pdf.SetCreator("saasreports", true)
	pdf.SetCreationDate(generatedAt)
	pdf.AliasNbPages("")

	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	d := &document{pdf: pdf, currency: e.Currency}

	pdf.SetFooterFunc(d.footer)
	pdf.AddPage()

	d.header(generatedAt)
	d.cards(report.Summary)
	if total > rendered {
		d.notice(fmt.Sprintf("Showing first %d rows out of %d rows. Apply filters for a full PDF.", rendered, total))
	}
	d.table(report.Items[:rendered])

	if err := pdf.Error(); err != nil {
		return Result{}, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Result{}, fmt.Errorf("write pdf: %w", err)
	}
	return Result{
		Content:      buf.Bytes(),
		Rows:         total,
		RenderedRows: rendered,
		Truncated:    total > rendered,
	}, nil
}

type document struct {
	pdf      *fpdf.Fpdf
	currency string
}

func (d *document) width() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*pageMargin
}

func (d *document) bottom() float64 {
	_, h := d.pdf.GetPageSize()
	return h - pageMargin - footerHeight
}

func (d *document) fill(c rgb)  { d.pdf.SetFillColor(c.r, c.g, c.b) }
func (d *document) color(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }

func (d *document) header(generatedAt time.Time) {
	pdf := d.pdf

	d.fill(colorBrand)
	d.color(colorWhite)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(16, 8, "SaaS", "", 0, "C", true, 0, "")

	pdf.SetX(pdf.GetX() + 4)
	d.color(colorText)
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(120, 8, "Invoices Report", "", 0, "L", false, 0, "")

	d.color(colorMuted)
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(0, 8, "Generated: "+generatedAt.Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func (d *document) cards(s core.InvoiceReportSummary) {
	cards := []summaryCard{
		{LabelTotalRevenue, core.FormatCurrency(s.TotalRevenue, d.currency), hexColor("#E3F6ED"), hexColor("#1A9B64")},
		{"Invoices", strconv.Itoa(s.TotalInvoices), hexColor("#EAF3FF"), hexColor("#1476CC")},
		{"Paid", strconv.Itoa(s.PaidInvoices), hexColor("#E8F8EF"), hexColor("#157347")},
		{"Pending", strconv.Itoa(s.PendingInvoices), hexColor("#FFF3CD"), hexColor("#996300")},
		{"Overdue", strconv.Itoa(s.OverdueInvoices), hexColor("#FCEAEA"), hexColor("#B42318")},
	}

	pdf := d.pdf
	w := (d.width() - cardGap*float64(len(cards)-1)) / float64(len(cards))
	x0, y := pdf.GetX(), pdf.GetY()
	for i, c := range cards {
		x := x0 + float64(i)*(w+cardGap)
		d.fill(c.fill)
		pdf.Rect(x, y, w, cardHeight, "F")

		pdf.SetXY(x+3, y+2)
		d.color(colorMuted)
		pdf.SetFont(fontFamily, "", 8)
		pdf.CellFormat(w-6, 5, c.label, "", 0, "L", false, 0, "")

		pdf.SetXY(x+3, y+8)
		d.color(c.text)
		pdf.SetFont(fontFamily, "B", 13)
		pdf.CellFormat(w-6, 8, c.value, "", 0, "L", false, 0, "")
	}
	pdf.SetXY(x0, y+cardHeight+cardGap)
}

func (d *document) notice(text string) {
	d.fill(colorNoticeFill)
	d.color(colorNoticeText)
	d.pdf.SetFont(fontFamily, "B", 9)
	d.pdf.CellFormat(0, 8, "  "+text, "", 1, "L", true, 0, "")
	d.pdf.Ln(cardGap)
}

func (d *document) tableHeader() {
	pdf := d.pdf
	d.fill(colorHeaderFill)
	d.color(colorHeaderText)
	pdf.SetDrawColor(colorBorder.r, colorBorder.g, colorBorder.b)
	pdf.SetFont(fontFamily, "B", 9)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width*d.width(), rowHeight+1, col.title, "B", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)
}

func (d *document) table(items []core.InvoiceReportRow) {
	pdf := d.pdf
	d.tableHeader()

	for i, item := range items {
		if pdf.GetY()+rowHeight > d.bottom() {
			pdf.AddPage()
			d.tableHeader()
		}

		d.fill(colorZebra)
		zebra := i%2 == 1
		pdf.SetFont(fontFamily, "", 8.5)

		values := []string{
			item.InvoiceNo,
			item.CustomerName,
			item.ProjectName,
			core.FormatCurrency(item.Amount, d.currency),
			item.Status.String(),
			item.Date.Format(core.DateLayout),
		}
		for j, col := range pdfColumns {
			w := col.width * d.width()
			if j == 4 {
				d.color(statusColor(item.Status))
				pdf.SetFont(fontFamily, "B", 8.5)
			} else {
				d.color(colorText)
				pdf.SetFont(fontFamily, "", 8.5)
			}
			pdf.CellFormat(w, rowHeight, d.fit(values[j], w-2), "", 0, col.align, zebra, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (d *document) footer() {
	pdf := d.pdf
	pdf.SetY(-(pageMargin + footerHeight/2))
	d.color(colorMuted)
	pdf.SetFont(fontFamily, "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by SaaS System | %d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
}

// fit trims s to width w, rune by rune.
func (d *document) fit(s string, w float64) string {
	if d.pdf.GetStringWidth(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && d.pdf.GetStringWidth(string(r)+"...") > w {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func statusColor(s core.InvoiceStatus) rgb {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return colorText
}
