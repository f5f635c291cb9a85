package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saasreports/internal/core"
	"saasreports/internal/export"
	ports "saasreports/internal/sheets"
	"saasreports/internal/tenant"
)

// Client writes report mirrors into one spreadsheet. Each tenant gets its
// own pair of tabs, "<tenant> Summary" and "<tenant> Invoices".
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summaryBase   string
	invoicesBase  string
	currency      string
}

// Ensure interface conformance
var _ ports.ReportPublisher = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables and a
// service account.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_SUMMARY_SHEET_NAME (default "Summary"),
// GOOGLE_INVOICES_SHEET_NAME (default "Invoices").
func NewFromEnv(ctx context.Context, currency string) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, currency), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, currency string) *Client {
	summary := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summary == "" {
		summary = export.SummarySheet
	}
	invoices := strings.TrimSpace(os.Getenv("GOOGLE_INVOICES_SHEET_NAME"))
	if invoices == "" {
		invoices = export.InvoicesSheet
	}
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summaryBase:   summary,
		invoicesBase:  invoices,
		currency:      currency,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and explicit timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// PublishInvoiceReport replaces the tenant's Summary and Invoices tabs with
// the report. Missing tabs are created.
func (c *Client) PublishInvoiceReport(ctx context.Context, scope tenant.Scope, report core.InvoiceReport, generatedAt time.Time) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	summaryTab := tenantPrefixedName(c.summaryBase, scope)
	invoicesTab := tenantPrefixedName(c.invoicesBase, scope)
	if err := c.ensureTabs(ctx, summaryTab, invoicesTab); err != nil {
		return "", err
	}

	_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: []string{summaryTab + "!A:B", invoicesTab + "!A:F"},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear report tabs: %w", err)
	}

	summary := summaryValues(report.Summary, c.currency, generatedAt)
	invoices := invoiceValues(report.Items)
	ref := fmt.Sprintf("%s!A1:F%d", invoicesTab, len(invoices))

	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: fmt.Sprintf("%s!A1:B%d", summaryTab, len(summary)), Values: summary},
			{Range: ref, Values: invoices},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write report tabs: %w", err)
	}

	slog.InfoContext(ctx, "Published invoice report to Google Sheets",
		"tenant", scope.Key(),
		"rows", len(report.Items),
		"range", ref)
	return ref, nil
}

func (c *Client) ensureTabs(ctx context.Context, titles ...string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var reqs []*gsheet.Request
	for _, title := range titles {
		if !existing[title] {
			reqs = append(reqs, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
			})
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add report tabs: %w", err)
	}
	return nil
}

func summaryValues(s core.InvoiceReportSummary, currency string, generatedAt time.Time) [][]any {
	rows := export.SummaryRows(s, currency)
	return append(rows, []any{"Generated", generatedAt.UTC().Format(time.RFC3339)})
}

func invoiceValues(items []core.InvoiceReportRow) [][]any {
	header := make([]any, len(export.InvoiceHeaders))
	for i, h := range export.InvoiceHeaders {
		header[i] = h
	}
	rows := make([][]any, 0, len(items)+1)
	rows = append(rows, header)
	for _, item := range items {
		rows = append(rows, export.InvoiceRow(item))
	}
	return rows
}

// tenantPrefixedName returns "<tenant> <base>" unless base already carries the prefix.
func tenantPrefixedName(base string, scope tenant.Scope) string {
	base = strings.TrimSpace(base)
	prefix := scope.Key() + " "
	if strings.HasPrefix(base, prefix) {
		return base
	}
	return prefix + base
}
