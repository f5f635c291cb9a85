package sheets

import (
	"context"
	"time"

	"saasreports/internal/core"
	"saasreports/internal/tenant"
)

// Ports for outbound adapters.
type (
	// ReportPublisher mirrors an invoice report into a shared spreadsheet.
	// Publishing replaces the tenant's previous copy.
	ReportPublisher interface {
		PublishInvoiceReport(ctx context.Context, scope tenant.Scope, report core.InvoiceReport, generatedAt time.Time) (ref string, err error)
	}
)
