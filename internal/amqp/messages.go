package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"saasreports/internal/core"
	"saasreports/internal/tenant"
)

// ReportFilterPayload is the wire form of an invoice report filter.
// Dates use the yyyy-MM-dd calendar layout; zero values mean "not set".
type ReportFilterPayload struct {
	FromDate   string `json:"fromDate,omitempty"`
	ToDate     string `json:"toDate,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	Status     int    `json:"status,omitempty"`
	Sort       string `json:"sort,omitempty"`
}

// ExportReadyMessage announces that an export was rendered and stored.
// Consumers rebuild the report from the filter; the token is only valid
// inside the process that produced it.
type ExportReadyMessage struct {
	Token     string              `json:"token"`
	Format    string              `json:"format"`
	FileName  string              `json:"fileName"`
	Tenant    string              `json:"tenant"`
	Rows      int                 `json:"rows"`
	Filter    ReportFilterPayload `json:"filter"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewExportReadyMessage builds the event for an export of the given filter.
func NewExportReadyMessage(scope tenant.Scope, token, format, fileName string, rows int, filter core.InvoiceReportFilter) *ExportReadyMessage {
	return &ExportReadyMessage{
		Token:     token,
		Format:    format,
		FileName:  fileName,
		Tenant:    scope.Key(),
		Rows:      rows,
		Filter:    FilterPayload(filter),
		Timestamp: time.Now().UTC(),
	}
}

// FilterPayload converts a report filter to its wire form.
func FilterPayload(f core.InvoiceReportFilter) ReportFilterPayload {
	var p ReportFilterPayload
	if f.FromDate != nil {
		p.FromDate = f.FromDate.Format(core.DateLayout)
	}
	if f.ToDate != nil {
		p.ToDate = f.ToDate.Format(core.DateLayout)
	}
	if f.CustomerID != nil {
		p.CustomerID = f.CustomerID.String()
	}
	if f.Status != nil {
		p.Status = int(*f.Status)
	}
	if f.Sort != "" && f.Sort != core.SortIssueDateDesc {
		p.Sort = string(f.Sort)
	}
	return p
}

// ReportFilter decodes the wire filter back into a report filter.
func (p ReportFilterPayload) ReportFilter() (core.InvoiceReportFilter, error) {
	var f core.InvoiceReportFilter
	if p.FromDate != "" {
		d, err := time.Parse(core.DateLayout, p.FromDate)
		if err != nil {
			return f, fmt.Errorf("%w: fromDate %q", core.ErrInvalidDate, p.FromDate)
		}
		f.FromDate = &d
	}
	if p.ToDate != "" {
		d, err := time.Parse(core.DateLayout, p.ToDate)
		if err != nil {
			return f, fmt.Errorf("%w: toDate %q", core.ErrInvalidDate, p.ToDate)
		}
		f.ToDate = &d
	}
	if p.CustomerID != "" {
		id, err := uuid.Parse(p.CustomerID)
		if err != nil {
			return f, fmt.Errorf("%w: customerId %q", core.ErrInvalidFilter, p.CustomerID)
		}
		f.CustomerID = &id
	}
	if p.Status != 0 {
		st := core.InvoiceStatus(p.Status)
		if !st.IsValid() {
			return f, fmt.Errorf("%w: %d", core.ErrInvalidStatus, p.Status)
		}
		f.Status = &st
	}
	sort, err := core.ParseSortKey(p.Sort)
	if err != nil {
		return f, err
	}
	f.Sort = sort
	return f, nil
}

// Scope resolves the tenant the export belongs to.
func (m *ExportReadyMessage) Scope() (tenant.Scope, error) {
	return tenant.Parse(m.Tenant)
}

// ToJSON converts the message to JSON bytes
func (m *ExportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportReadyMessageFromJSON creates a message from JSON bytes
func ExportReadyMessageFromJSON(data []byte) (*ExportReadyMessage, error) {
	var msg ExportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
