package http

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"saasreports/internal/core"
	"saasreports/internal/services"
)

// Query parameter names accepted by the report endpoints.
const (
	ParamFromDate   = "fromDate"
	ParamToDate     = "toDate"
	ParamCustomerID = "customerId"
	ParamStatus     = "status"
	ParamSort       = "sort"
	ParamFrom       = "from"
	ParamTo         = "to"
)

// ParseReportFilter reads the invoice report criteria from a query string.
// Absent parameters stay nil. An inverted date range is not an error; it
// simply matches nothing.
func ParseReportFilter(query url.Values, loc *time.Location) (core.InvoiceReportFilter, error) {
	var f core.InvoiceReportFilter

	if v := strings.TrimSpace(query.Get(ParamFromDate)); v != "" {
		t, _, err := parseDateParam(v, loc)
		if err != nil {
			return f, fmt.Errorf("%s: %w", ParamFromDate, err)
		}
		f.FromDate = &t
	}
	if v := strings.TrimSpace(query.Get(ParamToDate)); v != "" {
		t, _, err := parseDateParam(v, loc)
		if err != nil {
			return f, fmt.Errorf("%s: %w", ParamToDate, err)
		}
		f.ToDate = &t
	}
	if v := strings.TrimSpace(query.Get(ParamCustomerID)); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("%w: %s %q is not a uuid", core.ErrInvalidFilter, ParamCustomerID, v)
		}
		f.CustomerID = &id
	}
	if v := strings.TrimSpace(query.Get(ParamStatus)); v != "" {
		st, err := core.ParseInvoiceStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}

	sort, err := core.ParseSortKey(query.Get(ParamSort))
	if err != nil {
		return f, err
	}
	f.Sort = sort
	return f, nil
}

// ParseRevenueRange reads from/to. A date-only "to" covers its whole day.
// Missing bounds default to the trailing twelve months ending at now.
func ParseRevenueRange(query url.Values, now time.Time) (from, to time.Time, err error) {
	var fromPtr, toPtr *time.Time

	if v := strings.TrimSpace(query.Get(ParamFrom)); v != "" {
		t, _, err := parseDateParam(v, now.Location())
		if err != nil {
			return from, to, fmt.Errorf("%s: %w", ParamFrom, err)
		}
		fromPtr = &t
	}
	if v := strings.TrimSpace(query.Get(ParamTo)); v != "" {
		t, dateOnly, err := parseDateParam(v, now.Location())
		if err != nil {
			return from, to, fmt.Errorf("%s: %w", ParamTo, err)
		}
		if dateOnly {
			t = core.EndOfDay(t)
		}
		toPtr = &t
	}

	from, to = services.DefaultRevenueRange(fromPtr, toPtr, now)
	return from, to, nil
}

// parseDateParam accepts yyyy-MM-dd (interpreted in loc) or RFC 3339.
func parseDateParam(v string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, err := time.ParseInLocation(core.DateLayout, v, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q, want yyyy-MM-dd or RFC 3339", core.ErrInvalidDate, v)
}
