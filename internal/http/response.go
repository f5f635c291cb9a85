package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"saasreports/internal/artifact"
	"saasreports/internal/core"
	"saasreports/internal/export"
	"saasreports/internal/log"
	"saasreports/internal/tenant"
)

const (
	HeaderExportToken        = "X-Export-Token"
	HeaderExportRows         = "X-Export-Rows"
	HeaderExportRenderedRows = "X-Export-Rendered-Rows"
)

type errorResponse struct {
	Error string `json:"error"`
}

var errInvalidTenant = errors.New("invalid tenant")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err), errors.Is(err, export.ErrUnsupportedFormat), errors.Is(err, errInvalidTenant):
		return http.StatusBadRequest
	case artifact.IsNotFound(err):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the mapped status. Server side failures are logged and
// their details withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	s.structLog.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
		log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

func scopeFromRequest(r *http.Request) (tenant.Scope, error) {
	scope, err := tenant.FromRequest(r)
	if err != nil {
		return tenant.Scope{}, fmt.Errorf("%w: %v", errInvalidTenant, err)
	}
	return scope, nil
}

// writeFile streams a stored export as an attachment.
func writeFile(w http.ResponseWriter, a artifact.Artifact) {
	h := w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}))
	h.Set("Content-Length", strconv.Itoa(len(a.Content)))
	h.Set(HeaderExportToken, a.Token)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Content)
}
