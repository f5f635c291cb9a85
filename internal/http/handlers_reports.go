package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"saasreports/internal/export"
	"saasreports/internal/log"
)

func (s *Server) handleRevenueReport(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return
	}
	from, to, err := ParseRevenueRange(r.URL.Query(), s.clock.Now())
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	report, err := s.reports.RevenueReport(ctx, scope, from, to)
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueReportDTO(report))
}

func (s *Server) handleInvoiceReport(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpBuild, err)
		return
	}
	filter, err := ParseReportFilter(r.URL.Query(), s.clock.Now().Location())
	if err != nil {
		s.writeError(w, r, log.OpBuild, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	report, err := s.reports.BuildReport(ctx, scope, filter)
	if err != nil {
		s.writeError(w, r, log.OpBuild, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceReportDTO(report))
}

// handleExport renders, stores and immediately returns the file. The token
// header lets clients fetch the same bytes again until it expires.
func (s *Server) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := scopeFromRequest(r)
		if err != nil {
			s.writeError(w, r, log.OpRender, err)
			return
		}
		filter, err := ParseReportFilter(r.URL.Query(), s.clock.Now().Location())
		if err != nil {
			s.writeError(w, r, log.OpRender, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
		defer cancel()

		fd, file, err := s.exports.ExportFile(ctx, scope, filter, format)
		if err != nil {
			s.writeError(w, r, log.OpRender, err)
			return
		}

		w.Header().Set(HeaderExportRows, strconv.Itoa(fd.Rows))
		w.Header().Set(HeaderExportRenderedRows, strconv.Itoa(fd.RenderedRows))
		writeFile(w, file)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	file, err := s.exports.Download(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, log.OpRetrieve, err)
		return
	}
	writeFile(w, file)
}
