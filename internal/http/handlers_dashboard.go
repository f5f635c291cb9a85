package http

import (
	"context"
	"net/http"

	"saasreports/internal/log"
)

// handleDashboardStats serves the cached tenant dashboard snapshot.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	snap, err := s.dashboard.GetStats(ctx, scope, s.clock.Now())
	if err != nil {
		s.writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(snap))
}
