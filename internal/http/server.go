package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"saasreports/internal/clock"
	"saasreports/internal/export"
	"saasreports/internal/log"
	"saasreports/internal/middleware/ratelimit"
	"saasreports/internal/middleware/security"
	"saasreports/internal/middleware/trace"
	"saasreports/internal/services"
)

const (
	dashboardTimeout = 7 * time.Second
	reportTimeout    = 15 * time.Second
	exportTimeout    = time.Minute
)

// Deps wires the server to the reporting services.
type Deps struct {
	Dashboard *services.DashboardService
	Reports   *services.ReportService
	Exports   *services.ExportService

	// Ready reports whether the data backend answers. Nil means always ready.
	Ready func(ctx context.Context) error

	Clock  clock.Clock
	Logger *log.Logger

	// ExportRateLimit is the number of export requests allowed per client per minute.
	ExportRateLimit int
}

type Server struct {
	http.Server
	dashboard *services.DashboardService
	reports   *services.ReportService
	exports   *services.ExportService
	ready     func(ctx context.Context) error

	clock     clock.Clock
	logger    *log.Logger
	structLog *log.StructuredLogger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}

	s := &Server{
		dashboard: deps.Dashboard,
		reports:   deps.Reports,
		exports:   deps.Exports,
		ready:     deps.Ready,
		clock:     deps.Clock,
		logger:    deps.Logger.WithComponent(log.ComponentHTTP),
		structLog: log.NewStructuredLogger(deps.Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.ExportRateLimit,
			Clock:             deps.Clock,
		}),
		detector:  security.NewDetector(deps.Logger),
		startedAt: deps.Clock.Now(),
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(deps.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/dashboard/stats", s.handleDashboardStats)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/revenue", s.handleRevenueReport)
		r.Get("/invoices", s.handleInvoiceReport)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
			r.Get("/invoices-excel", s.handleExport(export.FormatXLSX))
			r.Get("/invoices-pdf", s.handleExport(export.FormatPDF))
		})

		r.Get("/files/{token}", s.handleDownload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.clock.Now().Format(time.RFC3339),
		"uptime":    s.clock.Now().Sub(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the data backend with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"storage": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "storage": "ok"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}
