// Package web provides the HTTP API for shift uploads and the attendance
// summary.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	mw "github.com/JonMunkholm/attendance/internal/web/middleware"
)

// Service is the business logic the handlers call. *core.Service
// implements it.
type Service interface {
	SaveBatch(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error)
	Shifts(ctx context.Context) ([]core.ShiftOption, error)
	Lines(ctx context.Context) ([]core.LineOption, error)
	FilterOptions(ctx context.Context) ([]core.ShiftOption, []core.LineOption, error)
	Summary(ctx context.Context, q core.SummaryQuery) ([]core.SummaryRecord, error)
	WriteTemplate(w io.Writer, kind string) (core.KindInfo, error)
	ListKinds() []core.KindInfo
	Ping(ctx context.Context) error
	UploadLimiterStatus() core.UploadLimiterStatus
	PoolStatus() core.PoolStatus
}

// Server is the HTTP server for the attendance API.
type Server struct {
	service Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(requestMetadata)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		s.protect(r)

		r.Get("/download-template", s.handleDownloadUserShiftsTemplate)

		r.Route("/api", func(r chi.Router) {
			r.Get("/kinds", s.handleListKinds)
			r.Get("/upload/status", s.handleUploadQueueStatus)

			// Batch saves
			r.Post("/saveUserShifts", s.handleSaveUserShifts)
			r.Post("/upload/{kind}", s.handleUpload)

			// Filter lists and summary
			r.Get("/shifts", s.handleShifts)
			r.Get("/lines", s.handleLines)
			r.Get("/filter-options", s.handleFilterOptions)
			r.Get("/attendance/overall-summary", s.handleOverallSummary)

			r.Get("/template/{kind}", s.handleDownloadTemplate)
		})
	})
}

// protect adds authentication and rate limiting to a route group.
func (s *Server) protect(r chi.Router) {
	r.Use(mw.APIKeyAuth(s.cfg.Security))
	if s.cfg.Rate.Enabled {
		if s.limiter == nil {
			s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, rateWindow)
		}
		r.Use(s.limiter.middleware)
	}
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
