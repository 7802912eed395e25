package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

// Service is the query surface the API exposes. *pipeline.Pipeline
// implements it.
type Service interface {
	sharedobs.ReadinessChecker
	Sites(ctx context.Context, filter domain.SiteFilter) (domain.Sites, error)
	SiteVariables(ctx context.Context, siteID string) (domain.Variables, error)
	Fetch(ctx context.Context, req pipeline.FetchRequest) (domain.Observations, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr string
	// RequestTimeout bounds each API request, including every remote call it
	// makes.
	RequestTimeout time.Duration
	Basemap        string
}

// Server exposes health, readiness, metrics, and the site/observation API.
type Server struct {
	httpServer *http.Server
	svc        Service
	basemap    string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /map and
// /api routes.
func NewServer(opts Options, svc Service, logger *slog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: opts.RequestTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:     svc,
		basemap: opts.Basemap,
		logger:  logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(svc))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		r.Use(s.logRequests)

		r.Get("/map", s.handleMap)
		r.Route("/api/sites", func(r chi.Router) {
			r.Get("/", s.handleSites)
			r.Get("/{siteID}/variables", s.handleVariables)
			r.Get("/{siteID}/values", s.handleValues)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
