package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// QueryService answers the dashboard queries.
type QueryService interface {
	sharedobs.ReadinessChecker
	Defaults() pipeline.Settings
	Status() pipeline.Status
	Fields() []domain.FieldSummary
	Areas() []domain.AreaSummary
	Weekly(ctx context.Context, q pipeline.WeeklyQuery) ([]domain.WeeklyRecord, error)
	Area(ctx context.Context, q pipeline.AreaQuery) ([]domain.AreaRecord, error)
	Comparison(ctx context.Context, q pipeline.ComparisonQuery) (pipeline.Comparison, error)
}

// Server exposes the query API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        QueryService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 query routes.
func NewServer(addr string, svc QueryService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/dataset", s.handleDataset)
	mux.HandleFunc("GET /v1/fields", s.handleFields)
	mux.HandleFunc("GET /v1/areas", s.handleAreas)
	mux.HandleFunc("GET /v1/fields/{fieldKey}/weekly", s.handleFieldWeekly)
	mux.HandleFunc("GET /v1/fields/{fieldKey}/comparison", s.handleComparison)
	mux.HandleFunc("GET /v1/areas/{area}/weekly", s.handleAreaWeekly)

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

func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Fields())
}

func (s *Server) handleAreas(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Areas())
}

func (s *Server) handleFieldWeekly(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r, s.svc.Defaults())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.svc.Weekly(r.Context(), pipeline.WeeklyQuery{
		Settings: p.settings,
		FieldKey: r.PathValue("fieldKey"),
		Years:    p.years,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAreaWeekly(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r, s.svc.Defaults())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.svc.Area(r.Context(), pipeline.AreaQuery{
		Settings:      p.settings,
		SupplyArea:    r.PathValue("area"),
		ExcludeFields: p.exclude,
		Years:         p.years,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	p, err := parseParams(r, s.svc.Defaults())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(p.years) > 1 {
		s.writeError(w, r, badRequest("comparison takes a single year"))
		return
	}
	q := pipeline.ComparisonQuery{Settings: p.settings, FieldKey: r.PathValue("fieldKey")}
	if len(p.years) == 1 {
		q.Year = p.years[0]
	}
	cmp, err := s.svc.Comparison(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("query failed", "path", r.URL.Path, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var bad *paramError
	switch {
	case errors.As(err, &bad),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, domain.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnknownField), errors.Is(err, pipeline.ErrUnknownArea):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v before touching the response so an encoding failure
// still produces a 500 instead of a truncated 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode response"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck // best-effort response
}
