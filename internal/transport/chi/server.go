// Package chi wires the match and health use cases into HTTP handlers.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/metrics"
	healthuc "github.com/careersync/careersync/internal/usecase/health"
	matchuc "github.com/careersync/careersync/internal/usecase/match"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the matching API.
type Server struct {
	matcher       *matchuc.Service
	health        *healthuc.Service
	staticDir     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	matcher *matchuc.Service,
	health *healthuc.Service,
	staticDir string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		matcher:   matcher,
		health:    health,
		staticDir: staticDir,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest,
			"Please provide some information about yourself"),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, "Service not ready"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway,
			"Embedding provider unavailable"),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway,
			"Vector store unavailable"),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/match-careers", s.MatchCareers)
	r.Get("/api/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	if s.staticDir != "" {
		fs := http.FileServer(http.Dir(s.staticDir))
		r.Handle("/*", fs)
	}
}

// matchResponseItem is the wire shape of one ranked match.
type matchResponseItem struct {
	JobTitle        string  `json:"job_title"`
	Description     string  `json:"description"`
	Skills          string  `json:"skills"`
	SimilarityScore float64 `json:"similarity_score"`
	MatchPercentage float64 `json:"match_percentage"`
	Reasoning       string  `json:"reasoning"`
}

// MatchCareers handles POST /api/match-careers.
func (s *Server) MatchCareers(w http.ResponseWriter, r *http.Request) {
	var answers map[string]string
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !s.health.Ready() {
		metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusServiceUnavailable, "Service not ready")
		return
	}

	matches, err := s.matcher.Match(r.Context(), answers)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			metrics.MatchRequestsTotal.WithLabelValues("empty_input").Inc()
		} else {
			metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		}
		s.handleDomainError(w, err)
		return
	}

	items := make([]matchResponseItem, len(matches))
	for i, m := range matches {
		items[i] = matchResponseItem{
			JobTitle:        m.Title,
			Description:     m.Description,
			Skills:          m.Skills,
			SimilarityScore: m.Score,
			MatchPercentage: m.Percentage(),
			Reasoning:       m.Reasoning,
		}
	}

	metrics.MatchRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"matches": items})
}

// HealthCheck handles GET /api/health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.StatusOK {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  report.Status,
		"careers": report.Careers,
		"checks":  report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err, "") {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// sentinelHandler returns an errorHandler matching a single sentinel
// error. The fixed message keeps internals out of client responses.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message)
		return true
	}
}
