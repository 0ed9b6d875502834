// Package chi serves the HTTP API.
package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/metrics"
	healthuc "github.com/kailas-cloud/corpintel/internal/usecase/health"
)

const maxDocumentsPerRequest = 100

// Server implements the HTTP handlers.
type Server struct {
	analyzer Analyzer
	ingestor Ingestor
	corpus   CorpusAdmin
	health   HealthChecker
	apiKeys  []string
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	analyzer Analyzer,
	ingestor Ingestor,
	corpus CorpusAdmin,
	health HealthChecker,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	return &Server{
		analyzer: analyzer,
		ingestor: ingestor,
		corpus:   corpus,
		health:   health,
		apiKeys:  apiKeys,
		logger:   logger,
	}
}

// Routes builds the router with the middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(wideEvent(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.Analyze)
		r.Post("/retrieve", s.Retrieve)
		r.Get("/scenarios", s.ListScenarios)
		r.Post("/documents", s.AddDocuments)
		r.Get("/documents/count", s.CountDocuments)
		r.Delete("/documents", s.ClearDocuments)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// Analyze handles POST /v1/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), nil, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Retrieve handles POST /v1/retrieve: the evidence an analysis would use,
// without generation.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ev, err := s.analyzer.Gather(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveToDTO(ev))
}

// ListScenarios handles GET /v1/scenarios.
func (s *Server) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ScenarioListResponse{Items: scenario.All()})
}

// AddDocuments handles POST /v1/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var body AddDocumentsRequest
	if !decode(w, r, &body) {
		return
	}
	if len(body.Documents) == 0 || len(body.Documents) > maxDocumentsPerRequest {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("documents count must be between 1 and %d", maxDocumentsPerRequest))
		return
	}

	rep := s.ingestor.Ingest(r.Context(), body.Documents)
	writeJSON(w, http.StatusOK, rep)
}

// CountDocuments handles GET /v1/documents/count.
func (s *Server) CountDocuments(w http.ResponseWriter, r *http.Request) {
	n, err := s.corpus.Count(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// ClearDocuments handles DELETE /v1/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.corpus.Clear(r.Context()); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
