package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/search/request"
	"github.com/ayurkosh/plantsearch/internal/domain/search/result"
	"github.com/ayurkosh/plantsearch/internal/metrics"
	healthuc "github.com/ayurkosh/plantsearch/internal/usecase/health"
	searchuc "github.com/ayurkosh/plantsearch/internal/usecase/search"
)

// maxBodyBytes bounds the search request body.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the plant search HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	apiKeys       []string
	maxTopK       int
	errorHandlers []errorHandler
}

// Option configures the server.
type Option func(*Server)

// WithAPIKeys enables bearer authentication.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) { s.apiKeys = keys }
}

// WithMaxTopK caps top_k. Defaults to request.MaxTopK.
func WithMaxTopK(n int) Option {
	return func(s *Server) { s.maxTopK = n }
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:  search,
		health:  health,
		logger:  logger,
		maxTopK: request.MaxTopK,
	}
	for _, o := range opts {
		o(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrUpstreamTimeout, http.StatusGatewayTimeout),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway),
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/api/search_plants", s.SearchPlants)
	r.Get("/api/suggest-plants", s.SuggestPlants)
	r.Get("/api/search-plant", s.GetPlant)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// searchBody is the POST /api/search_plants payload.
type searchBody struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// SearchPlants handles POST /api/search_plants.
func (s *Server) SearchPlants(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := request.New(body.Query, body.TopK, s.maxTopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if results == nil {
		results = []result.Result{}
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, results)
}

// SuggestParams are the GET /api/suggest-plants query parameters.
type SuggestParams struct {
	Query string
	Limit *int
}

// SuggestPlants handles GET /api/suggest-plants.
func (s *Server) SuggestPlants(w http.ResponseWriter, r *http.Request) {
	var params SuggestParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "query", q, &params.Query); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid format for parameter query: %s", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &params.Limit); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid format for parameter limit: %s", err))
		return
	}

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	out, err := s.search.Suggest(r.Context(), params.Query, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPlant handles GET /api/search-plant.
func (s *Server) GetPlant(w http.ResponseWriter, r *http.Request) {
	var name string
	if err := runtime.BindQueryParameter("form", true, true, "name", r.URL.Query(), &name); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rec, err := s.search.Lookup(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrNotFound,
		domain.ErrUnavailable,
		domain.ErrUpstreamTimeout,
		domain.ErrUpstream,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
