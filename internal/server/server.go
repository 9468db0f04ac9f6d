// Package server exposes the retrieval engine over HTTP: search and
// question-answering endpoints, document listing, health and Prometheus
// metrics. Requests are logged with a per-request id and throttled with a
// per-IP token bucket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/logging"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/search"
)

const (
	defaultHost      = "127.0.0.1"
	defaultPort      = 8080
	defaultRateLimit = 10
	defaultRateBurst = 20

	// maxBodyBytes caps request bodies; queries are short.
	maxBodyBytes = 64 << 10
)

// New constructs a Server. gen and cat may be nil, in which case
// POST /api/ask and GET /api/documents return 503.
func New(q querier, gen answerer, cat catalog.Catalog, cfg *Config, reg prometheus.Registerer) (*Server, error) {
	if q == nil {
		return nil, fmt.Errorf("server: nil querier")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		querier:  q,
		answerer: gen,
		catalog:  cat,
		cfg:      cfg,
		log:      log,
		metrics:  newServerMetrics(reg),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst)
	s.stopRL = stop

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealthz))
	if gatherer, ok := reg.(prometheus.Gatherer); ok {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("POST /api/search", s.requestLogger("search", rl.middleware(http.HandlerFunc(s.handleSearch))))
	mux.Handle("POST /api/ask", s.requestLogger("ask", rl.middleware(http.HandlerFunc(s.handleAsk))))
	mux.Handle("GET /api/documents", s.requestLogger("documents", rl.middleware(http.HandlerFunc(s.handleDocuments))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	s.stopRL()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler returns the server's root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	results, err := s.querier.Query(r.Context(), req.Query, search.Options{
		TopK:       req.TopK,
		Confidence: req.Confidence,
	})
	s.metrics.searchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.searchRequests.WithLabelValues("error").Inc()
		s.writeSearchError(w, r, err)
		return
	}

	resp := searchResponse{Results: results, Count: len(results)}
	if len(results) == 0 {
		s.metrics.searchRequests.WithLabelValues("empty").Inc()
		resp.Results = []rag.SearchResult{}
		resp.Message = rag.MsgNoResults
	} else {
		s.metrics.searchRequests.WithLabelValues("ok").Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "answer generation is not configured")
		return
	}
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	results, err := s.querier.Query(r.Context(), req.Query, search.Options{
		TopK:       req.TopK,
		Confidence: req.Confidence,
	})
	s.metrics.searchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.searchRequests.WithLabelValues("error").Inc()
		s.writeSearchError(w, r, err)
		return
	}
	s.metrics.searchRequests.WithLabelValues("ok").Inc()

	answer, err := s.answerer.Answer(r.Context(), req.Query, results)
	if err != nil {
		logging.FromContext(r.Context()).Error("answer generation failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "answer generation failed")
		return
	}

	if results == nil {
		results = []rag.SearchResult{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer, Results: results})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "document catalog is not configured")
		return
	}
	docs, err := s.catalog.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("catalog list failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView{
			ID:         d.ID,
			Filename:   d.Filename,
			Type:       string(d.Type),
			Status:     string(d.Status),
			ChunkCount: d.ChunkCount,
			Error:      d.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: views})
}

// writeSearchError maps retrieval errors to HTTP statuses. Validation
// failures are the caller's fault; everything else means the service cannot
// answer right now.
func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, rag.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrNotReady), errors.Is(err, rag.ErrSearch):
		log.Error("search failed", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, rag.MsgServiceUnavailable)
	default:
		log.Error("search failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, rag.MsgServiceUnavailable)
	}
}

// decodeBody parses the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
