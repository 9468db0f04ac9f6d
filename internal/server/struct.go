package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/search"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	Logger *slog.Logger
	// RateLimit is the sustained request rate allowed per IP on the API
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
}

// querier is the interface handleSearch and handleAsk call to retrieve
// citations. *search.Service satisfies it; tests inject a fake.
type querier interface {
	Query(ctx context.Context, text string, opts search.Options) ([]rag.SearchResult, error)
}

// answerer is the interface handleAsk calls to generate an answer from
// retrieved citations.
type answerer interface {
	Answer(ctx context.Context, question string, results []rag.SearchResult) (string, error)
}

// Server exposes retrieval and question answering over HTTP.
type Server struct {
	querier  querier
	answerer answerer
	// catalog lists ingested documents for GET /api/documents; may be nil.
	catalog catalog.Catalog

	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	metrics    *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the user's question in Vietnamese.
	Query string `json:"query"`
	// TopK is the number of results requested (0 = server default).
	TopK int `json:"top_k,omitempty"`
	// Confidence is the minimum similarity score (0 = server default).
	Confidence float32 `json:"confidence,omitempty"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	Results []rag.SearchResult `json:"results"`
	Count   int                `json:"count"`
	// Message carries the user-facing Vietnamese message when Results is
	// empty.
	Message string `json:"message,omitempty"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	Query      string  `json:"query"`
	TopK       int     `json:"top_k,omitempty"`
	Confidence float32 `json:"confidence,omitempty"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	Answer  string             `json:"answer"`
	Results []rag.SearchResult `json:"results"`
}

// errorResponse is the JSON body for error statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	Documents []documentView `json:"documents"`
}

// documentView is one catalog entry rendered for the API.
type documentView struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}
