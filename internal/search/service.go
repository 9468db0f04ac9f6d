// Package search orchestrates a retrieval query: preprocess the question,
// embed it, search the vector store, and return ranked, metadata-hydrated
// citations.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/textproc"
)

// Options bound a single query.
type Options struct {
	// TopK is the number of results requested; clamped to [1, MaxTopK].
	TopK int
	// Confidence is the minimum similarity score for a hit to be returned.
	Confidence float32
}

// Service answers retrieval queries against a vector store.
type Service struct {
	embedder rag.Embedder
	store    rag.VectorStore
	norm     *textproc.Normalizer

	defaultTopK       int
	maxTopK           int
	defaultConfidence float32
	log               *slog.Logger
}

// Config holds the settings for constructing a Service.
type Config struct {
	DefaultTopK       int
	MaxTopK           int
	DefaultConfidence float32
}

// NewService constructs a Service from the provided dependencies.
func NewService(embedder rag.Embedder, store rag.VectorStore, norm *textproc.Normalizer,
	cfg Config, log *slog.Logger) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("search: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("search: store must not be nil")
	}
	if norm == nil {
		return nil, fmt.Errorf("search: normalizer must not be nil")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 20
	}
	return &Service{
		embedder:          embedder,
		store:             store,
		norm:              norm,
		defaultTopK:       cfg.DefaultTopK,
		maxTopK:           cfg.MaxTopK,
		defaultConfidence: cfg.DefaultConfidence,
		log:               log,
	}, nil
}

// Query runs one retrieval query and returns ranked citations. It never
// returns a partial result set: either the full filtered results or an
// error. An empty result set is a valid outcome, distinct from a search
// failure — callers must present the two differently.
func (s *Service) Query(ctx context.Context, text string, opts Options) ([]rag.SearchResult, error) {
	if text == "" {
		return nil, fmt.Errorf("search: empty query: %w", rag.ErrValidation)
	}

	k := opts.TopK
	if k <= 0 {
		k = s.defaultTopK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}
	confidence := opts.Confidence
	if confidence == 0 {
		confidence = s.defaultConfidence
	}

	processed := s.norm.PreprocessQuery(text)
	if processed == "" {
		return nil, fmt.Errorf("search: query reduced to nothing after cleaning: %w", rag.ErrValidation)
	}

	vectors, err := s.embedder.Embed(ctx, []string{processed})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w: %w", err, rag.ErrSearch)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("search: embedder returned %d vectors for one query: %w",
			len(vectors), rag.ErrSearch)
	}

	results, err := s.store.Search(ctx, vectors[0], k, confidence)
	if err != nil {
		// Validation problems are the caller's to fix; everything else is
		// a search failure.
		if errors.Is(err, rag.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("search: vector search: %w: %w", err, rag.ErrSearch)
	}

	s.log.Debug("search: query served",
		slog.String("query", processed),
		slog.Int("k", k),
		slog.Int("results", len(results)),
	)
	return results, nil
}
