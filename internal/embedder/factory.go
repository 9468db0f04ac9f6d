package embedder

import (
	"context"
	"fmt"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGeminiModel = "text-embedding-004"
)

// New constructs a rag.Embedder for the configured backend and composes it
// with a rate limiter (when RPS is set) and a content-hash cache.
func New(ctx context.Context, cfg config.EmbeddingConfig) (rag.Embedder, error) {
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RPS > 0 {
		backend = NewRateLimitedEmbedder(backend, float64(cfg.RPS))
	}

	// Zero means "not configured" and takes the default bound; callers
	// who want an unbounded cache pass a negative size.
	cacheSize := cfg.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	return NewCachingEmbedder(backend, cacheSize), nil
}

func newBackend(ctx context.Context, cfg config.EmbeddingConfig) (rag.Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai requires an API key (EMBEDDING_API_KEY): %w",
				rag.ErrConfiguration)
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: gemini requires an API key (EMBEDDING_API_KEY): %w",
				rag.ErrConfiguration)
		}
		model := cfg.Model
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, fmt.Errorf("embedder: unknown provider %q (valid: ollama, openai, gemini): %w",
			cfg.Provider, rag.ErrConfiguration)
	}
}
