package embedder

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// RateLimitedEmbedder throttles calls to a remote embedding backend. One
// token is taken per Embed call, not per text, since backends price and
// limit by request.
type RateLimitedEmbedder struct {
	inner   rag.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner with a limiter of rps requests per
// second and a burst of one.
func NewRateLimitedEmbedder(inner rag.Embedder, rps float64) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for limiter clearance, then forwards to the inner embedder.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedder: rate limiter: %w", err)
	}
	return r.inner.Embed(ctx, texts)
}
