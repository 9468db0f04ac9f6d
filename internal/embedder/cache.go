package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// DefaultCacheSize is the default entry bound for the embedding cache.
const DefaultCacheSize = 4096

// CachingEmbedder wraps another embedder with a content-hash keyed cache.
// Keys are hashes of whitespace-normalized text so re-embedding a chunk
// that differs only in spacing still hits. The cache is bounded with FIFO
// eviction; a legal corpus is small enough that churn is rare. Safe for
// concurrent use.
type CachingEmbedder struct {
	inner   rag.Embedder
	maxSize int

	mu      sync.Mutex
	entries map[string][]float32
	// order tracks insertion order for FIFO eviction.
	order []string
}

// NewCachingEmbedder wraps inner with a cache of at most maxSize entries.
// maxSize <= 0 means unbounded.
func NewCachingEmbedder(inner rag.Embedder, maxSize int) *CachingEmbedder {
	return &CachingEmbedder{
		inner:   inner,
		maxSize: maxSize,
		entries: make(map[string][]float32),
	}
}

// cacheKey hashes whitespace-normalized text.
func cacheKey(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Embed returns cached vectors where available and forwards only the
// misses to the inner embedder, preserving input order. A batch is cached
// only after the inner call fully succeeds.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int

	c.mu.Lock()
	for i, t := range texts {
		keys[i] = cacheKey(t)
		if vec, ok := c.entries[keys[i]]; ok {
			out[i] = vec
		} else {
			missTexts = append(missTexts, t)
			missIdx = append(missIdx, i)
		}
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, i := range missIdx {
		out[i] = vecs[j]
		if _, ok := c.entries[keys[i]]; !ok {
			c.entries[keys[i]] = vecs[j]
			c.order = append(c.order, keys[i])
		}
	}
	for c.maxSize > 0 && len(c.entries) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.mu.Unlock()

	return out, nil
}

// Size returns the current number of cached vectors.
func (c *CachingEmbedder) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
