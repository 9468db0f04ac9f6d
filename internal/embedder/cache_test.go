package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/rag"
)

func testEmbeddingConfig(provider string) config.EmbeddingConfig {
	return config.EmbeddingConfig{Provider: provider, Model: "test-model"}
}

// stubEmbedder returns a deterministic vector per text and counts how many
// texts reach the backend.
type stubEmbedder struct {
	calls int
	texts int
	fail  bool
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.texts += len(texts)
	if s.fail {
		return nil, errors.New("backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachingEmbedder_Hit(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{}
	c := NewCachingEmbedder(stub, 0)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"vượt đèn đỏ", "nồng độ cồn"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Embed(ctx, []string{"vượt đèn đỏ", "nồng độ cồn"})
	if err != nil {
		t.Fatal(err)
	}

	if stub.texts != 2 {
		t.Errorf("backend saw %d texts, want 2 (second call must be fully cached)", stub.texts)
	}
	for i := range first {
		if first[i][0] != second[i][0] {
			t.Errorf("cached vector %d differs", i)
		}
	}
}

// Whitespace-only differences must hit the same cache entry.
func TestCachingEmbedder_NormalizedKey(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{}
	c := NewCachingEmbedder(stub, 0)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"vượt đèn đỏ"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, []string{"  vượt   đèn \t đỏ "}); err != nil {
		t.Fatal(err)
	}
	if stub.texts != 1 {
		t.Errorf("backend saw %d texts, want 1", stub.texts)
	}
}

func TestCachingEmbedder_PartialMiss(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{}
	c := NewCachingEmbedder(stub, 0)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	out, err := c.Embed(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if stub.texts != 3 {
		t.Errorf("backend saw %d texts, want 3 (1 + 2 misses)", stub.texts)
	}
	// Order is preserved regardless of hit/miss split.
	for i, want := range []float32{1, 2, 3} {
		if out[i][0] != want {
			t.Errorf("out[%d][0] = %v, want %v", i, out[i][0], want)
		}
	}
}

func TestCachingEmbedder_FIFOEviction(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{}
	c := NewCachingEmbedder(stub, 2)
	ctx := context.Background()

	for _, txt := range []string{"a", "bb", "ccc"} {
		if _, err := c.Embed(ctx, []string{txt}); err != nil {
			t.Fatal(err)
		}
	}
	if c.Size() != 2 {
		t.Fatalf("cache size = %d, want 2", c.Size())
	}

	// "a" was evicted, so it must reach the backend again.
	before := stub.texts
	if _, err := c.Embed(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if stub.texts != before+1 {
		t.Error("evicted entry did not re-reach the backend")
	}
}

// A negative bound disables eviction; zero is "not configured" and is
// mapped to DefaultCacheSize by the factory, not here.
func TestCachingEmbedder_NegativeSizeNeverEvicts(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{}
	c := NewCachingEmbedder(stub, -1)
	ctx := context.Background()

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	for _, txt := range texts {
		if _, err := c.Embed(ctx, []string{txt}); err != nil {
			t.Fatal(err)
		}
	}
	if c.Size() != len(texts) {
		t.Fatalf("cache size = %d, want %d", c.Size(), len(texts))
	}

	before := stub.texts
	if _, err := c.Embed(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if stub.texts != before {
		t.Error("cached entry reached the backend again")
	}
}

func TestCachingEmbedder_BackendFailureNotCached(t *testing.T) {
	t.Parallel()
	stub := &stubEmbedder{fail: true}
	c := NewCachingEmbedder(stub, 0)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"a"}); err == nil {
		t.Fatal("expected error from failing backend")
	}
	if c.Size() != 0 {
		t.Errorf("failed batch must not populate the cache, size = %d", c.Size())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), testEmbeddingConfig("smalltalk"))
	if !errors.Is(err, rag.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	t.Parallel()
	for _, provider := range []string{"openai", "gemini"} {
		_, err := New(context.Background(), testEmbeddingConfig(provider))
		if !errors.Is(err, rag.ErrConfiguration) {
			t.Errorf("%s without API key: expected configuration error, got %v", provider, err)
		}
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model string
		want  bool
	}{
		{"nomic-embed-text", false},
		{"text-embedding-3-small", false},
		{"text-embedding-004", false},
		{"gpt-4o", true},
		{"llama3.1:8b", true},
		{"gemini-2.0-flash", true},
	}
	for _, tt := range tests {
		if got := looksLikeChatModel(tt.model); got != tt.want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}
