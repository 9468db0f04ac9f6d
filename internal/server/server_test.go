package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/search"
)

type stubQuerier struct {
	results []rag.SearchResult
	err     error

	lastText string
	lastOpts search.Options
}

func (q *stubQuerier) Query(_ context.Context, text string, opts search.Options) ([]rag.SearchResult, error) {
	q.lastText = text
	q.lastOpts = opts
	if q.err != nil {
		return nil, q.err
	}
	return q.results, nil
}

type stubAnswerer struct {
	answer string
	err    error
	called bool
}

func (a *stubAnswerer) Answer(_ context.Context, _ string, _ []rag.SearchResult) (string, error) {
	a.called = true
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, q querier, gen answerer, cat catalog.Catalog) *Server {
	t.Helper()
	srv, err := New(q, gen, cat, &Config{Logger: discardLogger()}, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleResults() []rag.SearchResult {
	return []rag.SearchResult{
		{
			ChunkID:         "d1_chunk_0",
			Content:         "Điều 5. Xử phạt người điều khiển xe ô tô vi phạm quy tắc giao thông.",
			SimilarityScore: 0.95,
			Metadata: rag.ChunkMeta{
				ChunkID:    "d1_chunk_0",
				DocumentID: "d1",
				SourceFile: "nd100.txt",
			},
		},
	}
}

func Test_Server_Search(t *testing.T) {
	t.Parallel()

	q := &stubQuerier{results: sampleResults()}
	srv := newTestServer(t, q, nil, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/search",
		searchRequest{Query: "mức phạt vượt đèn đỏ", TopK: 3, Confidence: 0.4})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("count = %d, results = %d, want 1 each", resp.Count, len(resp.Results))
	}
	if resp.Message != "" {
		t.Errorf("message = %q, want empty for non-empty results", resp.Message)
	}
	if q.lastText != "mức phạt vượt đèn đỏ" {
		t.Errorf("query text = %q", q.lastText)
	}
	if q.lastOpts.TopK != 3 || q.lastOpts.Confidence != 0.4 {
		t.Errorf("options = %+v", q.lastOpts)
	}
}

func Test_Server_Search_Empty(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubQuerier{}, nil, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/search",
		searchRequest{Query: "câu hỏi không liên quan"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
	if resp.Message != rag.MsgNoResults {
		t.Errorf("message = %q, want %q", resp.Message, rag.MsgNoResults)
	}
	if resp.Results == nil {
		t.Error("results should be an empty array, not null")
	}
}

func Test_Server_Search_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", rag.ErrValidation, http.StatusBadRequest},
		{"not ready", rag.ErrNotReady, http.StatusServiceUnavailable},
		{"search failure", rag.ErrSearch, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, &stubQuerier{err: tt.err}, nil, nil)
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/search",
				searchRequest{Query: "x"})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func Test_Server_Search_BadBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubQuerier{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func Test_Server_Ask(t *testing.T) {
	t.Parallel()

	gen := &stubAnswerer{answer: "Theo Điều 5, mức phạt là 4-6 triệu đồng."}
	srv := newTestServer(t, &stubQuerier{results: sampleResults()}, gen, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ask",
		askRequest{Query: "mức phạt vượt đèn đỏ với ô tô?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != gen.answer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}
}

func Test_Server_Ask_NotConfigured(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubQuerier{}, nil, nil)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ask", askRequest{Query: "x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func Test_Server_Ask_GenerationFailure(t *testing.T) {
	t.Parallel()

	gen := &stubAnswerer{err: errors.New("model timeout")}
	srv := newTestServer(t, &stubQuerier{results: sampleResults()}, gen, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/ask", askRequest{Query: "x"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func Test_Server_Documents(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	ctx := context.Background()
	if err := cat.Register(ctx, catalog.Document{ID: "d1", Filename: "nd100.txt", Type: catalog.TypeTXT}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := cat.SetCompleted(ctx, "d1", 42); err != nil {
		t.Fatalf("set completed: %v", err)
	}
	if err := cat.Register(ctx, catalog.Document{ID: "d2", Filename: "nd168.txt", Type: catalog.TypeTXT}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := cat.SetFailed(ctx, "d2", "embedding provider unreachable"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	srv := newTestServer(t, &stubQuerier{}, nil, cat)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp documentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(resp.Documents))
	}
	byID := make(map[string]documentView, len(resp.Documents))
	for _, d := range resp.Documents {
		byID[d.ID] = d
	}
	if d := byID["d1"]; d.Status != "COMPLETED" || d.ChunkCount != 42 || d.Error != "" {
		t.Errorf("completed document = %+v", d)
	}
	if d := byID["d2"]; d.Status != "FAILED" || d.Error != "embedding provider unreachable" {
		t.Errorf("failed document = %+v", d)
	}
}

func Test_Server_Healthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubQuerier{}, nil, nil)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func Test_Server_RateLimit(t *testing.T) {
	t.Parallel()

	srv, err := New(&stubQuerier{}, nil, nil,
		&Config{Logger: discardLogger(), RateLimit: 1, RateBurst: 2},
		prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	limited := false
	for i := 0; i < 5; i++ {
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/search",
			searchRequest{Query: "x"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if ra := rec.Header().Get("Retry-After"); ra == "" {
				t.Error("429 response missing Retry-After header")
			}
			break
		}
	}
	if !limited {
		t.Error("burst of 5 requests with burst limit 2 never hit 429")
	}
}
