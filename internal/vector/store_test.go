package vector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luatgt/luatgt-go/internal/rag"
)

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	if cfg.Dimension == 0 {
		cfg.Dimension = 3
	}
	if cfg.IndexType == "" {
		cfg.IndexType = "Flat"
	}
	if cfg.IndexDir == "" {
		cfg.IndexDir = t.TempDir()
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "test"
	}
	s, err := NewStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func trafficMeta(chunkID, docID, article string) rag.ChunkMeta {
	return rag.ChunkMeta{
		ChunkID:       chunkID,
		DocumentID:    docID,
		Content:       article + " quy định về xử phạt vi phạm giao thông.",
		SourceFile:    "nghi-dinh-100.pdf",
		ArticleNumber: article,
	}
}

func TestStore_AddLengthMismatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})

	err := s.Add(context.Background(), [][]float32{{1, 0, 0}}, nil)
	if !errors.Is(err, rag.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("rejected add must not change count, got %d", s.Count())
	}
}

func TestStore_SearchEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})
	_, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, 0)
	if !errors.Is(err, rag.ErrNotReady) {
		t.Errorf("expected not-ready error, got %v", err)
	}
}

// With fewer stored vectors than k, the padded slots dominate the
// per-query max distance, so every real hit scores near 1 and survives
// a high confidence threshold.
func TestStore_SearchFewerVectorsThanK(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})

	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}}
	metas := []rag.ChunkMeta{
		trafficMeta("c0", "doc-1", "Điều 5"),
		trafficMeta("c1", "doc-1", "Điều 6"),
	}
	if err := s.Add(context.Background(), vecs, metas); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want both stored vectors", len(results))
	}
	for _, r := range results {
		if r.SimilarityScore < 0.99 {
			t.Errorf("result %s: score %v, want near 1", r.ChunkID, r.SimilarityScore)
		}
	}
}

func TestStore_SearchProperties(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})

	vecs := [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.5, 0},
	}
	metas := make([]rag.ChunkMeta, len(vecs))
	for i := range metas {
		metas[i] = trafficMeta("c"+string(rune('0'+i)), "doc-1", "Điều 5")
	}
	if err := s.Add(context.Background(), vecs, metas); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 3 {
		t.Fatalf("got %d results, want at most 3", len(results))
	}
	for i, r := range results {
		if r.SimilarityScore < 0 || r.SimilarityScore > 1 {
			t.Errorf("result %d: score %v out of [0,1]", i, r.SimilarityScore)
		}
		if i > 0 && r.SimilarityScore > results[i-1].SimilarityScore {
			t.Errorf("results not sorted by descending similarity: %v then %v",
				results[i-1].SimilarityScore, r.SimilarityScore)
		}
	}
	if results[0].ChunkID != "c0" {
		t.Errorf("top result = %s, want c0", results[0].ChunkID)
	}

	// A high threshold must filter, never error.
	filtered, err := s.Search(context.Background(), []float32{1, 0, 0}, 3, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range filtered {
		if r.SimilarityScore < 0.99 {
			t.Errorf("result below threshold: %v", r.SimilarityScore)
		}
	}
}

// Three indexed articles with a deterministic embedding per article: the
// query vector sits closest to the first, so k=2 returns exactly two
// results with the first ranked on top.
func TestStore_EndToEndArticleScenario(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})

	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	metas := []rag.ChunkMeta{
		trafficMeta("doc-1_chunk_0", "doc-1", "Điều 5"),
		trafficMeta("doc-1_chunk_1", "doc-1", "Điều 6"),
		trafficMeta("doc-1_chunk_2", "doc-1", "Điều 7"),
	}
	if err := s.Add(context.Background(), vecs, metas); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(context.Background(), []float32{0.95, 0.05, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ArticleNumber != "Điều 5" {
		t.Errorf("top result = %s, want Điều 5", results[0].ArticleNumber)
	}
	if results[0].SimilarityScore <= results[1].SimilarityScore {
		t.Errorf("top result not strictly more similar: %v vs %v",
			results[0].SimilarityScore, results[1].SimilarityScore)
	}
	if !strings.Contains(results[0].Content, "quy định") {
		t.Errorf("content not hydrated: %q", results[0].Content)
	}
}

func TestStore_MetadataPlaceholder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{})

	meta := s.Metadata(42)
	if meta.ChunkID != "chunk_42" {
		t.Errorf("placeholder chunk id = %q, want chunk_42", meta.ChunkID)
	}
	if meta.Content != "" {
		t.Errorf("placeholder content must be empty, got %q", meta.Content)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := StoreConfig{
		Dimension: 3,
		IndexType: "Flat",
		IndexDir:  dir,
		IndexName: "traffic_law",
		Manifest: ManifestParams{
			EmbeddingModel: "amazon.titan-embed-text-v2:0",
			ChunkSize:      512,
			ChunkOverlap:   50,
		},
	}
	s := newTestStore(t, cfg)

	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	metas := []rag.ChunkMeta{
		trafficMeta("a", "doc-1", "Điều 5"),
		trafficMeta("b", "doc-1", "Điều 6"),
		trafficMeta("c", "doc-2", "Điều 7"),
	}
	ctx := context.Background()
	if err := s.Add(ctx, vecs, metas); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"traffic_law.index", "traffic_law_metadata.json", "traffic_law_manifest.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	query := []float32{0.9, 0.1, 0}
	want, err := s.Search(ctx, query, 3, 0)
	if err != nil {
		t.Fatal(err)
	}

	restored := newTestStore(t, cfg)
	if err := restored.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if restored.Count() != s.Count() {
		t.Fatalf("count = %d, want %d", restored.Count(), s.Count())
	}
	got, err := restored.Search(ctx, query, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ChunkID != want[i].ChunkID || got[i].SimilarityScore != want[i].SimilarityScore {
			t.Errorf("result %d: got (%s, %v), want (%s, %v)",
				i, got[i].ChunkID, got[i].SimilarityScore, want[i].ChunkID, want[i].SimilarityScore)
		}
		if got[i].ArticleNumber != want[i].ArticleNumber {
			t.Errorf("result %d metadata: got %s, want %s",
				i, got[i].ArticleNumber, want[i].ArticleNumber)
		}
	}
}

func TestStore_Manifest(t *testing.T) {
	t.Parallel()

	cfg := StoreConfig{
		Dimension: 3,
		IndexType: "Flat",
		IndexDir:  t.TempDir(),
		IndexName: "traffic_law",
		Manifest:  ManifestParams{EmbeddingModel: "test-model", ChunkSize: 512, ChunkOverlap: 50},
	}
	s := newTestStore(t, cfg)

	ctx := context.Background()
	err := s.Add(ctx,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]rag.ChunkMeta{
			trafficMeta("a", "doc-1", "Điều 5"),
			trafficMeta("b", "doc-1", "Điều 6"),
			trafficMeta("c", "doc-2", "Điều 7"),
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	m, err := s.LoadManifest()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalChunks != s.Count() {
		t.Errorf("total_chunks = %d, want %d", m.TotalChunks, s.Count())
	}
	sum := 0
	for _, d := range m.Documents {
		sum += d.ChunkCount
	}
	if sum != m.TotalChunks {
		t.Errorf("document chunk counts sum to %d, want %d", sum, m.TotalChunks)
	}
	if len(m.Documents) != 2 {
		t.Errorf("got %d documents, want 2", len(m.Documents))
	}
	created, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		t.Errorf("created_at %q not RFC 3339: %v", m.CreatedAt, err)
	} else if created.Location() != time.UTC {
		t.Errorf("created_at %q not UTC", m.CreatedAt)
	}
	if m.IndexType != "Flat" || m.EmbeddingModel != "test-model" {
		t.Errorf("manifest config not recorded: %+v", m)
	}
}

func TestStore_LoadMissingIndex(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, StoreConfig{IndexDir: t.TempDir()})
	if err := s.Load(context.Background()); !errors.Is(err, rag.ErrCorruption) {
		t.Errorf("expected corruption error, got %v", err)
	}
}

// A save whose metadata file was lost must still load the index, with
// empty metadata and placeholder hydration.
func TestStore_LoadMissingMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := StoreConfig{Dimension: 3, IndexType: "Flat", IndexDir: dir, IndexName: "test"}
	s := newTestStore(t, cfg)

	ctx := context.Background()
	if err := s.Add(ctx, [][]float32{{1, 0, 0}}, []rag.ChunkMeta{trafficMeta("a", "doc-1", "Điều 5")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "test_metadata.json")); err != nil {
		t.Fatal(err)
	}

	restored := newTestStore(t, cfg)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load must tolerate missing metadata: %v", err)
	}
	if restored.Count() != 1 {
		t.Fatalf("count = %d, want 1", restored.Count())
	}
	results, err := restored.Search(ctx, []float32{1, 0, 0}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "chunk_0" {
		t.Errorf("expected placeholder hydration, got %+v", results)
	}
}

func TestStore_DimensionMismatchOnLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newTestStore(t, StoreConfig{Dimension: 3, IndexDir: dir})
	ctx := context.Background()
	if err := s.Add(ctx, [][]float32{{1, 0, 0}}, []rag.ChunkMeta{trafficMeta("a", "d", "Điều 5")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	other := newTestStore(t, StoreConfig{Dimension: 4, IndexDir: dir})
	if err := other.Load(ctx); !errors.Is(err, rag.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
