// Package rag defines the contracts shared by the retrieval pipeline:
// embedding, vector storage, and search. Concrete implementations (the local
// index engine, Qdrant, the embedding backends) satisfy these interfaces so
// the orchestration layers never depend on a specific backend.
package rag

import (
	"context"
)

// ChunkMeta is the metadata recorded for every indexed vector. It is a copy
// of the owning chunk's citation data — once a chunk is dispatched to
// indexing, its Document may be discarded and ChunkMeta remains the source
// of truth for hydration.
type ChunkMeta struct {
	// ChunkID uniquely identifies the chunk (e.g. "<document_id>_chunk_3").
	ChunkID string `json:"chunk_id"`

	// DocumentID identifies the document the chunk was cut from.
	DocumentID string `json:"document_id"`

	// Content is the chunk text as indexed.
	Content string `json:"content"`

	// SourceFile is the filename of the originating document.
	SourceFile string `json:"source_file"`

	// PageNumber is the 1-based page the chunk starts on (0 = unknown).
	PageNumber int `json:"page_number"`

	// ArticleNumber is the legal article label (e.g. "Điều 5"), if detected.
	ArticleNumber string `json:"article_number"`

	// LawReference is the law/decree identifier (e.g. "100/2019/NĐ-CP").
	LawReference string `json:"law_reference"`

	// ChunkIndex is the chunk's position within its document, starting at 0.
	ChunkIndex int `json:"chunk_index"`

	// Extra holds arbitrary additional key-value metadata.
	Extra map[string]string `json:"extra,omitempty"`
}

// SearchResult is a single similarity-search hit, hydrated with citation
// metadata. It is a transient view produced by the search path and is never
// persisted.
type SearchResult struct {
	// ChunkID identifies the matching chunk.
	ChunkID string `json:"chunk_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// SimilarityScore is normalized to [0,1], higher = more similar.
	// Scores are normalized per query (relative to the worst hit in the
	// same result batch) and are NOT comparable across queries.
	SimilarityScore float32 `json:"similarity_score"`

	// Metadata is the full metadata record for the chunk.
	Metadata ChunkMeta `json:"metadata"`

	// Denormalized citation fields for direct use by answer generation.
	DocumentID    string `json:"document_id"`
	SourceFile    string `json:"source_file"`
	PageNumber    int    `json:"page_number"`
	ArticleNumber string `json:"article_number"`
}

// Embedder converts text into dense vector embeddings of a fixed dimension.
// The embedding model is bound at construction time.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input: one vector per text, in
	// input order. Backend failures wrap ErrEmbedding.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists embeddings with their chunk metadata and serves
// similarity search over them. Implementations must be safe to call from
// multiple goroutines: readers proceed concurrently, a writer excludes all
// other access.
type VectorStore interface {
	// Add appends vectors with their parallel metadata entries. Each vector
	// receives the next sequential integer id; ids are never reused.
	// Returns an error wrapping ErrValidation when the slices differ in length.
	Add(ctx context.Context, vectors [][]float32, metas []ChunkMeta) error

	// Search returns up to k hits with SimilarityScore >= threshold, sorted
	// by descending similarity. Returns an error wrapping ErrNotReady when
	// the store holds no vectors.
	Search(ctx context.Context, query []float32, k int, threshold float32) ([]SearchResult, error)

	// Count reports the number of vectors currently stored.
	Count() int

	// Close releases any resources held by the store.
	Close() error
}
