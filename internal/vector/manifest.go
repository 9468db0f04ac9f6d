package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// manifestVersion identifies the manifest schema.
const manifestVersion = 1

// DocumentSummary is one entry in the manifest's document inventory.
type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Manifest describes a persisted index: its configuration and contents.
// A manifest is written once at save time and superseded, never mutated,
// by the next save. TotalChunks always equals both the index vector count
// and the sum of per-document chunk counts.
type Manifest struct {
	Version        int               `json:"version"`
	CreatedAt      string            `json:"created_at"`
	IndexType      string            `json:"index_type"`
	Dimension      int               `json:"dimension"`
	TotalChunks    int               `json:"total_chunks"`
	EmbeddingModel string            `json:"embedding_model"`
	ChunkSize      int               `json:"chunk_size"`
	ChunkOverlap   int               `json:"chunk_overlap"`
	Documents      []DocumentSummary `json:"documents"`
}

// ManifestParams carries the configuration recorded in the manifest that
// the index itself does not know.
type ManifestParams struct {
	EmbeddingModel string
	ChunkSize      int
	ChunkOverlap   int
}

// buildManifest assembles a manifest from the index and metadata at save
// time. created_at is an ISO-8601 UTC timestamp with a Z suffix.
func buildManifest(ix *Index, meta *MetadataStore, params ManifestParams) Manifest {
	docs := make([]DocumentSummary, 0)
	for _, d := range meta.DocumentCounts() {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })

	return Manifest{
		Version:        manifestVersion,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		IndexType:      ix.Spec().String(),
		Dimension:      ix.Dim(),
		TotalChunks:    ix.Ntotal(),
		EmbeddingModel: params.EmbeddingModel,
		ChunkSize:      params.ChunkSize,
		ChunkOverlap:   params.ChunkOverlap,
		Documents:      docs,
	}
}

// SaveFile writes the manifest as indented JSON.
func (m Manifest) SaveFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("vector: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vector: write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFile reads a manifest JSON file.
func LoadManifestFile(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("vector: read manifest file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("vector: parse manifest file %s: %v: %w", path, err, rag.ErrCorruption)
	}
	return m, nil
}
