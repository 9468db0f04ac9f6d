package vector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// similarityEpsilon guards the per-query distance normalization against
// division by zero when every hit has distance zero.
const similarityEpsilon = 1e-8

// StoreConfig configures a local vector store.
type StoreConfig struct {
	Dimension int
	IndexType string
	// Nprobe bounds cluster scans for IVF indices; <=0 means 1.
	Nprobe int
	// IndexDir and IndexName locate the persisted file trio
	// <name>.index, <name>_metadata.json, <name>_manifest.json.
	IndexDir  string
	IndexName string
	Manifest  ManifestParams
}

// Store pairs an Index with its MetadataStore behind a read-write lock:
// searches proceed concurrently, indexing excludes everything. It
// implements rag.VectorStore.
type Store struct {
	mu    sync.RWMutex
	index *Index
	meta  *MetadataStore
	cfg   StoreConfig
	log   *slog.Logger
}

var _ rag.VectorStore = (*Store)(nil)

// NewStore allocates an empty store. The index type is validated here so
// a misconfiguration fails at startup, not at first use.
func NewStore(cfg StoreConfig, log *slog.Logger) (*Store, error) {
	spec, err := ParseIndexType(cfg.IndexType)
	if err != nil {
		return nil, err
	}
	ix, err := NewIndex(cfg.Dimension, spec)
	if err != nil {
		return nil, err
	}
	return &Store{index: ix, meta: NewMetadataStore(), cfg: cfg, log: log}, nil
}

// Add appends vectors with their metadata. Each vector receives the next
// sequential id; ids are never reused. The index and metadata counts move
// in lockstep or not at all.
func (s *Store) Add(ctx context.Context, vectors [][]float32, metas []rag.ChunkMeta) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("vector: %d vectors but %d metadata entries: %w",
			len(vectors), len(metas), rag.ErrValidation)
	}
	if len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startID := int64(s.index.Ntotal())
	if err := s.index.Add(vectors); err != nil {
		return err
	}
	s.meta.Add(startID, metas)

	s.log.Debug("vector: added batch",
		slog.Int("count", len(vectors)),
		slog.Int64("start_id", startID),
		slog.Int("total", s.index.Ntotal()),
	)
	return nil
}

// Train clusters an IVF index on the given vectors. Safe no-op for flat
// or already-trained indices.
func (s *Store) Train(ctx context.Context, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Train(vectors)
}

// Search returns up to k hits with similarity at or above threshold,
// sorted descending by similarity and hydrated with metadata. Similarity
// is derived from L2 distance by per-query normalization
// (1 - d/(max_d + eps)), so scores compare within one query's results
// only, never across queries.
func (s *Store) Search(ctx context.Context, query []float32, k int, threshold float32) ([]rag.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("vector: k must be positive, got %d: %w", k, rag.ErrValidation)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, dists, err := s.index.Search(query, k, s.cfg.Nprobe)
	if err != nil {
		return nil, err
	}

	// The max runs over all k slots, padded ones included. When fewer
	// than k vectors exist the MaxFloat32 pad dominates and every real
	// hit normalizes to a similarity near 1.
	var maxDist float32
	for _, d := range dists {
		if d > maxDist {
			maxDist = d
		}
	}

	results := make([]rag.SearchResult, 0, k)
	for i, id := range ids {
		if id == noMatchID {
			continue
		}
		sim := 1 - dists[i]/(maxDist+similarityEpsilon)
		if sim < threshold {
			continue
		}
		meta := s.meta.Get(id)
		results = append(results, rag.SearchResult{
			ChunkID:         meta.ChunkID,
			Content:         meta.Content,
			SimilarityScore: sim,
			Metadata:        meta,
			DocumentID:      meta.DocumentID,
			SourceFile:      meta.SourceFile,
			PageNumber:      meta.PageNumber,
			ArticleNumber:   meta.ArticleNumber,
		})
	}
	return results, nil
}

// Count returns the number of indexed vectors.
// Trained reports whether the index is trained and searchable.
func (s *Store) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Trained()
}

// MetadataCount reports the number of metadata entries. It can lag Count
// after loading an index whose metadata file was lost.
func (s *Store) MetadataCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Count()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Ntotal()
}

// Metadata returns the metadata entry for a vector id.
func (s *Store) Metadata(id int64) rag.ChunkMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Get(id)
}

// Close releases nothing for the in-memory store; it satisfies
// rag.VectorStore.
func (s *Store) Close() error { return nil }

func (s *Store) indexPath() string {
	return filepath.Join(s.cfg.IndexDir, s.cfg.IndexName+".index")
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.cfg.IndexDir, s.cfg.IndexName+"_metadata.json")
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.cfg.IndexDir, s.cfg.IndexName+"_manifest.json")
}

// Save persists the index binary, the metadata JSON, and a freshly built
// manifest into the configured directory.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.cfg.IndexDir, 0o755); err != nil {
		return fmt.Errorf("vector: create index dir: %w", err)
	}
	if err := s.index.SaveFile(s.indexPath()); err != nil {
		return err
	}
	if err := s.meta.SaveFile(s.metadataPath()); err != nil {
		return err
	}
	manifest := buildManifest(s.index, s.meta, s.cfg.Manifest)
	if err := manifest.SaveFile(s.manifestPath()); err != nil {
		return err
	}

	s.log.Info("vector: saved index",
		slog.String("dir", s.cfg.IndexDir),
		slog.String("name", s.cfg.IndexName),
		slog.Int("total_chunks", manifest.TotalChunks),
	)
	return nil
}

// Load restores a persisted store. A missing index file is ErrCorruption;
// a missing metadata file degrades to an empty metadata store with a
// warning, so a partially written save is still searchable.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix, err := LoadFile(s.indexPath())
	if err != nil {
		return err
	}
	if ix.Dim() != s.cfg.Dimension {
		return fmt.Errorf("vector: index dimension %d does not match configured %d: %w",
			ix.Dim(), s.cfg.Dimension, rag.ErrConfiguration)
	}

	meta, err := LoadMetadataFile(s.metadataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("vector: metadata file missing, continuing with empty metadata",
				slog.String("path", s.metadataPath()))
			meta = NewMetadataStore()
		} else {
			return err
		}
	}

	s.index = ix
	s.meta = meta
	s.log.Info("vector: loaded index",
		slog.String("name", s.cfg.IndexName),
		slog.Int("total_chunks", ix.Ntotal()),
		slog.Int("metadata_entries", meta.Count()),
	)
	return nil
}

// LoadManifest reads the manifest saved next to the index, when present.
func (s *Store) LoadManifest() (Manifest, error) {
	return LoadManifestFile(s.manifestPath())
}
