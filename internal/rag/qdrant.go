package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance. It is the
// optional remote backend for deployments that already run Qdrant; the local
// index engine remains the default. Qdrant scores are cosine similarities,
// already on a fixed [0,1]-comparable scale, so no per-query normalization
// is applied here.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// nextID is the sequential point id assigned on Add, seeded from the
	// collection count at startup.
	nextID uint64
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	store.nextID = uint64(store.Count())

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Add appends embedded chunks to the collection. Point ids continue the
// sequential numbering from the collection's current size.
func (s *QdrantStore) Add(ctx context.Context, vectors [][]float32, metas []ChunkMeta) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("qdrant: %d vectors for %d metadata entries: %w", len(vectors), len(metas), ErrValidation)
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, vec := range vectors {
		meta := metas[i]
		payload := map[string]interface{}{
			"chunk_id":       meta.ChunkID,
			"document_id":    meta.DocumentID,
			"content":        meta.Content,
			"source_file":    meta.SourceFile,
			"page_number":    strconv.Itoa(meta.PageNumber),
			"article_number": meta.ArticleNumber,
			"law_reference":  meta.LawReference,
			"chunk_index":    strconv.Itoa(meta.ChunkIndex),
		}
		for k, v := range meta.Extra {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(s.nextID + uint64(i)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	s.nextID += uint64(len(vectors))

	return nil
}

// Search performs a cosine similarity search and returns up to k hits with
// score >= threshold, descending.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int, threshold float32) ([]SearchResult, error) {
	if s.Count() == 0 {
		return nil, fmt.Errorf("qdrant: collection %q is empty: %w", s.cfg.Collection, ErrNotReady)
	}

	limit := uint64(k)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		meta := payloadToMeta(h.Payload)
		results = append(results, SearchResult{
			ChunkID:         meta.ChunkID,
			Content:         meta.Content,
			SimilarityScore: h.Score,
			Metadata:        meta,
			DocumentID:      meta.DocumentID,
			SourceFile:      meta.SourceFile,
			PageNumber:      meta.PageNumber,
			ArticleNumber:   meta.ArticleNumber,
		})
	}

	return results, nil
}

// payloadToMeta reconstructs a ChunkMeta from a Qdrant point payload.
// Unknown keys land in Extra so round-trips are lossless.
func payloadToMeta(payload map[string]*qdrant.Value) ChunkMeta {
	meta := ChunkMeta{Extra: make(map[string]string)}
	for k, v := range payload {
		sv := v.GetStringValue()
		switch k {
		case "chunk_id":
			meta.ChunkID = sv
		case "document_id":
			meta.DocumentID = sv
		case "content":
			meta.Content = sv
		case "source_file":
			meta.SourceFile = sv
		case "article_number":
			meta.ArticleNumber = sv
		case "law_reference":
			meta.LawReference = sv
		case "page_number":
			meta.PageNumber, _ = strconv.Atoi(sv)
		case "chunk_index":
			meta.ChunkIndex, _ = strconv.Atoi(sv)
		default:
			meta.Extra[k] = sv
		}
	}
	if len(meta.Extra) == 0 {
		meta.Extra = nil
	}
	return meta
}

// Count reports the exact number of points in the collection, or 0 when the
// collection cannot be reached.
func (s *QdrantStore) Count() int {
	exact := true
	n, err := s.client.Count(context.Background(), &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0
	}
	return int(n)
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
