package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/embedder"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/search"
	"github.com/luatgt/luatgt-go/internal/textproc"
	"github.com/luatgt/luatgt-go/internal/vector"
)

// buildNormalizer constructs the text normalizer from config.
func buildNormalizer(cfg *config.Config, log *slog.Logger) *textproc.Normalizer {
	return textproc.NewNormalizer(cfg.Text.StopwordsFile, cfg.Text.RemoveStopwords, log)
}

// buildEmbedder constructs the configured embedding provider, wrapped with
// caching and optional rate limiting.
func buildEmbedder(ctx context.Context, cfg *config.Config, log *slog.Logger) (rag.Embedder, error) {
	embedder.Validate(cfg.Embedding, log)
	return embedder.New(ctx, cfg.Embedding)
}

// newLocalStore constructs an empty local vector store from config.
func newLocalStore(cfg *config.Config, log *slog.Logger) (*vector.Store, error) {
	return vector.NewStore(vector.StoreConfig{
		Dimension: cfg.Embedding.Dimensions,
		IndexType: cfg.Vector.IndexType,
		Nprobe:    cfg.Vector.Nprobe,
		IndexDir:  cfg.Vector.IndexDir,
		IndexName: cfg.Vector.IndexName,
		Manifest: vector.ManifestParams{
			EmbeddingModel: cfg.Embedding.Model,
			ChunkSize:      cfg.Text.ChunkSize,
			ChunkOverlap:   cfg.Text.ChunkOverlap,
		},
	}, log)
}

// buildSearchStore returns the vector store for serving queries. The local
// backend loads the persisted index from disk; the qdrant backend connects
// to the remote collection. The returned closer releases the store.
func buildSearchStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (rag.VectorStore, func(), error) {
	if cfg.Vector.Backend == "qdrant" {
		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			Collection: cfg.Qdrant.Collection,
			VectorSize: uint64(cfg.Embedding.Dimensions), //nolint:gosec // dimensions are bounded
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.TLS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Qdrant.Host, cfg.Qdrant.Port, err)
		}
		return qs, func() { _ = qs.Close() }, nil
	}

	store, err := newLocalStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("load index from %s: %w", cfg.Vector.IndexDir, err)
	}
	return store, func() {}, nil
}

// buildSearchService wires the embedder, loaded store and normalizer into a
// ready search service. The returned closer releases the store.
func buildSearchService(ctx context.Context, cfg *config.Config, log *slog.Logger) (*search.Service, func(), error) {
	emb, err := buildEmbedder(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	store, closeStore, err := buildSearchStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	svc, err := search.NewService(emb, store, buildNormalizer(cfg, log), search.Config{
		DefaultTopK:       cfg.Vector.TopK,
		MaxTopK:           config.MaxTopK,
		DefaultConfidence: cfg.Vector.Confidence,
	}, log)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

// openCatalog opens the document registry, or returns nil when disabled.
// The returned closer is always safe to call.
func openCatalog(cfg *config.Config, log *slog.Logger) (catalog.Catalog, func()) {
	path := cfg.Catalog.DBPath
	if path == "disabled" {
		log.Info("catalog: disabled via CATALOG_DB=disabled")
		return nil, func() {}
	}
	if path == "" {
		var err error
		path, err = catalog.DefaultDBPath()
		if err != nil {
			log.Warn("catalog: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}
	cat, err := catalog.Open(path)
	if err != nil {
		log.Warn("catalog: failed to open, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("catalog: opened", slog.String("path", path))
	return cat, func() { _ = cat.Close() }
}
