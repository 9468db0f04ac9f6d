package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/ingest"
	"github.com/luatgt/luatgt-go/internal/logging"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/vector"
)

// NewIndexCmd constructs the `luatgt index` command, which chunks and embeds
// legal documents into the vector index.
func NewIndexCmd() *cobra.Command {
	var appendMode bool

	cmd := &cobra.Command{
		Use:   "index [files...]",
		Short: "Index legal documents into the vector store",
		Long: `Chunk, embed and index one or more legal documents (.txt, .md, .html).

By default a fresh index is built and saved to INDEX_DIR, replacing any
existing one. Use --append to extend a previously saved index instead.

Environment variables:
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, gemini (default: ollama)
  EMBEDDING_MODEL      Embedding model name
  INDEX_TYPE           Index layout: Flat or IVF<nlist>,Flat (default: Flat)
  INDEX_DIR            Directory for the persisted index files (default: data/index)
  CHUNK_SIZE           Maximum characters per chunk (default: 512)
  CHUNK_OVERLAP        Characters carried between chunks (default: 50)

Examples:
  luatgt index data/nd100-2019.txt data/luat-gtdb-2008.txt
  luatgt index --append data/nd123-2021.txt
  INDEX_TYPE="IVF256,Flat" luatgt index data/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			cfg := config.FromEnv()

			emb, err := buildEmbedder(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}

			// Qdrant is append-only by nature; the local store persists the
			// index file trio on completion.
			var localStore *vector.Store
			var store rag.VectorStore
			if cfg.Vector.Backend == "qdrant" {
				var closeStore func()
				store, closeStore, err = buildSearchStore(ctx, cfg, log)
				if err != nil {
					return fmt.Errorf("index: %w", err)
				}
				defer closeStore()
			} else {
				localStore, err = newLocalStore(cfg, log)
				if err != nil {
					return fmt.Errorf("index: %w", err)
				}
				if appendMode {
					if err := localStore.Load(ctx); err != nil {
						return fmt.Errorf("index: --append requires a loadable index: %w", err)
					}
				}
				store = localStore
			}

			cat, closeCat := openCatalog(cfg, log)
			if cat == nil {
				return fmt.Errorf("index: document catalog is required for indexing")
			}
			defer closeCat()

			pipeline, err := ingest.NewPipeline(emb, store, cat, buildNormalizer(cfg, log), ingest.Config{
				ChunkSize:    cfg.Text.ChunkSize,
				ChunkOverlap: cfg.Text.ChunkOverlap,
			}, log)
			if err != nil {
				return fmt.Errorf("index: failed to create pipeline: %w", err)
			}

			indexed := 0
			for _, path := range args {
				res, err := pipeline.IngestFile(ctx, path)
				if err != nil {
					log.Error("indexing failed",
						slog.String("file", path),
						slog.Any("error", err),
					)
					continue
				}
				log.Info("indexed",
					slog.String("file", res.Filename),
					slog.String("document_id", res.DocumentID),
					slog.Int("chunks", res.ChunkCount),
				)
				indexed++
			}

			if indexed == 0 {
				return fmt.Errorf("index: no documents were indexed")
			}

			if localStore != nil {
				if err := localStore.Save(ctx); err != nil {
					return fmt.Errorf("index: failed to save index: %w", err)
				}
				log.Info("index saved",
					slog.String("dir", cfg.Vector.IndexDir),
					slog.String("name", cfg.Vector.IndexName),
					slog.Int("total_chunks", localStore.Count()),
				)
			}

			fmt.Printf("Indexed %d/%d documents (%d chunks total)\n", indexed, len(args), store.Count())
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendMode, "append", false, "Extend the existing saved index instead of rebuilding")

	return cmd
}
