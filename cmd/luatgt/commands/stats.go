package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/logging"
)

// NewStatsCmd constructs the `luatgt stats` command, which prints the saved
// index manifest and the document catalog.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index and document statistics",
		Long: `Print the saved index manifest (index type, dimension, chunk counts,
embedding model) and the status of every registered document.

Examples:
  luatgt stats
  INDEX_DIR=/var/lib/luatgt luatgt stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			cfg := config.FromEnv()

			store, err := newLocalStore(cfg, log)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			manifest, err := store.LoadManifest()
			if err != nil {
				fmt.Println("No saved index found.")
			} else {
				fmt.Printf("Index:       %s (%d dimensions)\n", manifest.IndexType, manifest.Dimension)
				if loadErr := store.Load(ctx); loadErr == nil {
					fmt.Printf("Trained:     %t\n", store.Trained())
					fmt.Printf("Vectors:     %d (%d metadata entries)\n", store.Count(), store.MetadataCount())
				}
				fmt.Printf("Chunks:      %d\n", manifest.TotalChunks)
				fmt.Printf("Model:       %s\n", manifest.EmbeddingModel)
				fmt.Printf("Chunking:    %d chars, %d overlap\n", manifest.ChunkSize, manifest.ChunkOverlap)
				fmt.Printf("Created:     %s\n", manifest.CreatedAt)
				if len(manifest.Documents) > 0 {
					fmt.Println("\nIndexed documents:")
					for _, d := range manifest.Documents {
						fmt.Printf("  %-40s %5d chunks\n", d.Filename, d.ChunkCount)
					}
				}
			}

			cat, closeCat := openCatalog(cfg, log)
			if cat == nil {
				return nil
			}
			defer closeCat()

			docs, err := cat.List(ctx)
			if err != nil {
				return fmt.Errorf("stats: failed to list documents: %w", err)
			}
			if len(docs) == 0 {
				return nil
			}
			fmt.Println("\nDocument catalog:")
			for _, d := range docs {
				line := fmt.Sprintf("  %-40s %-10s %5d chunks", d.Filename, d.Status, d.ChunkCount)
				if d.ErrorMessage != "" {
					line += "  (" + d.ErrorMessage + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
