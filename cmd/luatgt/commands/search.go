package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/logging"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/search"
)

// NewSearchCmd constructs the `luatgt search` command, which runs a single
// semantic query against the index and prints the matching passages.
func NewSearchCmd() *cobra.Command {
	var topK int
	var confidence float32

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the indexed legislation",
		Long: `Run a semantic search against the indexed legal documents.

The query is cleaned (question words and noise removed) before embedding,
and results below the confidence threshold are dropped.

Examples:
  luatgt search "mức phạt vượt đèn đỏ đối với xe máy"
  luatgt search --top-k 10 --confidence 0.5 "nồng độ cồn khi lái ô tô"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			cfg := config.FromEnv()

			svc, closeStore, err := buildSearchService(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer closeStore()

			results, err := svc.Query(ctx, strings.Join(args, " "), search.Options{
				TopK:       topK,
				Confidence: confidence,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			printResults(results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (default from config)")
	cmd.Flags().Float32VarP(&confidence, "confidence", "c", 0, "Minimum similarity score (default from config)")

	return cmd
}

// printResults renders search hits for the terminal.
func printResults(results []rag.SearchResult) {
	if len(results) == 0 {
		fmt.Println(rag.MsgNoResults)
		return
	}
	for i, r := range results {
		var cite []string
		if r.ArticleNumber != "" {
			cite = append(cite, r.ArticleNumber)
		}
		if r.Metadata.LawReference != "" {
			cite = append(cite, r.Metadata.LawReference)
		}
		title := strings.Join(cite, ", ")
		if title == "" {
			title = r.Metadata.SourceFile
		}
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.SimilarityScore, title)
		fmt.Printf("   %s\n\n", strings.TrimSpace(r.Content))
	}
}
