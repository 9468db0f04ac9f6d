package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luatgt/luatgt-go/internal/answer"
	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/logging"
	"github.com/luatgt/luatgt-go/internal/search"
)

// NewAskCmd constructs the `luatgt ask` command, which retrieves relevant
// passages and generates a grounded Vietnamese answer with citations.
func NewAskCmd() *cobra.Command {
	var topK int
	var confidence float32

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about Vietnamese traffic law",
		Long: `Retrieve the most relevant legal passages and have the configured chat
model compose an answer grounded in them, citing the article headings.

The model answers strictly from the retrieved passages; when nothing
relevant is found it says so instead of guessing.

Environment variables:
  ANSWER_PROVIDER   Chat backend: ollama, openai, gemini (default: ollama)
  ANSWER_MODEL      Chat model name
  ANSWER_API_KEY    API key for hosted backends

Examples:
  luatgt ask "vượt đèn đỏ bị phạt bao nhiêu tiền?"
  luatgt ask --top-k 8 "uống rượu lái xe máy bị xử lý thế nào?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			cfg := config.FromEnv()

			svc, closeStore, err := buildSearchService(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			gen, err := answer.NewGenerator(ctx, cfg.Answer)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise answer model: %w", err)
			}

			question := strings.Join(args, " ")
			results, err := svc.Query(ctx, question, search.Options{
				TopK:       topK,
				Confidence: confidence,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			reply, err := gen.Answer(ctx, question, results)
			if err != nil {
				return fmt.Errorf("ask: answer generation failed: %w", err)
			}

			fmt.Println(reply)
			if len(results) > 0 {
				fmt.Println("\nNguồn tham khảo:")
				printResults(results)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default from config)")
	cmd.Flags().Float32VarP(&confidence, "confidence", "c", 0, "Minimum similarity score (default from config)")

	return cmd
}
