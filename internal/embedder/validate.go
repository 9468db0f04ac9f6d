package embedder

import (
	"log/slog"
	"strings"

	"github.com/luatgt/luatgt-go/internal/config"
)

// knownChatModelPrefixes contains name fragments that identify
// chat/completion models, which are not suitable for embedding. A query
// embedded with a chat model silently degrades retrieval quality, so we
// warn at startup instead of failing at search time.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"gemini-1",
	"gemini-2",
	"phi-",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
	"vicuna",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate pre-flights the embedding configuration so operators see a
// clear warning at startup rather than broken retrieval later.
func Validate(cfg config.EmbeddingConfig, log *slog.Logger) {
	if cfg.Model != "" && looksLikeChatModel(cfg.Model) {
		log.Warn("embedder: configured model looks like a chat model, not an embedding model",
			slog.String("model", cfg.Model),
			slog.String("hint", "use a dedicated embedding model, e.g. nomic-embed-text or text-embedding-004"),
		)
	}
	if cfg.Dimensions > 0 && cfg.Dimensions != config.DefaultDimension {
		log.Info("embedder: non-default embedding dimension configured",
			slog.Int("dimensions", cfg.Dimensions),
			slog.Int("default", config.DefaultDimension),
		)
	}
}
