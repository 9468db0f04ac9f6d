// Package answer turns retrieved citations into a Vietnamese natural-
// language answer using a chat model. Retrieval stays useful without it —
// the CLI search command prints raw citations — but `luatgt ask` composes
// the two.
package answer

import (
	"context"
	"fmt"

	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/rag"
)

// newChatModel constructs the chat model for the configured backend.
func newChatModel(ctx context.Context, cfg config.AnswerConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		m, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("answer: ollama chat model: %w", err)
		}
		return m, nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("answer: openai requires an API key (ANSWER_API_KEY): %w",
				rag.ErrConfiguration)
		}
		maxTokens := cfg.MaxTokens
		temp := cfg.Temperature
		m, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   &maxTokens,
			Temperature: &temp,
		})
		if err != nil {
			return nil, fmt.Errorf("answer: openai chat model: %w", err)
		}
		return m, nil

	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("answer: gemini requires an API key (ANSWER_API_KEY): %w",
				rag.ErrConfiguration)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("answer: gemini client: %w", err)
		}
		m, err := einogemini.NewChatModel(ctx, &einogemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("answer: gemini chat model: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("answer: unknown provider %q (valid: ollama, openai, gemini): %w",
			cfg.Provider, rag.ErrConfiguration)
	}
}
