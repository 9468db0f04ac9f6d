package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/luatgt/luatgt-go/internal/budget"
	"github.com/luatgt/luatgt-go/internal/config"
	"github.com/luatgt/luatgt-go/internal/rag"
)

// systemPrompt instructs the model to answer strictly from the provided
// legal context, in Vietnamese, citing article headings.
const systemPrompt = "Bạn là trợ lý ảo giúp trả lời các câu hỏi về luật giao thông đường bộ. " +
	"Tôi sẽ cung cấp cho bạn 2 thông tin: Câu hỏi và bối cảnh có chứa câu trả lời. " +
	"Nhiệm vụ của bạn là tạo phản hồi dựa trên 2 thông tin đó. " +
	"Lưu ý: không tự động thêm thông tin khác. " +
	"Dựa vào thông tin ngữ cảnh được cung cấp và không sử dụng kiến thức bên ngoài, " +
	"hãy trả lời câu hỏi. Câu trả lời bao gồm cả trích dẫn từ tiêu đề."

// Generator produces answers from retrieved citations.
type Generator struct {
	chat model.BaseChatModel
}

// NewGenerator constructs a Generator for the configured chat backend.
func NewGenerator(ctx context.Context, cfg config.AnswerConfig) (*Generator, error) {
	chat, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{chat: chat}, nil
}

// newGeneratorWithModel exists for tests with a stub chat model.
func newGeneratorWithModel(chat model.BaseChatModel) *Generator {
	return &Generator{chat: chat}
}

// Answer generates a Vietnamese answer grounded in the given results. An
// empty result set short-circuits to the standard no-results message
// without calling the model.
func (g *Generator) Answer(ctx context.Context, question string, results []rag.SearchResult) (string, error) {
	if len(results) == 0 {
		return rag.MsgNoResults, nil
	}

	// Keep the prompt within the context window; the weakest hits go first.
	fixed := budget.Estimate(systemPrompt) + budget.Estimate(question)
	results = budget.TrimResults(results, fixed, budget.DefaultMaxContextTokens)

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(question, results)),
	}

	resp, err := g.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("answer: model returned an empty response")
	}
	return text, nil
}

// buildPrompt renders the retrieved chunks as titled context blocks
// followed by the question.
func buildPrompt(question string, results []rag.SearchResult) string {
	var b strings.Builder
	b.WriteString("Thông tin ngữ cảnh được cung cấp dưới đây.\n")
	b.WriteString("---------------------\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Tiêu đề: ")
		b.WriteString(citationTitle(r))
		b.WriteString("\nNội dung: ")
		b.WriteString(r.Content)
	}
	b.WriteString("\n---------------------\n")
	b.WriteString("Câu hỏi: ")
	b.WriteString(question)
	b.WriteString("\nCâu trả lời (bao gồm cả trích dẫn từ tiêu đề):")
	return b.String()
}

// citationTitle builds a human-readable heading for one retrieved chunk.
func citationTitle(r rag.SearchResult) string {
	var parts []string
	if r.ArticleNumber != "" {
		parts = append(parts, r.ArticleNumber)
	}
	if r.Metadata.LawReference != "" {
		parts = append(parts, r.Metadata.LawReference)
	}
	if len(parts) == 0 {
		if r.SourceFile != "" {
			return r.SourceFile
		}
		return "Không có tiêu đề"
	}
	return strings.Join(parts, ", ")
}
