// Package budget provides token budget estimation and context trimming for
// answer generation. Because multiple chat backends with different tokenizers
// are supported, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters. Vietnamese legal prose tokenizes a little denser
// than English, so the heuristic deliberately under-estimates to leave
// headroom for model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/luatgt/luatgt-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving
	// room for the generated answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimResults drops the lowest-ranked search results until the estimated
// context size of fixed + passages fits within maxTokens. fixedTokens covers
// the parts of the prompt that must not be trimmed (system prompt, question,
// prompt scaffolding). Results arrive sorted by descending similarity, so
// trimming removes from the tail.
//
// At least one result is always kept when the input is non-empty; answering
// from a truncated passage beats answering from nothing.
func TrimResults(results []rag.SearchResult, fixedTokens, maxTokens int) []rag.SearchResult {
	if len(results) == 0 {
		return results
	}

	for len(results) > 1 {
		total := fixedTokens
		for _, r := range results {
			total += Estimate(r.Content) + Estimate(r.ArticleNumber) + Estimate(r.Metadata.LawReference)
		}
		if total <= maxTokens {
			break
		}
		// Drop the weakest hit.
		results = results[:len(results)-1]
	}
	return results
}
