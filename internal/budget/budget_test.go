package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/luatgt/luatgt-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimResults(t *testing.T) {
	t.Parallel()

	results := []rag.SearchResult{
		{Content: strings.Repeat("a", 400), ArticleNumber: "Điều 5"},
		{Content: strings.Repeat("b", 400), ArticleNumber: "Điều 6"},
		{Content: strings.Repeat("c", 400), ArticleNumber: "Điều 7"},
	}

	// Budget fits all three passages (~100 tokens each).
	got := TrimResults(results, 50, 1000)
	if len(got) != 3 {
		t.Errorf("generous budget: kept %d results, want 3", len(got))
	}

	// Budget fits roughly one passage; the weakest hits go first.
	got = TrimResults(results, 50, 200)
	if len(got) != 1 {
		t.Fatalf("tight budget: kept %d results, want 1", len(got))
	}
	if got[0].ArticleNumber != "Điều 5" {
		t.Errorf("tight budget: kept %q, want the top-ranked hit", got[0].ArticleNumber)
	}

	// The last result is never trimmed away entirely.
	got = TrimResults(results, 50, 10)
	if len(got) != 1 {
		t.Errorf("impossible budget: kept %d results, want 1", len(got))
	}

	if got := TrimResults(nil, 0, 100); len(got) != 0 {
		t.Errorf("nil input: got %d results", len(got))
	}
}
