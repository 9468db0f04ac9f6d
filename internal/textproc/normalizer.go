package textproc

import (
	"bufio"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// defaultStopwords is the built-in Vietnamese stopword set, used when no
// stopword file is configured or the configured file cannot be read.
var defaultStopwords = []string{
	"và", "của", "có", "là", "được", "trong", "với", "để", "cho", "từ",
	"về", "theo", "như", "khi", "nếu", "mà", "hay", "hoặc", "nhưng",
	"vì", "do", "bởi", "tại", "trên", "dưới", "giữa", "sau", "trước",
	"này", "đó", "các", "những", "một", "hai", "ba", "bốn", "năm",
}

// questionWords are interrogative phrases stripped from queries before
// embedding — they carry no retrieval signal. Ordered longest-first so
// compound phrases are removed before their substrings.
var questionWords = []string{
	"như thế nào", "thế nào", "tại sao", "vì sao", "sao", "gì",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	urlRe        = regexp.MustCompile(`http[s]?://[^\s]+`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	// phoneRe matches Vietnamese-format phone numbers (leading 0, 10-11 digits).
	phoneRe     = regexp.MustCompile(`(^|\s)0\d{9,10}(\s|$)`)
	ellipsisRe  = regexp.MustCompile(`[.]{3,}`)
	bangRunRe   = regexp.MustCompile(`[!]{2,}`)
	queryRunRe  = regexp.MustCompile(`[?]{2,}`)
	tokenRe     = regexp.MustCompile(`[\p{L}\p{N}]+`)
	articleRe   = regexp.MustCompile(`(?i)điều\s+(\d+)`)
	lawRefRe    = regexp.MustCompile(`\d+/\d{4}/[A-ZĐ]+(?:-[A-ZĐ]+)*`)
)

// Normalizer cleans and normalizes Vietnamese text before chunking and
// before query embedding. All methods are total: empty or malformed input
// yields an empty string, never an error.
type Normalizer struct {
	// stopwords is the active stopword set, lowercased.
	stopwords map[string]bool

	// removeStopwords enables stopword filtering in PreprocessQuery.
	removeStopwords bool
}

// NewNormalizer constructs a Normalizer. stopwordsFile optionally points to
// a newline-delimited stopword list; when empty or unreadable the embedded
// default set is used (with a warning, not a failure).
func NewNormalizer(stopwordsFile string, removeStopwords bool, log *slog.Logger) *Normalizer {
	n := &Normalizer{
		stopwords:       make(map[string]bool, len(defaultStopwords)),
		removeStopwords: removeStopwords,
	}
	for _, w := range defaultStopwords {
		n.stopwords[w] = true
	}

	if stopwordsFile != "" {
		loaded, err := loadStopwords(stopwordsFile)
		if err != nil {
			log.Warn("textproc: stopwords file unreadable, using built-in set",
				slog.String("path", stopwordsFile),
				slog.String("error", err.Error()),
			)
		} else {
			n.stopwords = loaded
			log.Info("textproc: loaded stopwords", slog.String("path", stopwordsFile), slog.Int("count", len(loaded)))
		}
	}

	return n
}

// loadStopwords reads a newline-delimited stopword file.
func loadStopwords(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if w := strings.ToLower(strings.TrimSpace(scanner.Text())); w != "" {
			words[w] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Normalize applies Unicode NFC composition (Vietnamese diacritics have
// both composed and decomposed encodings in the wild), collapses runs of
// whitespace, and trims.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Clean normalizes text and strips markup and noise: HTML tags, URLs,
// email addresses, Vietnamese phone numbers, and runs of excessive
// punctuation.
func (n *Normalizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = n.Normalize(text)
	text = htmlTagRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = phoneRe.ReplaceAllString(text, " ")
	text = ellipsisRe.ReplaceAllString(text, "...")
	text = bangRunRe.ReplaceAllString(text, "!")
	text = queryRunRe.ReplaceAllString(text, "?")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// PreprocessQuery prepares a user query for embedding: clean, strip
// interrogative phrases, and (when enabled) remove stopwords. A query that
// reduces to nothing is returned as the cleaned original so the embedder
// always receives a non-empty string for non-empty input.
func (n *Normalizer) PreprocessQuery(query string) string {
	cleaned := n.Clean(query)
	if cleaned == "" {
		return ""
	}

	processed := cleaned
	for _, qw := range questionWords {
		processed = removeWord(processed, qw)
	}

	if n.removeStopwords {
		tokens := Tokenize(processed)
		kept := tokens[:0]
		for _, tok := range tokens {
			if !n.stopwords[tok] {
				kept = append(kept, tok)
			}
		}
		processed = strings.Join(kept, " ")
	}

	processed = strings.TrimSpace(whitespaceRe.ReplaceAllString(processed, " "))
	if processed == "" {
		return cleaned
	}
	return processed
}

// removeWord removes whole-word occurrences of w (case-insensitive).
// Boundaries are checked against whitespace rather than \b because Go's
// regexp word boundaries are ASCII-only and misfire on diacritics.
func removeWord(text, w string) string {
	lower := strings.ToLower(text)
	w = strings.ToLower(w)
	var b strings.Builder
	for {
		i := strings.Index(lower, w)
		if i < 0 {
			b.WriteString(text)
			break
		}
		end := i + len(w)
		startOK := i == 0 || lower[i-1] == ' '
		endOK := end == len(lower) || lower[end] == ' '
		if startOK && endOK {
			b.WriteString(text[:i])
			b.WriteString(" ")
		} else {
			b.WriteString(text[:end])
		}
		text = text[end:]
		lower = lower[end:]
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// Tokenize splits text into lowercase letter/digit runs. Unlike \w-based
// tokenizers this keeps Vietnamese letters intact.
func Tokenize(text string) []string {
	raw := tokenRe.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		tokens = append(tokens, strings.ToLower(t))
	}
	return tokens
}

// ExtractKeywords returns up to limit content words from text, most
// frequent first. Stopwords and single-character tokens never qualify.
// Ties keep first-seen order so results are deterministic.
func (n *Normalizer) ExtractKeywords(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, tok := range Tokenize(n.Clean(text)) {
		if len([]rune(tok)) < 2 || n.stopwords[tok] {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// DetectArticle returns the first legal article label in the text (e.g.
// "Điều 5"), or "" when none is present.
func DetectArticle(text string) string {
	m := articleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "Điều " + m[1]
}

// DetectLawReference returns the first law/decree identifier in the text
// (e.g. "100/2019/NĐ-CP"), or "" when none is present.
func DetectLawReference(text string) string {
	return lawRefRe.FindString(text)
}
