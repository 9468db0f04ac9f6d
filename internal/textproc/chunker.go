// Package textproc implements Vietnamese-aware text preparation for the
// retrieval pipeline: normalization, cleaning, and sentence-boundary chunking.
// Every operation in this package is total over arbitrary input — malformed
// or empty text degrades to an empty result, never an error.
package textproc

import (
	"regexp"
	"strings"
)

// Chunk is one bounded slice of a document's text, the atomic unit of
// embedding and retrieval.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Index is the chunk's position within the source text, starting at 0.
	Index int

	// Size is the content length in runes.
	Size int

	// StartPos is the cumulative rune offset of this chunk's content within
	// the sealed-chunk sequence (overlap duplication excluded).
	StartPos int

	// EndPos is StartPos + Size.
	EndPos int
}

// Chunker splits text into overlapping, size-bounded chunks along sentence
// boundaries. Sentences are never split mid-sentence: a single sentence
// longer than the chunk size is kept whole in its own chunk.
type Chunker struct {
	// chunkSize is the maximum number of runes per chunk.
	chunkSize int

	// overlap is the number of trailing runes from a sealed chunk that seed
	// the next one.
	overlap int
}

// sentenceEnd matches runs of sentence-ending punctuation followed by
// whitespace or end of input.
var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// NewChunker constructs a Chunker. Degenerate parameters are clamped at
// construction so the chunk loop always terminates: a non-positive size
// falls back to 512, a negative overlap to 0, and an overlap that is not
// strictly smaller than the size to size/10.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into ordered chunks. Sentences accumulate into a buffer;
// when the next sentence would push the buffer past the chunk size, the
// buffer is sealed and the next one starts with the last overlap runes of
// the sealed chunk followed by the overflowing sentence. Empty input yields
// an empty sequence.
func (c *Chunker) Chunk(text string) []Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var buf []rune
	pos := 0

	seal := func() {
		content := strings.TrimSpace(string(buf))
		size := len([]rune(content))
		chunks = append(chunks, Chunk{
			Content:  content,
			Index:    len(chunks),
			Size:     size,
			StartPos: pos,
			EndPos:   pos + size,
		})
		pos += size
	}

	for _, sentence := range sentences {
		sr := []rune(sentence)

		if len(buf)+len(sr) > c.chunkSize && len(buf) > 0 {
			seal()

			if c.overlap > 0 {
				seed := buf
				if len(seed) > c.overlap {
					seed = seed[len(seed)-c.overlap:]
				}
				next := make([]rune, 0, len(seed)+1+len(sr))
				next = append(next, seed...)
				next = append(next, ' ')
				next = append(next, sr...)
				buf = next
			} else {
				buf = append([]rune(nil), sr...)
			}
			continue
		}

		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, sr...)
	}

	if len(strings.TrimSpace(string(buf))) > 0 {
		seal()
	}

	return chunks
}

// SplitSentences splits text on sentence-ending punctuation (., !, ?
// followed by whitespace or end of input) and returns the trimmed, non-empty
// sentences. The terminating punctuation is consumed by the split.
func SplitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
