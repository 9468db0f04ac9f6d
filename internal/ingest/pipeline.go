package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/rag"
	"github.com/luatgt/luatgt-go/internal/textproc"
)

// embedBatchSize bounds how many chunks are sent to the embedding backend
// per request.
const embedBatchSize = 16

// chunkKeywords is how many frequency-ranked keywords are recorded per
// chunk in its metadata.
const chunkKeywords = 5

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 512 if zero.
	ChunkSize int
	// ChunkOverlap is the number of characters carried between consecutive
	// chunks. Defaults to 50 if negative or unset via NewPipeline.
	ChunkOverlap int
	// MaxEmbedRetries bounds retry attempts per embedding batch.
	// Defaults to 3 if zero.
	MaxEmbedRetries int
}

// Pipeline orchestrates the extract → clean → chunk → embed → store flow
// for a document, recording its lifecycle in the catalog.
type Pipeline struct {
	embedder rag.Embedder
	store    rag.VectorStore
	catalog  catalog.Catalog
	norm     *textproc.Normalizer
	chunker  *textproc.Chunker
	cfg      Config
	log      *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cat catalog.Catalog,
	norm *textproc.Normalizer, cfg Config, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store must not be nil")
	}
	if cat == nil {
		return nil, fmt.Errorf("ingest: catalog must not be nil")
	}
	if norm == nil {
		return nil, fmt.Errorf("ingest: normalizer must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MaxEmbedRetries <= 0 {
		cfg.MaxEmbedRetries = 3
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		catalog:  cat,
		norm:     norm,
		chunker:  textproc.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:      cfg,
		log:      log,
	}, nil
}

// Result summarizes one ingested document.
type Result struct {
	DocumentID string
	Filename   string
	ChunkCount int
}

// IngestFile runs the full pipeline for one document on disk. The document
// is registered in the catalog before any work starts, and its terminal
// status (COMPLETED or FAILED) is recorded whatever the outcome.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: stat %s: %w", path, err)
	}
	filename := filepath.Base(path)

	docType, err := DetectType(filename)
	if err != nil {
		return Result{}, err
	}

	docID := uuid.NewString()
	doc := catalog.Document{
		ID:       docID,
		Filename: filename,
		Type:     docType,
		FileSize: info.Size(),
	}
	if err := p.catalog.Register(ctx, doc); err != nil {
		return Result{}, err
	}

	count, err := p.process(ctx, docID, path, filename, docType)
	if err != nil {
		if ferr := p.catalog.SetFailed(ctx, docID, err.Error()); ferr != nil {
			p.log.Error("ingest: could not record failure", slog.String("document_id", docID), slog.String("error", ferr.Error()))
		}
		return Result{DocumentID: docID, Filename: filename}, err
	}

	if err := p.catalog.SetCompleted(ctx, docID, count); err != nil {
		return Result{}, err
	}
	p.log.Info("ingest: document indexed",
		slog.String("document_id", docID),
		slog.String("filename", filename),
		slog.Int("chunks", count),
	)
	return Result{DocumentID: docID, Filename: filename, ChunkCount: count}, nil
}

// process does the work between the PROCESSING and terminal states and
// returns the number of chunks indexed.
func (p *Pipeline) process(ctx context.Context, docID, path, filename string, docType catalog.DocumentType) (int, error) {
	if err := p.catalog.SetProcessing(ctx, docID); err != nil {
		return 0, err
	}

	raw, err := ExtractText(path, docType)
	if err != nil {
		return 0, err
	}

	cleaned := p.norm.Clean(raw)
	chunks := p.chunker.Chunk(cleaned)
	if len(chunks) == 0 {
		p.log.Warn("ingest: document produced no chunks", slog.String("filename", filename))
		return 0, nil
	}

	lawRef := textproc.DetectLawReference(cleaned)

	metas := make([]rag.ChunkMeta, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		metas[i] = rag.ChunkMeta{
			ChunkID:       fmt.Sprintf("%s_chunk_%d", docID, i),
			DocumentID:    docID,
			Content:       c.Content,
			SourceFile:    filename,
			ArticleNumber: textproc.DetectArticle(c.Content),
			LawReference:  lawRef,
			ChunkIndex:    i,
		}
		if kw := p.norm.ExtractKeywords(c.Content, chunkKeywords); len(kw) > 0 {
			metas[i].Extra = map[string]string{"keywords": strings.Join(kw, ",")}
		}
	}

	// Embed every batch before touching the store. The index has no
	// deletions, so a partial add from a document that then fails would
	// leave orphaned vectors behind.
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return 0, err
		}
		vectors = append(vectors, batch...)
	}
	if err := p.store.Add(ctx, vectors, metas); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

// embedBatch embeds one batch with bounded exponential-backoff retries.
// Embedding backends fail transiently (rate limits, network); the retry
// policy lives here, not in the embedder.
func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	op := func() error {
		var err error
		vectors, err = p.embedder.Embed(ctx, texts)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxEmbedRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("ingest: embedding failed after %d retries: %w", p.cfg.MaxEmbedRetries, err)
	}
	return vectors, nil
}
