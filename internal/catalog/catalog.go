// Package catalog provides a SQLite-backed registry of ingested documents.
// It records each document's type, size, and lifecycle status so an
// operator can see what the index was built from and which ingestions
// failed, surviving process restarts.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// DocumentType identifies the source format of an ingested document.
type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeTXT  DocumentType = "txt"
	TypeHTML DocumentType = "html"
)

// Status is a document's ingestion lifecycle state. Documents move
// PENDING → PROCESSING → COMPLETED or FAILED; FAILED records an error
// message.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Document is one registered source document.
type Document struct {
	ID           string
	Filename     string
	Type         DocumentType
	FileSize     int64
	Status       Status
	ChunkCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Catalog persists document records. Implementations must be safe for
// concurrent use.
type Catalog interface {
	// Register inserts a new document in PENDING state.
	Register(ctx context.Context, doc Document) error
	// SetProcessing marks a document as being chunked and embedded.
	SetProcessing(ctx context.Context, id string) error
	// SetCompleted marks a document done with its final chunk count.
	SetCompleted(ctx context.Context, id string, chunkCount int) error
	// SetFailed marks a document failed with the error message.
	SetFailed(ctx context.Context, id string, errMsg string) error
	// Get returns a document by id.
	Get(ctx context.Context, id string) (Document, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]Document, error)
	// Close releases any resources held by the catalog.
	Close() error
}

// SQLiteCatalog is a Catalog backed by a local SQLite database.
type SQLiteCatalog struct {
	db *sql.DB
}

var _ Catalog = (*SQLiteCatalog)(nil)

// DefaultDBPath returns the default path for the document registry,
// ~/.luatgt/catalog.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".luatgt")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) a SQLiteCatalog at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteCatalog, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	c := &SQLiteCatalog{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the schema if it does not already exist.
func (c *SQLiteCatalog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id            TEXT    PRIMARY KEY,
    filename      TEXT    NOT NULL,
    doc_type      TEXT    NOT NULL CHECK(doc_type IN ('pdf','txt','html')),
    file_size     INTEGER NOT NULL,
    status        TEXT    NOT NULL CHECK(status IN ('PENDING','PROCESSING','COMPLETED','FAILED')),
    chunk_count   INTEGER NOT NULL DEFAULT 0,
    error_message TEXT    NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,  -- Unix timestamp (seconds)
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);
`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Register inserts a new document in PENDING state.
func (c *SQLiteCatalog) Register(ctx context.Context, doc Document) error {
	const q = `
INSERT INTO documents (id, filename, doc_type, file_size, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Filename, string(doc.Type), doc.FileSize, string(StatusPending), now, now)
	if err != nil {
		return fmt.Errorf("catalog: register %s: %w", doc.ID, err)
	}
	return nil
}

// SetProcessing marks a document as being chunked and embedded.
func (c *SQLiteCatalog) SetProcessing(ctx context.Context, id string) error {
	return c.setStatus(ctx, id, StatusProcessing, 0, "")
}

// SetCompleted marks a document done with its final chunk count.
func (c *SQLiteCatalog) SetCompleted(ctx context.Context, id string, chunkCount int) error {
	return c.setStatus(ctx, id, StatusCompleted, chunkCount, "")
}

// SetFailed marks a document failed with the error message.
func (c *SQLiteCatalog) SetFailed(ctx context.Context, id string, errMsg string) error {
	return c.setStatus(ctx, id, StatusFailed, 0, errMsg)
}

func (c *SQLiteCatalog) setStatus(ctx context.Context, id string, status Status, chunkCount int, errMsg string) error {
	const q = `
UPDATE documents SET status = ?, chunk_count = ?, error_message = ?, updated_at = ?
WHERE id = ?`
	res, err := c.db.ExecContext(ctx, q, string(status), chunkCount, errMsg, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("catalog: set status %s for %s: %w", status, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: set status rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: document %s not found", id)
	}
	return nil
}

// Get returns a document by id.
func (c *SQLiteCatalog) Get(ctx context.Context, id string) (Document, error) {
	const q = `
SELECT id, filename, doc_type, file_size, status, chunk_count, error_message, created_at, updated_at
FROM documents WHERE id = ?`
	var doc Document
	var docType, status string
	var created, updated int64
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&doc.ID, &doc.Filename, &docType, &doc.FileSize, &status,
		&doc.ChunkCount, &doc.ErrorMessage, &created, &updated)
	if err != nil {
		return Document{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	doc.Type = DocumentType(docType)
	doc.Status = Status(status)
	doc.CreatedAt = time.Unix(created, 0)
	doc.UpdatedAt = time.Unix(updated, 0)
	return doc, nil
}

// List returns all documents, newest first.
func (c *SQLiteCatalog) List(ctx context.Context) ([]Document, error) {
	const q = `
SELECT id, filename, doc_type, file_size, status, chunk_count, error_message, created_at, updated_at
FROM documents ORDER BY created_at DESC, id DESC`

	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var docType, status string
		var created, updated int64
		if err := rows.Scan(&doc.ID, &doc.Filename, &docType, &doc.FileSize, &status,
			&doc.ChunkCount, &doc.ErrorMessage, &created, &updated); err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		doc.Type = DocumentType(docType)
		doc.Status = Status(status)
		doc.CreatedAt = time.Unix(created, 0)
		doc.UpdatedAt = time.Unix(updated, 0)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list rows: %w", err)
	}
	return docs, nil
}

// Close releases the database connection pool.
func (c *SQLiteCatalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}
