package catalog

import (
	"context"
	"strings"
	"testing"
)

// openTestCatalog opens an in-memory SQLiteCatalog for use in tests.
func openTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testDoc(id string) Document {
	return Document{
		ID:       id,
		Filename: "nghi-dinh-100-2019.pdf",
		Type:     TypePDF,
		FileSize: 123456,
	}
}

func Test_Catalog_RegisterAndGet(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Register(ctx, testDoc("doc-1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	doc, err := c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", doc.Status)
	}
	if doc.Type != TypePDF || doc.FileSize != 123456 {
		t.Errorf("fields not persisted: %+v", doc)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func Test_Catalog_Lifecycle(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Register(ctx, testDoc("doc-1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.SetProcessing(ctx, "doc-1"); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	doc, err := c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusProcessing {
		t.Errorf("status = %s, want PROCESSING", doc.Status)
	}

	if err := c.SetCompleted(ctx, "doc-1", 42); err != nil {
		t.Fatalf("set completed: %v", err)
	}
	doc, err = c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusCompleted || doc.ChunkCount != 42 {
		t.Errorf("got %s/%d, want COMPLETED/42", doc.Status, doc.ChunkCount)
	}
}

func Test_Catalog_Failed(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Register(ctx, testDoc("doc-1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.SetFailed(ctx, "doc-1", "embedding backend unreachable"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	doc, err := c.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusFailed {
		t.Errorf("status = %s, want FAILED", doc.Status)
	}
	if !strings.Contains(doc.ErrorMessage, "unreachable") {
		t.Errorf("error message not persisted: %q", doc.ErrorMessage)
	}
}

func Test_Catalog_SetStatusUnknownID(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)

	if err := c.SetProcessing(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown document id")
	}
}

func Test_Catalog_DuplicateRegisterRejected(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Register(ctx, testDoc("doc-1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register(ctx, testDoc("doc-1")); err == nil {
		t.Error("expected error on duplicate document id")
	}
}

func Test_Catalog_ListNewestFirst(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		if err := c.Register(ctx, testDoc(id)); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	docs, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("want 3 documents, got %d", len(docs))
	}
	// Same-second inserts fall back to id ordering, newest first.
	if docs[0].ID != "doc-3" || docs[2].ID != "doc-1" {
		t.Errorf("unexpected order: %s, %s, %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}
