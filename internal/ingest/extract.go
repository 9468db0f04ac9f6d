// Package ingest implements the document ingestion pipeline. It reads a
// legal document from disk, extracts its text, chunks and embeds the
// content, and adds the results to the vector store while tracking the
// document's lifecycle in the catalog. This pipeline is invoked by the
// `luatgt index` CLI command.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/luatgt/luatgt-go/internal/catalog"
	"github.com/luatgt/luatgt-go/internal/rag"
)

// DetectType classifies a document by its filename extension.
func DetectType(filename string) (catalog.DocumentType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return catalog.TypePDF, nil
	case ".txt", ".md":
		return catalog.TypeTXT, nil
	case ".html", ".htm":
		return catalog.TypeHTML, nil
	default:
		return "", fmt.Errorf("ingest: unsupported document type %q: %w",
			filepath.Ext(filename), rag.ErrValidation)
	}
}

// ExtractText reads the document at path and returns its plain text.
// HTML documents are stripped of markup; PDFs must be converted to text
// upstream (the legal-document publishers distribute .txt alongside .pdf)
// and are rejected here with a clear message.
func ExtractText(path string, docType catalog.DocumentType) (string, error) {
	switch docType {
	case catalog.TypeTXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingest: read %s: %w", path, err)
		}
		return string(data), nil

	case catalog.TypeHTML:
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("ingest: open %s: %w", path, err)
		}
		defer f.Close()
		return extractHTML(f)

	case catalog.TypePDF:
		return "", fmt.Errorf("ingest: %s: PDF extraction is not built in, convert to .txt first: %w",
			path, rag.ErrValidation)

	default:
		return "", fmt.Errorf("ingest: unknown document type %q: %w", docType, rag.ErrValidation)
	}
}

// extractHTML parses HTML and returns the visible text of the body,
// dropping script and style content.
func extractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("ingest: parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
		b.WriteString(" ")
	})
	text := b.String()
	if strings.TrimSpace(text) == "" {
		// Fragment without a body element.
		text = doc.Text()
	}
	return text, nil
}
