package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// MetadataStore maps integer vector ids to chunk metadata. It is persisted
// as a JSON object keyed by the stringified id alongside the index binary.
// MetadataStore is not safe for concurrent use; Store serializes access.
type MetadataStore struct {
	entries map[int64]rag.ChunkMeta
}

// NewMetadataStore returns an empty store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{entries: make(map[int64]rag.ChunkMeta)}
}

// Add assigns sequential ids starting at startID to the entries.
func (m *MetadataStore) Add(startID int64, metas []rag.ChunkMeta) {
	for i, meta := range metas {
		m.entries[startID+int64(i)] = meta
	}
}

// Get returns the metadata for id. Unknown ids yield a placeholder record
// rather than an error so hydration of a stale index degrades instead of
// failing the whole query.
func (m *MetadataStore) Get(id int64) rag.ChunkMeta {
	if meta, ok := m.entries[id]; ok {
		return meta
	}
	return rag.ChunkMeta{ChunkID: fmt.Sprintf("chunk_%d", id)}
}

// Count returns the number of entries.
func (m *MetadataStore) Count() int { return len(m.entries) }

// DocumentCounts returns per-document chunk counts and source filenames,
// used to build the manifest's document inventory.
func (m *MetadataStore) DocumentCounts() map[string]DocumentSummary {
	docs := make(map[string]DocumentSummary)
	for _, meta := range m.entries {
		d := docs[meta.DocumentID]
		d.DocumentID = meta.DocumentID
		d.Filename = meta.SourceFile
		d.ChunkCount++
		docs[meta.DocumentID] = d
	}
	return docs
}

// SaveFile writes the store as a JSON object keyed by stringified id.
func (m *MetadataStore) SaveFile(path string) error {
	out := make(map[string]rag.ChunkMeta, len(m.entries))
	for id, meta := range m.entries {
		out[strconv.FormatInt(id, 10)] = meta
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("vector: marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vector: write metadata file: %w", err)
	}
	return nil
}

// LoadMetadataFile reads a metadata JSON file, coercing the string keys
// back to integer ids. Unparsable content is ErrCorruption.
func LoadMetadataFile(path string) (*MetadataStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vector: read metadata file %s: %w", path, err)
	}
	var raw map[string]rag.ChunkMeta
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("vector: parse metadata file %s: %v: %w", path, err, rag.ErrCorruption)
	}
	m := NewMetadataStore()
	for key, meta := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vector: non-integer metadata key %q: %w", key, rag.ErrCorruption)
		}
		m.entries[id] = meta
	}
	return m, nil
}
