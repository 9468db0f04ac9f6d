// Package config provides YAML-based configuration for luatgt.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. LUATGT_CONFIG environment variable
//  3. ~/.luatgt/config.yaml
//  4. ./luatgt.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Domain defaults. These mirror the values the retrieval pipeline was tuned
// with for the Vietnamese traffic-law corpus.
const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the number of characters carried over between
	// consecutive chunks.
	DefaultChunkOverlap = 50
	// DefaultDimension is the embedding dimension of the primary model
	// (multilingual, 1024-d).
	DefaultDimension = 1024
	// DefaultTopK is the number of search results returned when the caller
	// does not specify k.
	DefaultTopK = 5
	// MaxTopK caps k on the serving surfaces.
	MaxTopK = 20
	// DefaultConfidence is the minimum similarity score for a hit to be
	// returned.
	DefaultConfidence = 0.7
	// DefaultIndexType is the local index layout. "Flat" is exact search;
	// inverted-file variants ("IVF1024,Flat") are opt-in for large corpora.
	DefaultIndexType = "Flat"
	// DefaultIndexName is the basename for the persisted index file trio.
	DefaultIndexName = "traffic_law"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming.
type Config struct {
	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Vector configures the vector index and search behavior.
	Vector VectorConfig `yaml:"vector"`

	// Text configures chunking and normalization.
	Text TextConfig `yaml:"text"`

	// Answer configures the answer-generation model.
	Answer AnswerConfig `yaml:"answer"`

	// Qdrant configures the optional remote vector backend.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Catalog configures the document registry database.
	Catalog CatalogConfig `yaml:"catalog"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: openai, ollama, gemini.
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the embedding vector length.
	Dimensions int `yaml:"dimensions"`
	// APIKey authenticates against the backend. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint overrides the backend base URL (e.g. a local e5 server).
	Endpoint string `yaml:"endpoint"`
	// RPS throttles embedding requests per second (0 = unlimited).
	RPS int `yaml:"rps"`
	// CacheSize bounds the in-process embedding cache. Zero picks the
	// default bound; a negative value disables eviction entirely.
	CacheSize int `yaml:"cache_size"`
}

// VectorConfig holds vector index and search settings.
type VectorConfig struct {
	// Backend selects the store: local (default) or qdrant.
	Backend string `yaml:"backend"`
	// IndexType is the local index layout: "Flat" or "IVF<nlist>,Flat".
	IndexType string `yaml:"index_type"`
	// Nprobe is the number of inverted-file clusters probed per search.
	Nprobe int `yaml:"nprobe"`
	// TopK is the default number of search results.
	TopK int `yaml:"top_k"`
	// Confidence is the default minimum similarity score.
	Confidence float32 `yaml:"confidence"`
	// IndexDir is the directory holding the persisted index file trio.
	IndexDir string `yaml:"index_dir"`
	// IndexName is the basename for the index files.
	IndexName string `yaml:"index_name"`
}

// TextConfig holds chunking and normalization settings.
type TextConfig struct {
	// ChunkSize is the maximum characters per chunk.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the characters carried between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// StopwordsFile optionally overrides the embedded Vietnamese stopword set.
	StopwordsFile string `yaml:"stopwords_file"`
	// RemoveStopwords enables stopword removal during keyword extraction.
	RemoveStopwords bool `yaml:"remove_stopwords"`
}

// AnswerConfig holds answer-generation model settings.
type AnswerConfig struct {
	// Provider selects the chat backend: openai, ollama.
	Provider string `yaml:"provider"`
	// Model is the chat model name.
	Model string `yaml:"model"`
	// APIKey authenticates against the backend. Prefer env var ANSWER_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the backend base URL.
	BaseURL string `yaml:"base_url"`
	// MaxTokens caps the response length.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
}

// QdrantConfig holds remote backend connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the collection name.
	Collection string `yaml:"collection"`
	// APIKey is the optional API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the gRPC connection.
	TLS bool `yaml:"tls"`
}

// CatalogConfig holds document registry settings.
type CatalogConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_RPS", func(c *Config) string { return intStr(c.Embedding.RPS) }},
	{"EMBEDDING_CACHE_SIZE", func(c *Config) string { return intStr(c.Embedding.CacheSize) }},
	{"VECTOR_BACKEND", func(c *Config) string { return c.Vector.Backend }},
	{"INDEX_TYPE", func(c *Config) string { return c.Vector.IndexType }},
	{"NPROBE", func(c *Config) string { return intStr(c.Vector.Nprobe) }},
	{"TOP_K_RESULTS", func(c *Config) string { return intStr(c.Vector.TopK) }},
	{"CONFIDENCE_THRESHOLD", func(c *Config) string { return float32Str(c.Vector.Confidence) }},
	{"INDEX_DIR", func(c *Config) string { return c.Vector.IndexDir }},
	{"INDEX_NAME", func(c *Config) string { return c.Vector.IndexName }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Text.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Text.ChunkOverlap) }},
	{"STOPWORDS_FILE", func(c *Config) string { return c.Text.StopwordsFile }},
	{"REMOVE_STOPWORDS", func(c *Config) string { return boolStr(c.Text.RemoveStopwords) }},
	{"ANSWER_PROVIDER", func(c *Config) string { return c.Answer.Provider }},
	{"ANSWER_MODEL", func(c *Config) string { return c.Answer.Model }},
	{"ANSWER_API_KEY", func(c *Config) string { return c.Answer.APIKey }},
	{"ANSWER_BASE_URL", func(c *Config) string { return c.Answer.BaseURL }},
	{"ANSWER_MAX_TOKENS", func(c *Config) string { return intStr(c.Answer.MaxTokens) }},
	{"ANSWER_TEMPERATURE", func(c *Config) string { return float32Str(c.Answer.Temperature) }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"CATALOG_DB", func(c *Config) string { return c.Catalog.DBPath }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("LUATGT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".luatgt", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("luatgt.yaml"); err == nil {
		return "luatgt.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
