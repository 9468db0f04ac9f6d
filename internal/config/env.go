package config

import (
	"os"
	"strconv"
)

// FromEnv assembles a Config from environment variables with defaults
// applied. [Load] has already folded any YAML file into the environment, so
// this is the single point where components read their settings.
func FromEnv() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", DefaultDimension),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
			RPS:        getEnvInt("EMBEDDING_RPS", 0),
			CacheSize:  getEnvInt("EMBEDDING_CACHE_SIZE", 0),
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "local"),
			IndexType:  getEnv("INDEX_TYPE", DefaultIndexType),
			Nprobe:     getEnvInt("NPROBE", 0),
			TopK:       getEnvInt("TOP_K_RESULTS", DefaultTopK),
			Confidence: getEnvFloat32("CONFIDENCE_THRESHOLD", DefaultConfidence),
			IndexDir:   getEnv("INDEX_DIR", "data/index"),
			IndexName:  getEnv("INDEX_NAME", DefaultIndexName),
		},
		Text: TextConfig{
			ChunkSize:       getEnvInt("CHUNK_SIZE", DefaultChunkSize),
			ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap),
			StopwordsFile:   os.Getenv("STOPWORDS_FILE"),
			RemoveStopwords: os.Getenv("REMOVE_STOPWORDS") == "true",
		},
		Answer: AnswerConfig{
			Provider:    getEnv("ANSWER_PROVIDER", "ollama"),
			Model:       os.Getenv("ANSWER_MODEL"),
			APIKey:      os.Getenv("ANSWER_API_KEY"),
			BaseURL:     os.Getenv("ANSWER_BASE_URL"),
			MaxTokens:   getEnvInt("ANSWER_MAX_TOKENS", 0),
			Temperature: getEnvFloat32("ANSWER_TEMPERATURE", 0),
		},
		Qdrant: QdrantConfig{
			Host:       getEnv("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnv("QDRANT_COLLECTION", "luatgt-chunks"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			TLS:        os.Getenv("QDRANT_TLS") == "true",
		},
		Catalog: CatalogConfig{
			DBPath: os.Getenv("CATALOG_DB"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
