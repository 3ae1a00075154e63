package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Index kinds accepted by VECTOR_INDEX.
const (
	IndexFlat   = "flat"
	IndexQdrant = "qdrant"
	IndexNone   = "none"
)

// DisabledEmbedModel turns the embedding backend off when used as EMBED_MODEL.
const DisabledEmbedModel = "none"

// Config holds all configuration for the application.
type Config struct {
	// Knowledge base
	KBDir         string
	KBStrict      bool
	ChunkMaxWords int
	TopK          int

	// Embedding backend
	EmbedModel            string
	EmbeddingBaseURL      string
	EmbeddingAPIKey       string
	EmbeddingBatchSize    int
	EmbeddingProbeTimeout time.Duration

	// Accelerated index
	VectorIndex      string
	QdrantURL        string
	QdrantCollection string

	// Drafting LLM
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	LLMTimeout    time.Duration

	DBPath         string
	APIPort        string
	StaticDir      string
	DraftRateLimit float64
	DraftRateBurst int

	LogLevel  slog.Level
	LogFormat string
}

// EmbeddingsEnabled reports whether an embedding backend is configured at all.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingBaseURL != "" && c.EmbedModel != "" && !strings.EqualFold(c.EmbedModel, DisabledEmbedModel)
}

// Load reads configuration from environment variables and returns a Config struct.
// Every setting has a default, so an empty environment yields a working lexical-only setup.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		KBDir:            getEnv("KB_DIR", "kb"),
		EmbedModel:       getEnv("EMBED_MODEL", "paraphrase-multilingual-MiniLM-L12-v2"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", "dummy-key"),
		VectorIndex:      strings.ToLower(getEnv("VECTOR_INDEX", IndexFlat)),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "kb_chunks"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/drafts.db"),
		APIPort:          getEnv("API_PORT", "8000"),
		StaticDir:        getEnv("STATIC_DIR", ""),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.KBStrict, err = getBool("KB_STRICT", false); err != nil {
		return nil, err
	}
	if cfg.ChunkMaxWords, err = getPositiveInt("CHUNK_MAX_WORDS", 400); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getPositiveInt("TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize, err = getPositiveInt("EMBEDDING_BATCH_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.EmbeddingProbeTimeout, err = getDuration("EMBEDDING_PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.DraftRateBurst, err = getPositiveInt("DRAFT_RATE_BURST", 5); err != nil {
		return nil, err
	}

	rateStr := getEnv("DRAFT_RATE_LIMIT", "2")
	cfg.DraftRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("DRAFT_RATE_LIMIT must be a valid number: %w", err)
	}
	if cfg.DraftRateLimit < 0 {
		return nil, fmt.Errorf("DRAFT_RATE_LIMIT must not be negative")
	}

	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	switch cfg.VectorIndex {
	case IndexFlat, IndexQdrant, IndexNone:
	default:
		return nil, fmt.Errorf("VECTOR_INDEX must be one of %q, %q, %q, got %q", IndexFlat, IndexQdrant, IndexNone, cfg.VectorIndex)
	}

	if cfg.KBStrict {
		info, err := os.Stat(cfg.KBDir)
		if err != nil {
			return nil, fmt.Errorf("KB_DIR %q is not accessible: %w", cfg.KBDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("KB_DIR %q is not a directory", cfg.KBDir)
		}
	}

	// Create the directory holding the draft database if it doesn't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory, then walks up a few
// parents looking for one (project root when run from a subdirectory).
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", raw)
	}
}
