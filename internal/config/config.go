package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every threshold and budget used by the answer pipeline lives here and is
// passed into component constructors explicitly, so multiple pipelines with
// different settings can coexist in one process.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	DBPath string

	// QdrantURL selects the vector search backend. When empty, the in-memory
	// backend is used instead of Qdrant.
	QdrantURL        string
	QdrantCollection string
	VectorSize       int

	EmbeddingBaseURL   string
	EmbeddingModelName string

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	// LLMRequestsPerMinute bounds the sustained request rate against the
	// generation model. Values <= 0 disable rate limiting.
	LLMRequestsPerMinute int

	EntailmentBaseURL string

	Retrieval  RetrievalConfig
	Context    ContextConfig
	Generation GenerationConfig
	Verify     VerifyConfig

	// QueryTimeoutSeconds bounds one full answer pipeline run. Zero disables
	// the deadline.
	QueryTimeoutSeconds int
}

// RetrievalConfig holds hybrid retrieval settings.
type RetrievalConfig struct {
	// TopK is the number of candidates returned after merging.
	TopK int
	// OverfetchFactor multiplies TopK for each sub-search to compensate for
	// rank-merging loss.
	OverfetchFactor int
	// Alpha weights the vector score against the keyword score when blending.
	Alpha float64
	// SimilarityThreshold drops candidates whose combined score falls below it.
	SimilarityThreshold float64
}

// ContextConfig holds context assembly settings.
type ContextConfig struct {
	// TokenBudget caps the total estimated token count of an assembled context.
	TokenBudget int
	// DedupThreshold is the token-overlap similarity above which a candidate is
	// skipped as a near-duplicate of an already accepted chunk.
	DedupThreshold float64
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	MaxTokens   int
	Temperature float64
	// MaxAttempts bounds retries against the completion model on transient
	// failures.
	MaxAttempts int
}

// VerifyConfig holds hallucination detection settings.
type VerifyConfig struct {
	// EntailmentThreshold is the minimum entailment score for a sentence to be
	// classified as supported.
	EntailmentThreshold float64
	// MinConfidence is the aggregate confidence below which the answer text is
	// withheld from the caller-visible field.
	MinConfidence float64
	// LengthWeighted weights each sentence's contribution to the aggregate
	// confidence by its length.
	LengthWeighted bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded
// automatically. Environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (next to go.mod)
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		DBPath:             getEnv("DB_PATH", "./data/studysource-ai.db"),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModel:           getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EntailmentBaseURL:  getEnv("ENTAILMENT_BASE_URL", "http://localhost:8082"),
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// VECTOR_SIZE must match the output dimension of the embeddings model.
	// If the embedding model changes dimension, the index must be rebuilt.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.Retrieval.TopK, err = getEnvInt("RETRIEVAL_TOP_K", 8); err != nil {
		return nil, err
	}
	if cfg.Retrieval.OverfetchFactor, err = getEnvInt("RETRIEVAL_OVERFETCH_FACTOR", 3); err != nil {
		return nil, err
	}
	if cfg.Retrieval.Alpha, err = getEnvFloat("RETRIEVAL_ALPHA", 0.7); err != nil {
		return nil, err
	}
	if cfg.Retrieval.SimilarityThreshold, err = getEnvFloat("SIMILARITY_THRESHOLD", 0.35); err != nil {
		return nil, err
	}

	if cfg.Context.TokenBudget, err = getEnvInt("CONTEXT_TOKEN_BUDGET", 2048); err != nil {
		return nil, err
	}
	if cfg.Context.DedupThreshold, err = getEnvFloat("DEDUP_THRESHOLD", 0.9); err != nil {
		return nil, err
	}

	if cfg.LLMRequestsPerMinute, err = getEnvInt("LLM_REQUESTS_PER_MINUTE", 60); err != nil {
		return nil, err
	}

	if cfg.Generation.MaxTokens, err = getEnvInt("GENERATION_MAX_TOKENS", 1024); err != nil {
		return nil, err
	}
	if cfg.Generation.Temperature, err = getEnvFloat("GENERATION_TEMPERATURE", 0.1); err != nil {
		return nil, err
	}
	if cfg.Generation.MaxAttempts, err = getEnvInt("GENERATION_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	if cfg.Verify.EntailmentThreshold, err = getEnvFloat("ENTAILMENT_THRESHOLD", 0.6); err != nil {
		return nil, err
	}
	if cfg.Verify.MinConfidence, err = getEnvFloat("MIN_CONFIDENCE", 0.7); err != nil {
		return nil, err
	}
	cfg.Verify.LengthWeighted = getEnvBool("CONFIDENCE_LENGTH_WEIGHTED", true)

	if cfg.QueryTimeoutSeconds, err = getEnvInt("QUERY_TIMEOUT_SECONDS", 60); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	// Create the data directory for the sqlite file if needed
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks that thresholds and budgets are in their legal ranges.
func validate(cfg *Config) error {
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be greater than 0")
	}
	if cfg.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("RETRIEVAL_OVERFETCH_FACTOR must be at least 1")
	}
	if cfg.Retrieval.Alpha < 0 || cfg.Retrieval.Alpha > 1 {
		return fmt.Errorf("RETRIEVAL_ALPHA must be between 0 and 1")
	}
	if cfg.Retrieval.SimilarityThreshold < 0 || cfg.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be between 0 and 1")
	}
	if cfg.Context.TokenBudget <= 0 {
		return fmt.Errorf("CONTEXT_TOKEN_BUDGET must be greater than 0")
	}
	if cfg.Context.DedupThreshold <= 0 || cfg.Context.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1]")
	}
	if cfg.Generation.MaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Verify.EntailmentThreshold < 0 || cfg.Verify.EntailmentThreshold > 1 {
		return fmt.Errorf("ENTAILMENT_THRESHOLD must be between 0 and 1")
	}
	if cfg.Verify.MinConfidence < 0 || cfg.Verify.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be between 0 and 1")
	}
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL: %q", value)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
