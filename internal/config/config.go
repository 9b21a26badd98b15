// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server settings, pipeline thresholds, and search tuning.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// LLM Configuration
	GeminiAPIKey        string // Gemini API key for intent classification and entity extraction
	GeminiIntentModel   string // Gemini model for NLU (empty = default from genai package)
	GeminiEmbedderModel string // Gemini model for embeddings (empty = default from genai package)

	// Error tracking (Better Stack Errors via Sentry SDK)
	SentryToken       string // Better Stack Errors application token (empty = disabled)
	SentryHost        string // Better Stack Errors ingesting host
	SentryEnvironment string // Deployment environment name

	// Log shipping (Better Stack Logs)
	BetterstackToken    string // Better Stack Logs source token (empty = disabled)
	BetterstackEndpoint string // Better Stack Logs ingesting endpoint

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir       string // Data directory for SQLite database and vector store
	KBSeedPath    string // JSON seed file with knowledge base records
	TemplatesPath string // JSON file with response templates per intent

	// Pipeline Configuration (embedded)
	Chat ChatConfig

	// Search Configuration (embedded)
	Search SearchConfig
}

// ChatConfig holds pipeline routing and composition settings
type ChatConfig struct {
	// Routing thresholds
	TemplateConfidence float64 // Minimum intent confidence for direct template response (default: 0.85)
	SearchConfidence   float64 // Minimum intent confidence for search routing (default: 0.5)

	// Entity normalization
	FuzzyThreshold int // Minimum fuzzy match score for entity canonicalization (default: 75)

	// Conversation context
	HistoryLimit int // Maximum retained exchanges per session (default: 10)

	// Result cache
	CacheSize int // Maximum cached responses, evicted LRU (default: 1024)

	// NLU call budget
	NLUTimeout time.Duration // Per-request timeout for intent and entity calls (default: 15s)
}

// SearchConfig holds hybrid retrieval tuning
type SearchConfig struct {
	BM25Weight       float64       // Lexical score weight in hybrid blend (default: 0.4)
	SemanticWeight   float64       // Semantic score weight in hybrid blend (default: 0.6)
	ScoreThreshold   float64       // Minimum blended score to keep a result (default: 0.3)
	TopK             int           // Default number of results returned (default: 3)
	EmbeddingTimeout time.Duration // Per-call timeout for embedding requests (default: 30s)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// LLM Configuration
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiIntentModel:   getEnv("GEMINI_INTENT_MODEL", ""),
		GeminiEmbedderModel: getEnv("GEMINI_EMBEDDER_MODEL", ""),

		// Error tracking
		SentryToken:       getEnv("SENTRY_TOKEN", ""),
		SentryHost:        getEnv("SENTRY_HOST", "errors.betterstack.com"),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),

		// Log shipping
		BetterstackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterstackEndpoint: getEnv("BETTERSTACK_ENDPOINT", ""),

		// Metrics Authentication
		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		// Server Configuration
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Data Configuration
		DataDir:       getEnv("DATA_DIR", getDefaultDataDir()),
		KBSeedPath:    getEnv("KB_SEED_PATH", "./data/knowledge_base.json"),
		TemplatesPath: getEnv("TEMPLATES_PATH", "./data/templates.json"),

		// Pipeline Configuration
		Chat: ChatConfig{
			TemplateConfidence: getFloatEnv("TEMPLATE_CONFIDENCE", 0.85),
			SearchConfidence:   getFloatEnv("SEARCH_CONFIDENCE", 0.5),
			FuzzyThreshold:     getIntEnv("FUZZY_THRESHOLD", 75),
			HistoryLimit:       getIntEnv("HISTORY_LIMIT", 10),
			CacheSize:          getIntEnv("RESULT_CACHE_SIZE", 1024),
			NLUTimeout:         getDurationEnv("NLU_TIMEOUT", 15*time.Second),
		},

		// Search Configuration
		Search: SearchConfig{
			BM25Weight:       getFloatEnv("SEARCH_BM25_WEIGHT", 0.4),
			SemanticWeight:   getFloatEnv("SEARCH_SEMANTIC_WEIGHT", 0.6),
			ScoreThreshold:   getFloatEnv("SEARCH_SCORE_THRESHOLD", 0.3),
			TopK:             getIntEnv("SEARCH_TOP_K", 3),
			EmbeddingTimeout: getDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.KBSeedPath == "" {
		errs = append(errs, errors.New("KB_SEED_PATH is required"))
	}
	if c.TemplatesPath == "" {
		errs = append(errs, errors.New("TEMPLATES_PATH is required"))
	}
	if err := c.Chat.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chat config: %w", err))
	}
	if err := c.Search.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("search config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks pipeline threshold sanity
func (c *ChatConfig) Validate() error {
	var errs []error

	if c.TemplateConfidence < 0 || c.TemplateConfidence > 1 {
		errs = append(errs, fmt.Errorf("TEMPLATE_CONFIDENCE must be in [0,1], got %v", c.TemplateConfidence))
	}
	if c.SearchConfidence < 0 || c.SearchConfidence > 1 {
		errs = append(errs, fmt.Errorf("SEARCH_CONFIDENCE must be in [0,1], got %v", c.SearchConfidence))
	}
	if c.SearchConfidence > c.TemplateConfidence {
		errs = append(errs, fmt.Errorf("SEARCH_CONFIDENCE (%v) cannot exceed TEMPLATE_CONFIDENCE (%v)", c.SearchConfidence, c.TemplateConfidence))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("FUZZY_THRESHOLD must be in [0,100], got %d", c.FuzzyThreshold))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("RESULT_CACHE_SIZE must be positive, got %d", c.CacheSize))
	}
	if c.NLUTimeout <= 0 {
		errs = append(errs, fmt.Errorf("NLU_TIMEOUT must be positive, got %v", c.NLUTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks search tuning sanity
func (c *SearchConfig) Validate() error {
	var errs []error

	if c.BM25Weight < 0 || c.SemanticWeight < 0 {
		errs = append(errs, errors.New("search weights cannot be negative"))
	}
	if c.BM25Weight+c.SemanticWeight == 0 {
		errs = append(errs, errors.New("at least one search weight must be positive"))
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("SEARCH_SCORE_THRESHOLD must be in [0,1], got %v", c.ScoreThreshold))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_TOP_K must be positive, got %d", c.TopK))
	}
	if c.EmbeddingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_TIMEOUT must be positive, got %v", c.EmbeddingTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "kb.db")
}

// HasGemini returns true if the Gemini API key is configured.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
