package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// NATS configuration
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration
	MaxConcurrency    int

	// LLM configuration
	LLMProvider  string // "anthropic" or "openai"
	LLMAPIKey    string
	LLMModel     string
	LLMBaseURL   string
	LLMTimeout   time.Duration
	LLMRateLimit float64 // requests per second, 0 disables
	LLMMaxTokens int

	// Embedding configuration (OpenAI-compatible endpoint)
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration

	// Vector index configuration
	VectorBackend string // "postgres", "sqlite" or "none"
	VectorDSN     string
	VectorTimeout time.Duration

	// Redis configuration
	RedisURL     string
	RedisTimeout time.Duration

	// Session configuration
	SessionTTL      time.Duration
	HistoryCapacity int
	ShortTermTurns  int

	// Pipeline configuration
	NoMatchConfidence  float64
	RetrievalTopK      int
	MaxTips            int
	TranslationTimeout time.Duration
	MaxMessageChars    int

	// Service configuration
	ServiceName string
	LogLevel    string
	OpsAddr     string
}

// Load reads configuration from the environment. Call godotenv.Load first
// when a .env file should be honoured.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom resolves configuration through v, so callers can bind command
// line flags to the same keys before loading.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		// NATS settings
		NatsURL:           v.GetString("NATS_URL"),
		NatsSubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		NatsTimeout:       v.GetDuration("NATS_TIMEOUT"),
		MaxConcurrency:    v.GetInt("MAX_CONCURRENCY"),

		// LLM settings
		LLMProvider:  strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMAPIKey:    v.GetString("LLM_API_KEY"),
		LLMModel:     v.GetString("LLM_MODEL"),
		LLMBaseURL:   v.GetString("LLM_BASE_URL"),
		LLMTimeout:   v.GetDuration("LLM_TIMEOUT"),
		LLMRateLimit: v.GetFloat64("LLM_RATE_LIMIT"),
		LLMMaxTokens: v.GetInt("LLM_MAX_TOKENS"),

		// Embedding settings
		EmbeddingAPIKey:     v.GetString("EMBEDDING_API_KEY"),
		EmbeddingBaseURL:    v.GetString("EMBEDDING_BASE_URL"),
		EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
		EmbeddingDimensions: v.GetInt("EMBEDDING_DIMENSIONS"),
		EmbeddingTimeout:    v.GetDuration("EMBEDDING_TIMEOUT"),

		// Vector index settings
		VectorBackend: strings.ToLower(v.GetString("VECTOR_BACKEND")),
		VectorDSN:     v.GetString("VECTOR_DSN"),
		VectorTimeout: v.GetDuration("VECTOR_TIMEOUT"),

		// Redis settings
		RedisURL:     v.GetString("REDIS_URL"),
		RedisTimeout: v.GetDuration("REDIS_TIMEOUT"),

		// Session settings
		SessionTTL:      v.GetDuration("SESSION_TTL"),
		HistoryCapacity: v.GetInt("HISTORY_CAPACITY"),
		ShortTermTurns:  v.GetInt("SHORT_TERM_TURNS"),

		// Pipeline settings
		NoMatchConfidence:  v.GetFloat64("INTENT_NO_MATCH_CONFIDENCE"),
		RetrievalTopK:      v.GetInt("RETRIEVAL_TOP_K"),
		MaxTips:            v.GetInt("COMPOSER_MAX_TIPS"),
		TranslationTimeout: v.GetDuration("TRANSLATION_TIMEOUT"),
		MaxMessageChars:    v.GetInt("MAX_MESSAGE_CHARS"),

		// Service settings
		ServiceName: v.GetString("SERVICE_NAME"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		OpsAddr:     v.GetString("OPS_ADDR"),
	}

	if cfg.EmbeddingAPIKey == "" && cfg.LLMProvider == "openai" {
		cfg.EmbeddingAPIKey = cfg.LLMAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_SUBJECT_PREFIX", "farmer")
	v.SetDefault("NATS_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_CONCURRENCY", 32)

	v.SetDefault("LLM_PROVIDER", "anthropic")
	v.SetDefault("LLM_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("LLM_TIMEOUT", 30*time.Second)
	v.SetDefault("LLM_RATE_LIMIT", 5.0)
	v.SetDefault("LLM_MAX_TOKENS", 1000)

	v.SetDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("EMBEDDING_DIMENSIONS", 1536)
	v.SetDefault("EMBEDDING_TIMEOUT", 10*time.Second)

	v.SetDefault("VECTOR_BACKEND", "sqlite")
	v.SetDefault("VECTOR_DSN", "./data/knowledge.db")
	v.SetDefault("VECTOR_TIMEOUT", 5*time.Second)

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_TIMEOUT", 2*time.Second)

	v.SetDefault("SESSION_TTL", 2*time.Hour)
	v.SetDefault("HISTORY_CAPACITY", 20)
	v.SetDefault("SHORT_TERM_TURNS", 5)

	v.SetDefault("INTENT_NO_MATCH_CONFIDENCE", 0.3)
	v.SetDefault("RETRIEVAL_TOP_K", 3)
	v.SetDefault("COMPOSER_MAX_TIPS", 3)
	v.SetDefault("TRANSLATION_TIMEOUT", 15*time.Second)
	v.SetDefault("MAX_MESSAGE_CHARS", 2000)

	v.SetDefault("SERVICE_NAME", "krishiseva")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OPS_ADDR", ":9090")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER must be anthropic or openai, got %q", c.LLMProvider)
	}
	switch c.VectorBackend {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be postgres, sqlite or none, got %q", c.VectorBackend)
	}
	if c.VectorBackend != "none" && c.VectorDSN == "" {
		return fmt.Errorf("VECTOR_DSN cannot be empty for backend %s", c.VectorBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("HISTORY_CAPACITY must be > 0")
	}
	if c.ShortTermTurns <= 0 || c.ShortTermTurns > c.HistoryCapacity {
		return fmt.Errorf("SHORT_TERM_TURNS must be between 1 and HISTORY_CAPACITY")
	}
	if c.NoMatchConfidence < 0 || c.NoMatchConfidence > 1 {
		return fmt.Errorf("INTENT_NO_MATCH_CONFIDENCE must be within [0,1]")
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be > 0")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be > 0")
	}
	if c.MaxMessageChars <= 0 {
		return fmt.Errorf("MAX_MESSAGE_CHARS must be > 0")
	}
	return nil
}

// Subject returns the NATS subject for an operation, e.g. "farmer.ask".
func (c *Config) Subject(op string) string {
	return c.NatsSubjectPrefix + "." + op
}
