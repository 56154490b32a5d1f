package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "farmer.ask", cfg.Subject("ask"))
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.HistoryCapacity)
	assert.Equal(t, 5, cfg.ShortTermTurns)
	assert.InDelta(t, 0.3, cfg.NoMatchConfidence, 1e-9)
	assert.Equal(t, "sqlite", cfg.VectorBackend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("HISTORY_CAPACITY", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 10, cfg.HistoryCapacity)
	// The OpenAI key doubles as the embedding key when none is set.
	assert.Equal(t, "sk-test", cfg.EmbeddingAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "gemini" }, true},
		{"unknown vector backend", func(c *Config) { c.VectorBackend = "chroma" }, true},
		{"missing dsn", func(c *Config) { c.VectorDSN = "" }, true},
		{"no dsn needed without index", func(c *Config) { c.VectorBackend = "none"; c.VectorDSN = "" }, false},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, true},
		{"window larger than capacity", func(c *Config) { c.ShortTermTurns = 50 }, true},
		{"confidence out of range", func(c *Config) { c.NoMatchConfidence = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
