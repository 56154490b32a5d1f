package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/krishiseva/internal/config"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		LLMProvider:         "anthropic",
		LLMAPIKey:           "test-key",
		LLMTimeout:          time.Second,
		EmbeddingDimensions: 3,
		EmbeddingTimeout:    time.Second,
		VectorBackend:       "none",
		VectorTimeout:       time.Second,
		RedisURL:            redisURL,
		RedisTimeout:        time.Second,
		SessionTTL:          time.Hour,
		HistoryCapacity:     20,
		ShortTermTurns:      5,
		NoMatchConfidence:   0.3,
		RetrievalTopK:       3,
		MaxTips:             3,
		TranslationTimeout:  time.Second,
		MaxMessageChars:     2000,
	}
}

func TestNew_WiresPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(context.Background(), testConfig("redis://"+mr.Addr()+"/0"), log.New(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Handler)
	assert.Nil(t, a.Embedder)
	assert.Nil(t, a.Index)
	assert.NoError(t, a.Sessions.Ping(context.Background()))
}

func TestNew_RedisDownFallsBackToLocal(t *testing.T) {
	a, err := New(context.Background(), testConfig("redis://127.0.0.1:1/0"), log.New(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Handler)
	assert.NoError(t, a.Sessions.Ping(context.Background()))
}

func TestOpenIndex(t *testing.T) {
	cfg := testConfig("")

	idx, err := OpenIndex(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, idx)

	cfg.VectorBackend = "sqlite"
	cfg.VectorDSN = ":memory:"
	idx, err = OpenIndex(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, idx)
	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, idx.Close())

	cfg.VectorBackend = "mongo"
	_, err = OpenIndex(context.Background(), cfg)
	assert.Error(t, err)
}
