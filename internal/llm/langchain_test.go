package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestLangChainModel_Generate(t *testing.T) {
	m := NewLangChainModelFrom(fake.NewFakeLLM([]string{"  Intent: pest_management  "}), ModelConfig{
		Timeout:   time.Second,
		RateLimit: 100,
	})

	out, err := m.Classify(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, "Intent: pest_management", out)
}

func TestLangChainModel_EmptyResponse(t *testing.T) {
	m := NewLangChainModelFrom(fake.NewFakeLLM([]string{"   "}), ModelConfig{})

	_, err := m.Generate(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewLangChainModel_UnknownProvider(t *testing.T) {
	_, err := NewLangChainModel(ModelConfig{Provider: "gemini"})
	assert.Error(t, err)
}
