package llm

import (
	"context"
	"errors"
)

// LanguageModel defines the interface for text generation backends
type LanguageModel interface {
	// Generate answers a free-form prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Classify answers a classification prompt. Implementations use a low
	// temperature so the "Intent:" lines stay parseable.
	Classify(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector for the knowledge index
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Translator translates text between language codes. domainHint steers
// terminology, e.g. "agriculture".
type Translator interface {
	Translate(ctx context.Context, text, from, to, domainHint string) (string, error)
}

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// GenerationOptions controls a single completion
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}
