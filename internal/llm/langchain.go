package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// LangChainModel adapts a LangChainGo model to LanguageModel.
type LangChainModel struct {
	model    llms.Model
	timeout  time.Duration
	limiter  *rate.Limiter
	generate GenerationOptions
	classify GenerationOptions
	logger   *log.Logger
}

// ModelConfig selects and tunes the backend.
type ModelConfig struct {
	Provider  string // "anthropic" or "openai"
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables
	MaxTokens int
	Logger    *log.Logger
}

// NewLangChainModel builds the provider client named in cfg.
func NewLangChainModel(cfg ModelConfig) (*LangChainModel, error) {
	var (
		model llms.Model
		err   error
	)

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewLangChainModelFrom(model, cfg), nil
}

// NewLangChainModelFrom wraps an already constructed model.
func NewLangChainModelFrom(model llms.Model, cfg ModelConfig) *LangChainModel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &LangChainModel{
		model:    model,
		timeout:  cfg.Timeout,
		limiter:  limiter,
		generate: GenerationOptions{MaxTokens: cfg.MaxTokens, Temperature: 0.7},
		classify: GenerationOptions{MaxTokens: 200, Temperature: 0.1},
		logger:   cfg.Logger,
	}
}

func (m *LangChainModel) Generate(ctx context.Context, prompt string) (string, error) {
	return m.call(ctx, prompt, m.generate)
}

func (m *LangChainModel) Classify(ctx context.Context, prompt string) (string, error) {
	return m.call(ctx, prompt, m.classify)
}

func (m *LangChainModel) call(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, m.model, prompt,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}

	m.logger.Debug("model call finished", "duration", time.Since(start), "chars", len(out))
	return out, nil
}
