// Package app wires the pipeline components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/krishiseva/internal/composer"
	"github.com/avvvet/krishiseva/internal/config"
	"github.com/avvvet/krishiseva/internal/handlers"
	"github.com/avvvet/krishiseva/internal/intent"
	"github.com/avvvet/krishiseva/internal/knowledge"
	"github.com/avvvet/krishiseva/internal/language"
	"github.com/avvvet/krishiseva/internal/llm"
	"github.com/avvvet/krishiseva/internal/memory"
	"github.com/avvvet/krishiseva/internal/metrics"
	"github.com/charmbracelet/log"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Handler  *handlers.ConversationHandler
	Sessions *memory.ContextManager
	Metrics  *metrics.Recorder
	Model    llm.LanguageModel
	Embedder llm.Embedder
	// Index is nil when no vector backend is configured or reachable.
	Index knowledge.Index

	logger *log.Logger
}

// New builds the pipeline. Redis and the vector index are optional: when
// they cannot be reached the app starts on the local session store and
// keyword retrieval, and logs why.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg, Metrics: metrics.New(), logger: logger}

	var primary memory.Store
	store, err := memory.NewRedisStore(cfg.RedisURL, cfg.RedisTimeout)
	if err != nil {
		logger.Warn("redis unavailable, sessions are kept in process", "url", cfg.RedisURL, "error", err)
	} else {
		primary = store
	}
	a.Sessions = memory.NewContextManager(primary, memory.Options{
		TTL:             cfg.SessionTTL,
		HistoryCapacity: cfg.HistoryCapacity,
		Logger:          logger.WithPrefix("memory"),
	})

	model, err := llm.NewLangChainModel(llm.ModelConfig{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.LLMBaseURL,
		Timeout:   cfg.LLMTimeout,
		RateLimit: cfg.LLMRateLimit,
		MaxTokens: cfg.LLMMaxTokens,
		Logger:    logger.WithPrefix("llm"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Model = model

	if cfg.EmbeddingAPIKey != "" {
		a.Embedder = llm.NewOpenAIEmbedder(llm.EmbedderConfig{
			APIKey:     cfg.EmbeddingAPIKey,
			BaseURL:    cfg.EmbeddingBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.EmbeddingTimeout,
		})
	} else {
		logger.Warn("no embedding key configured, retrieval uses keyword scoring")
	}

	if a.Embedder != nil {
		idx, err := OpenIndex(ctx, cfg)
		switch {
		case err != nil:
			logger.Warn("vector index unavailable, retrieval uses keyword scoring", "backend", cfg.VectorBackend, "error", err)
		case idx != nil:
			a.Index = idx
		}
	}

	var (
		embedder llm.Embedder
		index    knowledge.VectorIndex
	)
	if a.Embedder != nil && a.Index != nil {
		embedder, index = a.Embedder, a.Index
	}
	retriever := knowledge.NewRetriever(embedder, index, knowledge.RetrieverOptions{
		Timeout: cfg.VectorTimeout + cfg.EmbeddingTimeout,
		Logger:  logger.WithPrefix("knowledge"),
	})

	classifier := intent.NewHybridClassifier(
		intent.NewRuleClassifier(cfg.NoMatchConfidence),
		intent.NewLLMClassifier(model, cfg.LLMTimeout, logger.WithPrefix("intent")),
	)

	comp := composer.New(model, llm.NewLLMTranslator(model), composer.Options{
		MaxTips:            cfg.MaxTips,
		Timeout:            cfg.LLMTimeout,
		TranslationTimeout: cfg.TranslationTimeout,
		Logger:             logger.WithPrefix("composer"),
	})

	a.Handler = handlers.NewConversationHandler(
		language.NewDetector(),
		a.Sessions,
		classifier,
		retriever,
		comp,
		handlers.Options{
			TopK:            cfg.RetrievalTopK,
			ShortTermTurns:  cfg.ShortTermTurns,
			MaxMessageChars: cfg.MaxMessageChars,
			Metrics:         a.Metrics,
			Logger:          logger.WithPrefix("pipeline"),
		},
	)
	return a, nil
}

// OpenIndex opens the configured vector backend. It returns nil, nil for
// backend "none".
func OpenIndex(ctx context.Context, cfg *config.Config) (knowledge.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.VectorTimeout*2)
	defer cancel()

	switch cfg.VectorBackend {
	case "postgres":
		idx, err := knowledge.OpenPGVectorIndex(ctx, cfg.VectorDSN, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "sqlite":
		idx, err := knowledge.OpenSQLiteIndex(ctx, cfg.VectorDSN, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// Close releases the session store and the vector index.
func (a *App) Close() error {
	var errs []error
	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close vector index: %w", err))
		}
	}
	return errors.Join(errs...)
}
