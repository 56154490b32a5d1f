package intent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/krishiseva/internal/llm"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/avvvet/krishiseva/internal/prompts"
	"github.com/charmbracelet/log"
)

var (
	intentLine     = regexp.MustCompile(`(?i)Intent:\s*\[?\s*([a-z_]+)`)
	confidenceLine = regexp.MustCompile(`(?i)Confidence:\s*\[?\s*([\d.]+)`)
	reasoningLine  = regexp.MustCompile(`(?is)Reasoning:\s*\[?(.+)`)
)

// ErrUnparseable is returned when a model answer lacks an Intent line or
// names an intent outside the closed set.
var ErrUnparseable = errors.New("unparseable classification")

// LLMClassifier asks a language model for the intent.
type LLMClassifier struct {
	model   llm.LanguageModel
	timeout time.Duration
	logger  *log.Logger
}

// NewLLMClassifier creates a classifier bounded by timeout per call.
func NewLLMClassifier(model llm.LanguageModel, timeout time.Duration, logger *log.Logger) *LLMClassifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LLMClassifier{model: model, timeout: timeout, logger: logger}
}

// Classify never returns an error: any failure yields fallback as a
// Degraded outcome.
func (c *LLMClassifier) Classify(ctx context.Context, text, language string, fallback models.IntentResult) models.Outcome[models.IntentResult] {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.model.Classify(ctx, prompts.BuildClassificationPrompt(text, language))
	if err != nil {
		c.logger.Warn("LLM classification failed", "err", err)
		return models.Degraded(fallback, models.ReasonClassificationDegraded, err)
	}

	res, err := ParseClassification(raw)
	if err != nil {
		c.logger.Warn("LLM classification unparseable", "err", err)
		return models.Degraded(fallback, models.ReasonClassificationDegraded, err)
	}
	return models.Ok(res)
}

// ParseClassification reads the Intent, Confidence and Reasoning lines.
// A missing confidence defaults to 0.5.
func ParseClassification(raw string) (models.IntentResult, error) {
	m := intentLine.FindStringSubmatch(raw)
	if m == nil {
		return models.IntentResult{}, ErrUnparseable
	}

	name := strings.ToLower(m[1])
	if name == string(models.IntentGeneralQuery) {
		name = string(models.IntentGeneralAdvice)
	}
	in, ok := models.ParseIntent(name)
	if !ok {
		return models.IntentResult{}, fmt.Errorf("%w: unknown intent %q", ErrUnparseable, m[1])
	}

	confidence := 0.5
	if cm := confidenceLine.FindStringSubmatch(raw); cm != nil {
		if v, err := strconv.ParseFloat(strings.TrimRight(cm[1], "."), 64); err == nil {
			confidence = v
		}
	}

	reasoning := "LLM classification"
	if rm := reasoningLine.FindStringSubmatch(raw); rm != nil {
		reasoning = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rm[1]), "]"))
	}

	return models.IntentResult{
		PrimaryIntent: in,
		Confidence:    models.ClampConfidence(confidence),
		Method:        models.MethodLLM,
		Reasoning:     reasoning,
	}, nil
}
