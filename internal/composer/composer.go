package composer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avvvet/krishiseva/internal/llm"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/avvvet/krishiseva/internal/prompts"
	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
)

const (
	DefaultMaxTips            = 3
	DefaultTimeout            = 30 * time.Second
	DefaultTranslationTimeout = 15 * time.Second

	suggestionsHeader = "Additional suggestions:"
	bullet            = "• "
)

// Options configures a Composer.
type Options struct {
	MaxTips            int
	Timeout            time.Duration
	TranslationTimeout time.Duration
	Logger             *log.Logger
}

// Request is everything needed to answer one question.
type Request struct {
	Query      string
	Docs       []models.KnowledgeDocument
	Session    models.SessionContext
	Language   string
	Intent     models.Intent
	Confidence float64
	// History is the formatted recent conversation, may be empty.
	History string
}

// Composer generates, parses and post-processes answers.
type Composer struct {
	model      llm.LanguageModel
	translator llm.Translator
	markdown   goldmark.Markdown
	opts       Options
	logger     *log.Logger
}

// New creates a composer. translator may be nil, in which case appended
// tips stay in English.
func New(model llm.LanguageModel, translator llm.Translator, opts Options) *Composer {
	if opts.MaxTips <= 0 {
		opts.MaxTips = DefaultMaxTips
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.TranslationTimeout <= 0 {
		opts.TranslationTimeout = DefaultTranslationTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Composer{
		model:      model,
		translator: translator,
		markdown:   newMarkdown(),
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Compose answers req. It always returns a usable result: a failed
// generation yields the canned answer for the intent and a Degraded
// outcome.
func (c *Composer) Compose(ctx context.Context, req Request) models.Outcome[models.ResponseResult] {
	var (
		reason string
		cause  error
	)

	answer, err := c.generate(ctx, req)
	if err != nil {
		c.logger.Warn("generation failed, using canned answer", "intent", req.Intent, "error", err)
		main, explanation := CannedAnswer(req.Intent, req.Language)
		answer = prompts.StructuredAnswer{MainAnswer: main, Context: explanation}
		reason, cause = models.ReasonGenerationFailure, err
	}

	main, explanation, terr := c.postProcess(ctx, answer, req)
	if terr != nil && reason == "" {
		reason, cause = models.ReasonTranslationSkipped, terr
	}

	res := models.ResponseResult{
		MainAnswer:  main,
		ContextText: explanation,
		Formatted:   c.Format(main, explanation, req.Language),
		Intent:      req.Intent,
		Confidence:  req.Confidence,
		Language:    req.Language,
		SourcesUsed: len(req.Docs),
		Suggestions: Suggestions(req.Intent, req.Language),
	}
	if reason != "" {
		return models.Degraded(res, reason, cause)
	}
	return models.Ok(res)
}

func (c *Composer) generate(ctx context.Context, req Request) (prompts.StructuredAnswer, error) {
	if c.model == nil {
		return prompts.StructuredAnswer{}, errors.New("no language model configured")
	}

	prompt := prompts.BuildResponsePrompt(prompts.ResponseInput{
		Query:    req.Query,
		Intent:   req.Intent,
		Language: req.Language,
		Session:  req.Session,
		Docs:     req.Docs,
		History:  req.History,
	})

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	raw, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return prompts.StructuredAnswer{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return prompts.StructuredAnswer{}, llm.ErrEmptyResponse
	}

	parsed := prompts.ParseStructuredAnswer(raw)
	if strings.TrimSpace(parsed.MainAnswer) == "" {
		return prompts.StructuredAnswer{}, llm.ErrEmptyResponse
	}
	return parsed, nil
}

// postProcess cleans both segments and appends tips and disclaimers to the
// explanation. A failing step leaves its input untouched. The returned
// error is set only when translation of the appended block was skipped.
func (c *Composer) postProcess(ctx context.Context, a prompts.StructuredAnswer, req Request) (main, explanation string, translateErr error) {
	main = c.soft("clean main answer", a.MainAnswer, CleanText)
	explanation = c.soft("clean explanation", a.Context, CleanText)

	block := c.soft("build suggestions", "", func(string) string {
		return c.appendix(req.Intent, req.Session)
	})
	if block == "" {
		return main, explanation, nil
	}

	if req.Language != "" && req.Language != "en" && c.translator != nil {
		tctx, cancel := context.WithTimeout(ctx, c.opts.TranslationTimeout)
		translated, err := c.translator.Translate(tctx, block, "en", req.Language, "agricultural advice")
		cancel()
		switch {
		case err != nil:
			c.logger.Warn("translation skipped, keeping English suggestions", "language", req.Language, "error", err)
			translateErr = err
		case strings.TrimSpace(translated) == "":
			translateErr = llm.ErrEmptyResponse
		default:
			block = translated
		}
	} else if req.Language != "" && req.Language != "en" {
		translateErr = errors.New("no translator configured")
	}

	if explanation == "" {
		return main, block, translateErr
	}
	return main, explanation + "\n\n" + block, translateErr
}

// appendix builds the tip and disclaimer block in English.
func (c *Composer) appendix(in models.Intent, sc models.SessionContext) string {
	tips := actionTips[in]
	if len(tips) > c.opts.MaxTips {
		tips = tips[:c.opts.MaxTips]
	}
	if sc.Location != "" {
		tips = append(append([]string(nil), tips...), fmt.Sprintf(locationTip, titleCase(sc.Location)))
	}

	var parts []string
	if len(tips) > 0 {
		lines := make([]string, 0, len(tips)+1)
		lines = append(lines, suggestionsHeader)
		for _, t := range tips {
			lines = append(lines, bullet+t)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if d, ok := disclaimers[in]; ok {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n\n")
}

// soft runs one post-processing step and returns in unchanged if it panics.
func (c *Composer) soft(step, in string, f func(string) string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("post-processing step failed", "step", step, "panic", r)
			out = in
		}
	}()
	return f(in)
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace and makes sure non-empty text ends with
// terminal punctuation.
func CleanText(text string) string {
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	if !HasTerminalPunctuation(text) {
		text += "."
	}
	return text
}

// HasTerminalPunctuation reports whether text ends with . ! ? or the
// Devanagari danda.
func HasTerminalPunctuation(text string) bool {
	text = strings.TrimSpace(text)
	for _, p := range []string{".", "!", "?", "।"} {
		if strings.HasSuffix(text, p) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
