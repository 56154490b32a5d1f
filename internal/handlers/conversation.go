package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avvvet/krishiseva/internal/composer"
	"github.com/avvvet/krishiseva/internal/intent"
	"github.com/avvvet/krishiseva/internal/knowledge"
	"github.com/avvvet/krishiseva/internal/language"
	"github.com/avvvet/krishiseva/internal/memory"
	"github.com/avvvet/krishiseva/internal/metrics"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/avvvet/krishiseva/internal/prompts"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Stage names, also used as metric labels.
const (
	StageReceive  = "receive_message"
	StageDetect   = "detect_language"
	StageLoad     = "load_context"
	StageExtract  = "extract_context"
	StageClassify = "classify_intent"
	StageRetrieve = "retrieve_knowledge"
	StageCompose  = "compose_response"
	StagePersist  = "persist_history"
)

const (
	DefaultMaxMessageChars = 2000
	fallbackConfidence     = 0.1
)

// Options configures a ConversationHandler.
type Options struct {
	TopK            int
	ShortTermTurns  int
	MaxMessageChars int
	Metrics         *metrics.Recorder
	Now             func() time.Time
	Logger          *log.Logger
}

// ConversationHandler runs one farmer question through the pipeline.
type ConversationHandler struct {
	detector   *language.Detector
	sessions   *memory.ContextManager
	classifier *intent.HybridClassifier
	retriever  *knowledge.Retriever
	composer   *composer.Composer
	metrics    *metrics.Recorder
	opts       Options
	logger     *log.Logger
}

func NewConversationHandler(
	detector *language.Detector,
	sessions *memory.ContextManager,
	classifier *intent.HybridClassifier,
	retriever *knowledge.Retriever,
	comp *composer.Composer,
	opts Options,
) *ConversationHandler {
	if opts.TopK <= 0 {
		opts.TopK = knowledge.DefaultTopK
	}
	if opts.ShortTermTurns <= 0 {
		opts.ShortTermTurns = memory.DefaultShortTermTurns
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = DefaultMaxMessageChars
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &ConversationHandler{
		detector:   detector,
		sessions:   sessions,
		classifier: classifier,
		retriever:  retriever,
		composer:   comp,
		metrics:    opts.Metrics,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// ValidateRequest rejects requests that must not enter the pipeline.
func (h *ConversationHandler) ValidateRequest(req *models.AskRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", models.ErrValidation)
	}
	if n := utf8.RuneCountInString(req.Message); n > h.opts.MaxMessageChars {
		return fmt.Errorf("%w: message has %d characters, limit is %d", models.ErrValidation, n, h.opts.MaxMessageChars)
	}
	return nil
}

// turn carries the state of one request between stages.
type turn struct {
	id        string
	req       models.AskRequest
	message   string
	detection language.Detection
	language  string
	session   models.SessionContext
	update    models.ContextUpdate
	intent    models.IntentResult
	docs      []models.KnowledgeDocument
	result    models.ResponseResult
	notes     []models.StageNote
}

// Ask answers one question. It never returns an error: invalid input gets
// a validation response, and any stage failure or panic ends in the
// localized fallback answer.
func (h *ConversationHandler) Ask(ctx context.Context, req models.AskRequest) models.AskResponse {
	t := &turn{id: uuid.NewString(), req: req}

	if err := h.ValidateRequest(&req); err != nil {
		h.metrics.CountRequest(metrics.ResultInvalid)
		h.logger.Warn("rejected request", "request_id", t.id, "user", req.UserID, "error", err)
		return h.validationResponse(t, err)
	}

	done := h.metrics.RequestStarted()
	logger := h.logger.With("request_id", t.id, "user", req.UserID)

	if err := h.run(ctx, t); err != nil {
		logger.Error("pipeline failed, returning fallback", "error", err)
		done(metrics.ResultFallback)
		return h.fallbackResponse(t, err)
	}

	logger.Info("answered question",
		"intent", t.intent.PrimaryIntent,
		"method", t.intent.Method,
		"confidence", t.intent.Confidence,
		"language", t.language,
		"sources", t.result.SourcesUsed,
	)
	done(metrics.ResultSuccess)
	return h.successResponse(t)
}

func (h *ConversationHandler) run(ctx context.Context, t *turn) error {
	if _, err := stage(h, t, StageReceive, func() models.Outcome[string] {
		t.message = strings.TrimSpace(t.req.Message)
		return models.Ok(t.message)
	}); err != nil {
		return err
	}

	if _, err := stage(h, t, StageDetect, func() models.Outcome[language.Detection] {
		t.detection = h.detector.Detect(t.message)
		t.language = h.responseLanguage(t.req.PreferredLanguage, t.detection.Language)
		return models.Ok(t.detection)
	}); err != nil {
		return err
	}

	var err error
	if t.session, err = stage(h, t, StageLoad, func() models.Outcome[models.SessionContext] {
		return h.sessions.Get(ctx, t.req.UserID)
	}); err != nil {
		return err
	}

	if t.session, err = stage(h, t, StageExtract, func() models.Outcome[models.SessionContext] {
		t.update = memory.Extract(t.message, t.session)
		return models.Ok(t.session.Apply(t.update))
	}); err != nil {
		return err
	}

	if t.intent, err = stage(h, t, StageClassify, func() models.Outcome[models.IntentResult] {
		return h.classifier.Classify(ctx, t.message, t.detection.Language)
	}); err != nil {
		return err
	}

	if t.docs, err = stage(h, t, StageRetrieve, func() models.Outcome[[]models.KnowledgeDocument] {
		category := knowledge.CategoryFor(t.intent.PrimaryIntent)
		return h.retriever.Retrieve(ctx, t.message, category, h.opts.TopK)
	}); err != nil {
		return err
	}

	if t.result, err = stage(h, t, StageCompose, func() models.Outcome[models.ResponseResult] {
		return h.composer.Compose(ctx, composer.Request{
			Query:      t.message,
			Docs:       t.docs,
			Session:    t.session,
			Language:   t.language,
			Intent:     t.intent.PrimaryIntent,
			Confidence: t.intent.Confidence,
			History:    h.sessions.FormattedHistory(ctx, t.req.UserID, h.opts.ShortTermTurns),
		})
	}); err != nil {
		return err
	}

	_, err = stage(h, t, StagePersist, func() models.Outcome[int] {
		return h.persist(ctx, t)
	})
	return err
}

// persist writes the merged context and both turns. Failures degrade to
// the in-process store inside the manager.
func (h *ConversationHandler) persist(ctx context.Context, t *turn) models.Outcome[int] {
	u := t.update
	u.ConversationCount = models.Ptr(t.session.ConversationCount + 1)
	u.PreferredLanguage = models.Ptr(models.SessionLanguage(t.language))

	updated := h.sessions.Update(ctx, t.req.UserID, u)
	t.session = updated.Value

	now := h.opts.Now()
	confidence := t.intent.Confidence
	written := h.sessions.AppendHistory(ctx, t.req.UserID,
		models.HistoryEntry{
			Role:      models.RoleUser,
			Content:   t.message,
			Language:  t.detection.Language,
			Timestamp: now,
			Intent:    string(t.intent.PrimaryIntent),
		},
		models.HistoryEntry{
			Role:       models.RoleAssistant,
			Content:    joinAnswer(t.result.MainAnswer, t.result.ContextText),
			Language:   t.language,
			Timestamp:  now,
			Intent:     string(t.intent.PrimaryIntent),
			Confidence: &confidence,
		},
	)

	if written.Status != models.StatusOK {
		return written
	}
	if updated.Status != models.StatusOK {
		return models.Degraded(written.Value, updated.Reason, updated.Err)
	}
	return written
}

// stage runs f as one named pipeline stage. A Failed outcome or a panic
// becomes an error, which sends the request to the fallback answer.
func stage[T any](h *ConversationHandler, t *turn, name string, f func() models.Outcome[T]) (v T, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", name, r)
			note := models.Failed[T](models.ReasonPipelineFailure, err).Note(name)
			t.notes = append(t.notes, note)
			h.metrics.ObserveStage(note, time.Since(start))
		}
	}()

	out := f()
	note := out.Note(name)
	t.notes = append(t.notes, note)
	h.metrics.ObserveStage(note, time.Since(start))

	switch out.Status {
	case models.StatusFailed:
		return v, fmt.Errorf("stage %s failed: %w", name, out.Err)
	case models.StatusDegraded:
		h.logger.Warn("stage degraded", "request_id", t.id, "stage", name, "reason", out.Reason, "error", out.Err)
	}
	return out.Value, nil
}

// responseLanguage prefers an explicit, supported preference over the
// detected language.
func (h *ConversationHandler) responseLanguage(preferred, detected string) string {
	if code := language.Normalize(preferred); code != "" && language.Supported(code) {
		return code
	}
	if detected == "" {
		return language.Base
	}
	return detected
}

func (h *ConversationHandler) successResponse(t *turn) models.AskResponse {
	r := t.result
	return models.AskResponse{
		Success:     true,
		Response:    r.Formatted,
		MainAnswer:  r.MainAnswer,
		Context:     r.ContextText,
		Intent:      string(r.Intent),
		Confidence:  r.Confidence,
		Language:    r.Language,
		SourcesUsed: r.SourcesUsed,
		Suggestions: r.Suggestions,
		Metadata:    h.metadata(t, false),
	}
}

var errorSuggestions = map[string][]string{
	"en": {"Try rephrasing your question", "Contact local agricultural officer"},
	"ml": {"നിങ്ങളുടെ ചോദ്യം മാറ്റി പറയാൻ ശ്രമിക്കുക", "പ്രാദേശിക കൃഷി ഉദ്യോഗസ്ഥനെ ബന്ധപ്പെടുക"},
}

func (h *ConversationHandler) fallbackResponse(t *turn, cause error) models.AskResponse {
	lang := t.language
	if lang == "" {
		lang = h.detector.Detect(t.req.Message).Language
	}
	main, explanation := prompts.Fallback(lang)
	suggestions, ok := errorSuggestions[lang]
	if !ok {
		suggestions = errorSuggestions["en"]
	}

	code := models.ErrorPipeline
	msg := cause.Error()
	return models.AskResponse{
		Success:     false,
		Response:    h.composer.Format(main, explanation, lang),
		MainAnswer:  main,
		Context:     explanation,
		Intent:      string(models.IntentGeneralQuery),
		Confidence:  fallbackConfidence,
		Language:    lang,
		Suggestions: append([]string(nil), suggestions...),
		Metadata:    h.metadata(t, true),
		ErrorCode:   &code,
		Error:       &msg,
	}
}

func (h *ConversationHandler) validationResponse(t *turn, cause error) models.AskResponse {
	lang := h.responseLanguage(t.req.PreferredLanguage, language.Base)
	main, explanation := prompts.Fallback(lang)
	code := models.ErrorValidation
	msg := cause.Error()
	return models.AskResponse{
		Success:     false,
		MainAnswer:  main,
		Context:     explanation,
		Intent:      string(models.IntentGeneralQuery),
		Language:    lang,
		Suggestions: []string{},
		Metadata:    models.AskMetadata{RequestID: t.id},
		ErrorCode:   &code,
		Error:       &msg,
	}
}

func (h *ConversationHandler) metadata(t *turn, fallback bool) models.AskMetadata {
	return models.AskMetadata{
		RequestID:          t.id,
		LanguageDetected:   t.detection.Language,
		LanguageConfidence: t.detection.Confidence,
		IntentMethod:       t.intent.Method,
		Stages:             t.notes,
		Fallback:           fallback,
		UserContext:        t.session,
	}
}

func joinAnswer(main, explanation string) string {
	if explanation == "" {
		return main
	}
	return main + "\n\n" + explanation
}
