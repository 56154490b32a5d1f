package handlers

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/krishiseva/internal/composer"
	"github.com/avvvet/krishiseva/internal/intent"
	"github.com/avvvet/krishiseva/internal/knowledge"
	"github.com/avvvet/krishiseva/internal/language"
	"github.com/avvvet/krishiseva/internal/memory"
	"github.com/avvvet/krishiseva/internal/metrics"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLanguageModel) Classify(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

// brokenIndex fails every query.
type brokenIndex struct{}

func (brokenIndex) Query(context.Context, []float32, int, string) ([]knowledge.Match, error) {
	return nil, errors.New("vector index unavailable")
}

type fixture struct {
	handler  *ConversationHandler
	model    *MockLanguageModel
	sessions *memory.ContextManager
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T, index knowledge.VectorIndex) *fixture {
	t.Helper()
	quiet := log.New(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := memory.NewContextManager(memory.NewRedisStoreFromClient(client), memory.Options{Logger: quiet})

	model := new(MockLanguageModel)
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil).Maybe()

	var retriever *knowledge.Retriever
	if index != nil {
		retriever = knowledge.NewRetriever(embedder, index, knowledge.RetrieverOptions{Logger: quiet})
	} else {
		retriever = knowledge.NewRetriever(nil, nil, knowledge.RetrieverOptions{Logger: quiet})
	}

	h := NewConversationHandler(
		language.NewDetector(),
		sessions,
		intent.NewHybridClassifier(
			intent.NewRuleClassifier(intent.DefaultNoMatchConfidence),
			intent.NewLLMClassifier(model, time.Second, quiet),
		),
		retriever,
		composer.New(model, nil, composer.Options{Logger: quiet}),
		Options{Metrics: metrics.New(), Logger: quiet},
	)
	return &fixture{handler: h, model: model, sessions: sessions, redis: mr}
}

func stageNote(resp models.AskResponse, name string) (models.StageNote, bool) {
	for _, n := range resp.Metadata.Stages {
		if n.Stage == name {
			return n, true
		}
	}
	return models.StageNote{}, false
}

func TestAsk_DiseaseQuestion(t *testing.T) {
	f := newFixture(t, nil)
	f.model.On("Classify", mock.Anything, mock.Anything).
		Return("Intent: crop_disease_identification\nConfidence: 0.9\nReasoning: spots on leaves", nil)
	f.model.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "My rice leaves have brown spots")
	})).Return("[MAIN_ANSWER] This is likely brown spot disease [CONTEXT] Spray a recommended fungicide.", nil)

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u1", Message: "My rice leaves have brown spots"})

	require.True(t, resp.Success)
	assert.Equal(t, string(models.IntentDiseaseIdentification), resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.5)
	assert.GreaterOrEqual(t, resp.SourcesUsed, 0)
	require.NotEmpty(t, resp.MainAnswer)
	assert.True(t, composer.HasTerminalPunctuation(resp.MainAnswer))
	assert.Equal(t, "en", resp.Language)
	assert.Len(t, resp.Suggestions, 3)
	assert.NotEmpty(t, resp.Metadata.RequestID)
	assert.False(t, resp.Metadata.Fallback)
	assert.Nil(t, resp.ErrorCode)
	assert.Len(t, resp.Metadata.Stages, 8)

	sc := f.sessions.Get(context.Background(), "u1")
	assert.Equal(t, "rice", sc.Value.Crop)
	assert.Equal(t, 1, sc.Value.ConversationCount)

	history := f.sessions.History(context.Background(), "u1", 10).Value
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleAssistant, history[0].Role)
	assert.Equal(t, models.RoleUser, history[1].Role)
	assert.Equal(t, "My rice leaves have brown spots", history[1].Content)
	assert.True(t, f.redis.Exists("conversation:u1"))
}

func TestAsk_VectorIndexDownStillSucceeds(t *testing.T) {
	f := newFixture(t, brokenIndex{})
	f.model.On("Classify", mock.Anything, mock.Anything).Return("Intent: fertilizer_advice\nConfidence: 0.8", nil)
	f.model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] Use NPK. [CONTEXT] Split the dose.", nil)

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u2", Message: "Which fertilizer for banana?"})

	require.True(t, resp.Success)
	note, ok := stageNote(resp, StageRetrieve)
	require.True(t, ok)
	assert.Equal(t, models.StatusDegraded, note.Status)
	assert.Equal(t, models.ReasonRetrievalDegraded, note.Reason)
	assert.GreaterOrEqual(t, resp.SourcesUsed, 0)
	assert.Equal(t, "Use NPK.", resp.MainAnswer)
}

func TestAsk_GenerationFailureReturnsCannedAnswer(t *testing.T) {
	f := newFixture(t, nil)
	f.model.On("Classify", mock.Anything, mock.Anything).Return("Intent: pest_management\nConfidence: 0.9", nil)
	f.model.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u3", Message: "How do I control aphids?"})

	require.True(t, resp.Success)
	assert.Equal(t, string(models.IntentPestManagement), resp.Intent)
	want, _ := composer.CannedAnswer(models.IntentPestManagement, "en")
	assert.Equal(t, want, resp.MainAnswer)
	note, _ := stageNote(resp, StageCompose)
	assert.Equal(t, models.ReasonGenerationFailure, note.Reason)
}

func TestAsk_ClassifierOutageDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.model.On("Classify", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	f.model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] Irrigate daily. [CONTEXT] Use drip.", nil)

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u4", Message: "drip irrigation schedule"})

	require.True(t, resp.Success)
	assert.Equal(t, string(models.IntentIrrigationAdvice), resp.Intent)
	assert.Equal(t, models.MethodRuleDominant, resp.Metadata.IntentMethod)
	note, ok := stageNote(resp, StageClassify)
	require.True(t, ok)
	assert.Equal(t, models.StatusDegraded, note.Status)
	assert.Equal(t, models.ReasonClassificationDegraded, note.Reason)
}

func TestAsk_PreferredLanguageWins(t *testing.T) {
	f := newFixture(t, nil)
	f.model.On("Classify", mock.Anything, mock.Anything).Return("Intent: general_advice\nConfidence: 0.6", nil)
	f.model.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Respond in Malayalam.")
	})).Return("[MAIN_ANSWER] നമസ്കാരം. [CONTEXT] സഹായിക്കാം.", nil)

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u5", Message: "hello", PreferredLanguage: "ML"})

	require.True(t, resp.Success)
	assert.Equal(t, "ml", resp.Language)
	assert.Equal(t, "en", resp.Metadata.LanguageDetected)
	assert.Equal(t, "ml", resp.Metadata.UserContext.PreferredLanguage)
}

func TestAsk_PanicEndsInFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.handler.classifier = nil

	resp := f.handler.Ask(context.Background(), models.AskRequest{UserID: "u6", Message: "പശുവിന് എന്ത് തീറ്റ കൊടുക്കണം"})

	assert.False(t, resp.Success)
	assert.Equal(t, string(models.IntentGeneralQuery), resp.Intent)
	assert.InDelta(t, 0.1, resp.Confidence, 1e-9)
	assert.Equal(t, "ml", resp.Language)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorPipeline, *resp.ErrorCode)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, StageClassify)
	assert.True(t, resp.Metadata.Fallback)
	assert.NotEmpty(t, resp.MainAnswer)

	note, ok := stageNote(resp, StageClassify)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, note.Status)
}

func TestAsk_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		req  models.AskRequest
	}{
		{"missing user", models.AskRequest{Message: "hi"}},
		{"blank message", models.AskRequest{UserID: "u", Message: "   "}},
		{"too long", models.AskRequest{UserID: "u", Message: strings.Repeat("a", DefaultMaxMessageChars+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.handler.ValidateRequest(&tt.req), models.ErrValidation)

			resp := f.handler.Ask(context.Background(), tt.req)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.ErrorCode)
			assert.Equal(t, models.ErrorValidation, *resp.ErrorCode)
		})
	}
	f.model.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestSummaryAndClear(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.model.On("Classify", mock.Anything, mock.Anything).Return("no idea", nil)
	f.model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] Answer. [CONTEXT] More.", nil)

	f.handler.Ask(ctx, models.AskRequest{UserID: "u7", Message: "aphids on my tomato"})
	f.handler.Ask(ctx, models.AskRequest{UserID: "u7", Message: "fertilizer for tomato"})

	s, err := f.handler.Summary(ctx, "u7", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, s.TotalMessages)
	assert.Equal(t, []string{"fertilizer_advice", "pest_management"}, s.MainTopics)
	assert.Len(t, s.Recent, 3)
	assert.Equal(t, "tomato", s.UserContext.Crop)
	assert.Equal(t, 2, s.UserContext.ConversationCount)
	assert.Contains(t, s.Summary, "4 interactions")

	require.NoError(t, f.handler.Clear(ctx, "u7"))
	s, err = f.handler.Summary(ctx, "u7", 0)
	require.NoError(t, err)
	assert.Zero(t, s.TotalMessages)
	assert.Equal(t, "No conversation history found.", s.Summary)

	_, err = f.handler.Summary(ctx, " ", 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}
