package composer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
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

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text, from, to, domainHint string) (string, error) {
	args := m.Called(ctx, text, from, to, domainHint)
	return args.String(0), args.Error(1)
}

func newTestComposer(model *MockLanguageModel, tr *MockTranslator) *Composer {
	opts := Options{Logger: log.New(io.Discard)}
	if tr == nil {
		return New(model, nil, opts)
	}
	return New(model, tr, opts)
}

func diseaseRequest() Request {
	return Request{
		Query:      "My rice leaves have brown spots",
		Docs:       []models.KnowledgeDocument{{Content: "Leaf spot in paddy...", Metadata: models.DocumentMetadata{Source: "kb"}}},
		Session:    models.SessionContext{Crop: "rice", ExperienceLevel: models.ExperienceIntermediate},
		Language:   "en",
		Intent:     models.IntentDiseaseIdentification,
		Confidence: 0.8,
	}
}

func TestCompose_TaggedAnswer(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "My rice leaves have brown spots") && strings.Contains(p, "[Reference 1 - kb]")
	})).Return("[MAIN_ANSWER]  This looks like   brown spot disease\n[CONTEXT] Spray a fungicide. Improve drainage.", nil)

	out := newTestComposer(model, nil).Compose(context.Background(), diseaseRequest())

	require.Equal(t, models.StatusOK, out.Status)
	res := out.Value
	assert.Equal(t, "This looks like brown spot disease.", res.MainAnswer)
	assert.True(t, strings.HasPrefix(res.ContextText, "Spray a fungicide. Improve drainage."))
	assert.Contains(t, res.ContextText, "Additional suggestions:\n• Consider taking a photo")
	assert.Contains(t, res.ContextText, "Note: For severe problems")
	assert.Equal(t, 1, res.SourcesUsed)
	assert.Equal(t, models.IntentDiseaseIdentification, res.Intent)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Len(t, res.Suggestions, 3)
	assert.Contains(t, res.Formatted, "<strong>This looks like brown spot disease.</strong>")
	assert.Contains(t, res.Formatted, "<li>Consider taking a photo")
	model.AssertExpectations(t)
}

func TestCompose_GenerationFailureUsesCannedAnswer(t *testing.T) {
	for _, lang := range []string{"en", "ml"} {
		t.Run(lang, func(t *testing.T) {
			model := new(MockLanguageModel)
			model.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503"))
			tr := new(MockTranslator)
			tr.On("Translate", mock.Anything, mock.Anything, "en", "ml", mock.Anything).Return("വിവർത്തനം", nil).Maybe()

			req := diseaseRequest()
			req.Language = lang
			out := newTestComposer(model, tr).Compose(context.Background(), req)

			assert.True(t, out.IsDegraded())
			assert.Equal(t, models.ReasonGenerationFailure, out.Reason)
			want, _ := CannedAnswer(models.IntentDiseaseIdentification, lang)
			assert.Equal(t, want, out.Value.MainAnswer)
			assert.NotEmpty(t, out.Value.ContextText)
		})
	}
}

func TestCompose_EmptyGenerationUsesCannedAnswer(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("   \n ", nil)

	req := diseaseRequest()
	req.Intent = models.IntentMarketPrices
	out := newTestComposer(model, nil).Compose(context.Background(), req)

	assert.Equal(t, models.ReasonGenerationFailure, out.Reason)
	want, _ := CannedAnswer(models.IntentMarketPrices, "en")
	assert.Equal(t, want, out.Value.MainAnswer)
}

func TestCompose_UntaggedAnswerSplitsOnFirstSentence(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("Water twice a week. Keep 2.5 cm of standing water", nil)

	req := diseaseRequest()
	req.Intent = models.IntentIrrigationAdvice
	out := newTestComposer(model, nil).Compose(context.Background(), req)

	assert.Equal(t, "Water twice a week.", out.Value.MainAnswer)
	assert.True(t, strings.HasPrefix(out.Value.ContextText, "Keep 2.5 cm of standing water."))
	assert.NotContains(t, out.Value.ContextText, "Note:")
}

func TestCompose_TranslatesAppendedBlock(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] വളം ഇടുക. [CONTEXT] കൂടുതൽ വിവരങ്ങൾ.", nil)
	tr := new(MockTranslator)
	tr.On("Translate", mock.Anything, mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "Additional suggestions:")
	}), "en", "ml", "agricultural advice").Return("കൂടുതൽ നിർദ്ദേശങ്ങൾ", nil)

	req := diseaseRequest()
	req.Language = "ml"
	req.Intent = models.IntentFertilizerAdvice
	out := newTestComposer(model, tr).Compose(context.Background(), req)

	assert.Equal(t, models.StatusOK, out.Status)
	assert.Equal(t, "വളം ഇടുക.", out.Value.MainAnswer)
	assert.Equal(t, "കൂടുതൽ വിവരങ്ങൾ.\n\nകൂടുതൽ നിർദ്ദേശങ്ങൾ", out.Value.ContextText)
	tr.AssertExpectations(t)
}

func TestCompose_TranslationFailureKeepsEnglish(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] ഉത്തരം. [CONTEXT] വിശദീകരണം.", nil)
	tr := new(MockTranslator)
	tr.On("Translate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	req := diseaseRequest()
	req.Language = "ml"
	out := newTestComposer(model, tr).Compose(context.Background(), req)

	assert.True(t, out.IsDegraded())
	assert.Equal(t, models.ReasonTranslationSkipped, out.Reason)
	assert.Equal(t, "ഉത്തരം.", out.Value.MainAnswer)
	assert.Contains(t, out.Value.ContextText, "Additional suggestions:")
}

func TestCompose_TipsAndLocation(t *testing.T) {
	model := new(MockLanguageModel)
	model.On("Generate", mock.Anything, mock.Anything).Return("[MAIN_ANSWER] Use neem oil. [CONTEXT] Spray in the evening.", nil)

	c := New(model, nil, Options{MaxTips: 1, Logger: log.New(io.Discard)})
	req := diseaseRequest()
	req.Intent = models.IntentPestManagement
	req.Session.Location = "thrissur"
	out := c.Compose(context.Background(), req)

	ctxText := out.Value.ContextText
	assert.Equal(t, 2, strings.Count(ctxText, bullet))
	assert.Contains(t, ctxText, "• Always try organic methods first")
	assert.NotContains(t, ctxText, "Inspect the field")
	assert.Contains(t, ctxText, "Consult your local Krishibhavan in Thrissur for region-specific advice.")
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"hello   world", "hello world."},
		{"Is it ready?", "Is it ready?"},
		{"Great!", "Great!"},
		{"line one\n\tline two.", "line one line two."},
		{"नमस्ते।", "नमस्ते।"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), "input %q", tt.in)
	}
}

func TestSuggestions(t *testing.T) {
	assert.Len(t, Suggestions(models.IntentPestManagement, "en"), 3)
	assert.Equal(t, followUps[models.IntentPestManagement]["ml"], Suggestions(models.IntentPestManagement, "ml"))
	assert.Equal(t, followUps[models.IntentGeneralAdvice]["en"], Suggestions(models.IntentMarketPrices, "ta"))

	s := Suggestions(models.IntentGeneralAdvice, "en")
	s[0] = "changed"
	assert.NotEqual(t, "changed", followUps[models.IntentGeneralAdvice]["en"][0])
}

func TestCannedAnswer_CoversEveryIntent(t *testing.T) {
	for _, in := range models.Intents {
		for _, lang := range []string{"en", "ml", "hi"} {
			main, ctx := CannedAnswer(in, lang)
			assert.NotEmpty(t, main, "%s/%s", in, lang)
			assert.NotEmpty(t, ctx, "%s/%s", in, lang)
			assert.Equal(t, main, CleanText(main), "canned answers must survive cleaning")
		}
	}
}

func TestFormat_EscapesHTML(t *testing.T) {
	c := New(nil, nil, Options{Logger: log.New(io.Discard)})
	out := c.Format("<script>alert(1)</script>", "plain", "ml")

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `lang="ml"`)
}
