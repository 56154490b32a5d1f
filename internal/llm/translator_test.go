package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLanguageModel is a mock for LanguageModel.
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

func TestLLMTranslator_SameLanguageIsNoop(t *testing.T) {
	model := new(MockLanguageModel)
	tr := NewLLMTranslator(model)

	out, err := tr.Translate(context.Background(), "hello", "en", "en", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	model.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestLLMTranslator_AppliesTermsAfterModel(t *testing.T) {
	ctx := context.Background()
	model := new(MockLanguageModel)
	model.On("Generate", ctx, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "English", "Malayalam", "agricultural", "Water the rice")
	})).Return("Water the Rice daily", nil)

	tr := NewLLMTranslator(model)
	out, err := tr.Translate(ctx, "Water the rice", "en", "ml", "")
	require.NoError(t, err)
	assert.Equal(t, "Water the നെല്ല് daily", out)
	model.AssertExpectations(t)
}

func TestLLMTranslator_Error(t *testing.T) {
	ctx := context.Background()
	model := new(MockLanguageModel)
	model.On("Generate", ctx, mock.Anything).Return("", errors.New("timeout"))

	_, err := NewLLMTranslator(model).Translate(ctx, "text", "en", "ml", "agriculture")
	assert.Error(t, err)
}

func TestApplyAgriTerms(t *testing.T) {
	assert.Equal(t, "rice and coconut", ApplyAgriTerms("നെല്ല് and തെങ്ങ്", "ml", "en"))
	assert.Equal(t, "കുരുമുളക് vines", ApplyAgriTerms("Pepper vines", "en", "ml"))
	// Whole words only.
	assert.Equal(t, "price", ApplyAgriTerms("price", "en", "ml"))
	assert.Equal(t, "വാഴക്കുല", ApplyAgriTerms("വാഴക്കുല", "ml", "en"))
	assert.Equal(t, "banana, വാഴക്കുല and banana.", ApplyAgriTerms("വാഴ, വാഴക്കുല and വാഴ.", "ml", "en"))
	assert.Equal(t, "ചീരയും spinach", ApplyAgriTerms("ചീരയും ചീര", "ml", "en"))
	assert.Equal(t, "വാഴവാഴ", ApplyAgriTerms("വാഴവാഴ", "ml", "en"))
	// Other pairs are untouched.
	assert.Equal(t, "rice", ApplyAgriTerms("rice", "en", "hi"))
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
