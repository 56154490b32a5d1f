package intent

import (
	"strings"
	"testing"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRuleClassifier_Classify(t *testing.T) {
	c := NewRuleClassifier(DefaultNoMatchConfidence)

	tests := []struct {
		name       string
		text       string
		language   string
		want       models.Intent
		confidence float64
	}{
		{"brown spots", "My rice leaves have brown spots", "en", models.IntentDiseaseIdentification, 0.8},
		{"single keyword floors at 0.5", "Tell me about aphids", "en", models.IntentPestManagement, 0.5},
		{"many keywords cap at 0.9", "fertilizer manure compost urea npk", "en", models.IntentFertilizerAdvice, 0.9},
		{"malayalam", "നെല്ലിന് കീടബാധ ഉണ്ട്", "ml", models.IntentPestManagement, 0.5},
		{"cross lingual bonus", "വളം fertilizer", "ml", models.IntentFertilizerAdvice, 0.6},
		{"case insensitive", "WEATHER FORECAST for tomorrow", "en", models.IntentWeatherRelated, 0.8},
		{"no match", "hello there", "en", models.IntentGeneralAdvice, 0.3},
		{"price is not rice", "coconut price today", "en", models.IntentMarketPrices, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text, tt.language)
			assert.Equal(t, tt.want, got.PrimaryIntent)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.Equal(t, models.MethodRuleBased, got.Method)
		})
	}
}

func TestRuleClassifier_NoMatchConfidenceIsConfigurable(t *testing.T) {
	got := NewRuleClassifier(0.5).Classify("hello", "en")
	assert.Equal(t, models.IntentGeneralAdvice, got.PrimaryIntent)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)

	got = NewRuleClassifier(0).Classify("hello", "en")
	assert.InDelta(t, DefaultNoMatchConfidence, got.Confidence, 1e-9)
}

func TestRuleClassifier_TieBreaksByDeclarationOrder(t *testing.T) {
	c := NewRuleClassifier(DefaultNoMatchConfidence)

	// "pest" and "disease" score 2 each; disease is declared first.
	got := c.Classify("pest disease", "en")
	assert.Equal(t, models.IntentDiseaseIdentification, got.PrimaryIntent)
	assert.Equal(t, 2.0, got.AllScores[models.IntentDiseaseIdentification])
	assert.Equal(t, 2.0, got.AllScores[models.IntentPestManagement])

	got = c.Classify("rain market", "en")
	assert.Equal(t, models.IntentWeatherRelated, got.PrimaryIntent)
}

func TestRuleClassifier_ScoreIsMonotonic(t *testing.T) {
	c := NewRuleClassifier(DefaultNoMatchConfidence)
	base := "my crop in the field"

	for in, set := range keywords {
		for _, lang := range []string{"en", "ml"} {
			for _, kw := range append(append([]string{}, set.en...), set.ml...) {
				text := base
				prev := c.Score(text, lang, in)
				for i := 0; i < 3; i++ {
					text += " " + kw
					next := c.Score(text, lang, in)
					assert.Greater(t, next, prev, "intent=%s lang=%s kw=%s", in, lang, kw)
					prev = next
				}
			}
		}
	}
}

func TestRuleClassifier_ConfidenceBounds(t *testing.T) {
	c := NewRuleClassifier(DefaultNoMatchConfidence)

	for n := 1; n <= 10; n++ {
		got := c.Classify(strings.Repeat("pest ", n), "en")
		assert.GreaterOrEqual(t, got.Confidence, 0.5)
		assert.LessOrEqual(t, got.Confidence, 0.9)
	}
}
