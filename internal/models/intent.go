package models

// Intent is one of the closed set of agricultural intents.
type Intent string

// Declaration order is the tie-break priority used by the rule classifier.
const (
	IntentDiseaseIdentification Intent = "crop_disease_identification"
	IntentPestManagement        Intent = "pest_management"
	IntentCropCultivation       Intent = "crop_cultivation"
	IntentFertilizerAdvice      Intent = "fertilizer_advice"
	IntentIrrigationAdvice      Intent = "irrigation_advice"
	IntentWeatherRelated        Intent = "weather_related"
	IntentMarketPrices          Intent = "market_prices"
	IntentGovernmentSchemes     Intent = "government_schemes"
	IntentGeneralAdvice         Intent = "general_advice"

	// IntentGeneralQuery is reserved for the orchestrator fallback response.
	IntentGeneralQuery Intent = "general_query"
)

// Intents lists the classifiable intents in priority order.
var Intents = []Intent{
	IntentDiseaseIdentification,
	IntentPestManagement,
	IntentCropCultivation,
	IntentFertilizerAdvice,
	IntentIrrigationAdvice,
	IntentWeatherRelated,
	IntentMarketPrices,
	IntentGovernmentSchemes,
	IntentGeneralAdvice,
}

// ParseIntent returns the intent named s, if it belongs to the closed set.
func ParseIntent(s string) (Intent, bool) {
	for _, in := range Intents {
		if string(in) == s {
			return in, true
		}
	}
	return "", false
}

// Classification method tags.
const (
	MethodRuleBased    = "rule_based"
	MethodLLM          = "llm"
	MethodRuleOnly     = "rule_only"
	MethodRuleDominant = "rule_dominant"
	MethodLLMDominant  = "llm_dominant"
	MethodAgreement    = "agreement"
	MethodRuleSelected = "rule_selected"
	MethodLLMSelected  = "llm_selected"
)

// IntentResult is the output of a classifier.
type IntentResult struct {
	PrimaryIntent Intent             `json:"primary_intent"`
	Confidence    float64            `json:"confidence"`
	Method        string             `json:"method"`
	AllScores     map[Intent]float64 `json:"all_scores,omitempty"`
	Reasoning     string             `json:"reasoning,omitempty"`

	// Suggestion is the other classifier's intent when one side dominated.
	Suggestion Intent `json:"suggestion,omitempty"`
	// Alternative is the losing result when the classifiers disagreed.
	Alternative *IntentResult `json:"alternative,omitempty"`
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
