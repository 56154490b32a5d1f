package intent

import (
	"context"

	"github.com/avvvet/krishiseva/internal/models"
)

// lowConfidence marks a reconciled result as degraded.
const lowConfidence = 0.5

// HybridClassifier combines the rule and LLM classifiers. llm may be nil to
// run rules only.
type HybridClassifier struct {
	rules *RuleClassifier
	llm   *LLMClassifier
}

// NewHybridClassifier wires both classifiers.
func NewHybridClassifier(rules *RuleClassifier, llm *LLMClassifier) *HybridClassifier {
	return &HybridClassifier{rules: rules, llm: llm}
}

// Classify returns the reconciled intent. When the LLM classifier degrades
// its fallback (the rule result) stands in for the LLM answer, so the rule
// result is reconciled with itself and the outcome is marked degraded.
// Disagreement at low confidence is reported as degraded with the
// reconciled value unchanged.
func (h *HybridClassifier) Classify(ctx context.Context, text, language string) models.Outcome[models.IntentResult] {
	rule := h.rules.Classify(text, language)

	if h.llm == nil {
		rule.Method = models.MethodRuleOnly
		return models.Ok(rule)
	}

	llmOut := h.llm.Classify(ctx, text, language, rule)
	res := Reconcile(rule, llmOut.Value)
	if llmOut.Status != models.StatusOK {
		return models.Degraded(res, models.ReasonClassificationDegraded, llmOut.Err)
	}
	if res.Alternative != nil && res.Confidence < lowConfidence {
		return models.Degraded(res, models.ReasonClassificationDegraded, nil)
	}
	return models.Ok(res)
}
