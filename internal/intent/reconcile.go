package intent

import "github.com/avvvet/krishiseva/internal/models"

// Thresholds of the reconciliation table.
const (
	dominantConfidence = 0.7
	weakRuleConfidence = 0.5
	agreementBonus     = 0.2
)

// Reconcile merges a rule result r and an LLM result l. It is a pure
// function of its inputs:
//
//  1. r.Confidence >= 0.7: r wins (rule_dominant), l's intent kept as suggestion.
//  2. l.Confidence >= 0.7 and r.Confidence < 0.5: l wins (llm_dominant).
//  3. Same intent: agreement, confidence = min(avg + 0.2, 1).
//  4. Otherwise the more confident one wins (rule on ties), the other is
//     attached as alternative.
func Reconcile(r, l models.IntentResult) models.IntentResult {
	switch {
	case r.Confidence >= dominantConfidence:
		out := r
		out.Method = models.MethodRuleDominant
		out.Suggestion = l.PrimaryIntent
		out.Alternative = nil
		return out

	case l.Confidence >= dominantConfidence && r.Confidence < weakRuleConfidence:
		out := l
		out.Method = models.MethodLLMDominant
		out.Suggestion = r.PrimaryIntent
		out.Alternative = nil
		if out.AllScores == nil {
			out.AllScores = r.AllScores
		}
		return out

	case r.PrimaryIntent == l.PrimaryIntent:
		return models.IntentResult{
			PrimaryIntent: r.PrimaryIntent,
			Confidence:    min((r.Confidence+l.Confidence)/2+agreementBonus, 1.0),
			Method:        models.MethodAgreement,
			AllScores:     r.AllScores,
			Reasoning:     l.Reasoning,
		}

	case r.Confidence >= l.Confidence:
		out := r
		out.Method = models.MethodRuleSelected
		alt := l
		out.Alternative = &alt
		return out

	default:
		out := l
		out.Method = models.MethodLLMSelected
		if out.AllScores == nil {
			out.AllScores = r.AllScores
		}
		alt := r
		out.Alternative = &alt
		return out
	}
}
