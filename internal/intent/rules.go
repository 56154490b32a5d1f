// Package intent classifies farmer questions into the closed intent set.
package intent

import (
	"regexp"
	"strings"

	"github.com/avvvet/krishiseva/internal/models"
)

// DefaultNoMatchConfidence is used when no keyword matches.
const DefaultNoMatchConfidence = 0.3

// Score weights.
const (
	sameLanguageWeight  = 2
	otherLanguageWeight = 1
	scoreNormalizer     = 5.0
)

type keywordSet struct {
	en []string
	ml []string
}

// keywords per intent. Malayalam entries are stems and match as substrings;
// English entries match whole words.
var keywords = map[models.Intent]keywordSet{
	models.IntentDiseaseIdentification: {
		en: []string{"disease", "diseases", "infected", "infection", "spots", "spot", "yellowing",
			"wilting", "wilt", "blight", "rot", "fungus", "fungal", "mildew", "brown", "lesions", "sick"},
		ml: []string{"രോഗ", "പുള്ളി", "വാട്ടം", "ചീയൽ", "കുമിൾ", "മഞ്ഞളിപ്പ്"},
	},
	models.IntentPestManagement: {
		en: []string{"pest", "pests", "insect", "insects", "bug", "bugs", "caterpillar", "aphid",
			"aphids", "worm", "worms", "borer", "beetle", "mites", "larvae"},
		ml: []string{"കീട", "പുഴു", "ചാഴി", "മുഞ്ഞ", "വണ്ട്"},
	},
	models.IntentCropCultivation: {
		en: []string{"grow", "growing", "plant", "planting", "cultivation", "cultivate", "sow",
			"sowing", "seed", "seeds", "variety", "harvest", "nursery", "transplant", "spacing"},
		ml: []string{"കൃഷി", "നടീൽ", "വിത്ത്", "വിള", "വളർത്ത", "കൊയ്ത്ത്"},
	},
	models.IntentFertilizerAdvice: {
		en: []string{"fertilizer", "fertiliser", "fertilizers", "manure", "compost", "nutrient",
			"nutrients", "urea", "npk", "potash", "phosphate", "nitrogen"},
		ml: []string{"വളം", "പോഷക"},
	},
	models.IntentIrrigationAdvice: {
		en: []string{"water", "watering", "irrigation", "irrigate", "drip", "sprinkler", "moisture"},
		ml: []string{"ജലസേചന", "നനയ്ക്ക", "വെള്ളം"},
	},
	models.IntentWeatherRelated: {
		en: []string{"weather", "rain", "rainfall", "monsoon", "drought", "humidity",
			"temperature", "forecast", "flood", "climate"},
		ml: []string{"മഴ", "കാലാവസ്ഥ", "വെയിൽ", "വരൾച്ച", "വെള്ളപ്പൊക്കം"},
	},
	models.IntentMarketPrices: {
		en: []string{"price", "prices", "market", "sell", "selling", "buy", "rate", "rates", "cost", "mandi"},
		ml: []string{"വില", "ചന്ത", "വിൽക്ക", "വിപണി"},
	},
	models.IntentGovernmentSchemes: {
		en: []string{"scheme", "schemes", "subsidy", "subsidies", "government", "loan",
			"insurance", "kisan", "eligible", "eligibility"},
		ml: []string{"പദ്ധതി", "സബ്സിഡി", "സർക്കാർ", "വായ്പ", "ഇൻഷുറൻസ്"},
	},
	models.IntentGeneralAdvice: {
		en: []string{"advice", "help", "suggest", "tips"},
		ml: []string{"ഉപദേശ", "സഹായ"},
	},
}

type matcher struct {
	word *regexp.Regexp // nil for substring matching
	text string
}

func (m matcher) count(s string) int {
	if m.word != nil {
		return len(m.word.FindAllStringIndex(s, -1))
	}
	return strings.Count(s, m.text)
}

func newMatchers(words []string, wholeWord bool) []matcher {
	out := make([]matcher, len(words))
	for i, w := range words {
		out[i] = matcher{text: w}
		if wholeWord {
			out[i].word = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
		}
	}
	return out
}

type compiledSet struct {
	en []matcher
	ml []matcher
}

// RuleClassifier scores intents by keyword occurrences. It is stateless and
// safe for concurrent use.
type RuleClassifier struct {
	sets              map[models.Intent]compiledSet
	noMatchConfidence float64
}

// NewRuleClassifier returns a classifier that reports general_advice with
// noMatchConfidence when nothing matches. A value outside (0,1] falls back
// to DefaultNoMatchConfidence.
func NewRuleClassifier(noMatchConfidence float64) *RuleClassifier {
	if noMatchConfidence <= 0 || noMatchConfidence > 1 {
		noMatchConfidence = DefaultNoMatchConfidence
	}

	sets := make(map[models.Intent]compiledSet, len(keywords))
	for in, kw := range keywords {
		sets[in] = compiledSet{
			en: newMatchers(kw.en, true),
			ml: newMatchers(kw.ml, false),
		}
	}
	return &RuleClassifier{sets: sets, noMatchConfidence: noMatchConfidence}
}

// Score returns the raw keyword score of one intent for text in language.
func (c *RuleClassifier) Score(text, language string, in models.Intent) int {
	set, ok := c.sets[in]
	if !ok {
		return 0
	}

	lower := strings.ToLower(text)
	same, other := set.en, set.ml
	if language == models.LanguageMalayalam {
		same, other = set.ml, set.en
	}

	score := 0
	for _, m := range same {
		score += sameLanguageWeight * m.count(lower)
	}
	for _, m := range other {
		score += otherLanguageWeight * m.count(lower)
	}
	return score
}

// Classify picks the best scoring intent. Ties go to the intent declared
// first in models.Intents.
func (c *RuleClassifier) Classify(text, language string) models.IntentResult {
	scores := make(map[models.Intent]float64)
	best, bestScore := models.IntentGeneralAdvice, 0

	for _, in := range models.Intents {
		s := c.Score(text, language, in)
		if s == 0 {
			continue
		}
		scores[in] = float64(s)
		if s > bestScore {
			best, bestScore = in, s
		}
	}

	if bestScore == 0 {
		return models.IntentResult{
			PrimaryIntent: models.IntentGeneralAdvice,
			Confidence:    c.noMatchConfidence,
			Method:        models.MethodRuleBased,
			AllScores:     scores,
		}
	}

	return models.IntentResult{
		PrimaryIntent: best,
		Confidence:    max(0.5, min(0.9, float64(bestScore)/scoreNormalizer)),
		Method:        models.MethodRuleBased,
		AllScores:     scores,
	}
}
