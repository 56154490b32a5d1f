package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/krishiseva/internal/models"
)

const builtinSource = "krishiseva-builtin"

// Corpus returns the built-in agricultural knowledge base. Categories are
// intent names so the retriever can filter on the classified intent.
func Corpus() []Document {
	docs := []Document{
		{
			Content:  "Leaf spot in paddy can be treated with Tricyclazole or Isoprothiolane fungicides. Apply at the first sign of disease.",
			Keywords: "leaf spot paddy fungicide tricyclazole isoprothiolane brown spots",
			Metadata: meta(models.IntentDiseaseIdentification, "paddy"),
		},
		{
			Content:  "Rice blast shows as spindle shaped grey lesions with brown margins. Spray Tricyclazole and grow resistant varieties for prevention.",
			Keywords: "rice blast paddy fungicide tricyclazole resistant lesions",
			Metadata: meta(models.IntentDiseaseIdentification, "paddy"),
		},
		{
			Content:  "Tomato leaf curl virus is spread by whitefly. Use resistant varieties, spray neem oil and remove infected plants.",
			Keywords: "tomato leaf curl neem oil resistant varieties virus whitefly",
			Metadata: meta(models.IntentDiseaseIdentification, "tomato"),
		},
		{
			Content:  "Quick wilt of black pepper is caused by Phytophthora. Drench the basin with 1% Bordeaux mixture before the monsoon and improve drainage.",
			Keywords: "pepper quick wilt phytophthora bordeaux drainage",
			Metadata: meta(models.IntentDiseaseIdentification, "pepper"),
		},
		{
			Content:  "Rhinoceros beetle in coconut can be controlled by hooking out adults and filling the top leaf axils with neem cake mixed with sand.",
			Keywords: "coconut rhinoceros beetle neem cake pest control",
			Metadata: meta(models.IntentPestManagement, "coconut"),
		},
		{
			Content:  "Brown plant hopper in paddy is managed by draining the field for a few days, avoiding excess nitrogen and spraying only when counts cross the threshold.",
			Keywords: "paddy brown plant hopper pest insect nitrogen drain",
			Metadata: meta(models.IntentPestManagement, "paddy"),
		},
		{
			Content:  "Banana plants require NPK 12:32:16 fertilizer during the growth stage. Apply 500g per plant every 3 months.",
			Keywords: "banana fertilizer npk 12:32:16 growth stage",
			Metadata: meta(models.IntentFertilizerAdvice, "banana"),
		},
		{
			Content:  "For banana plants, use organic manure like compost along with chemical fertilizers for better soil health.",
			Keywords: "banana organic compost manure soil health",
			Metadata: meta(models.IntentFertilizerAdvice, "banana"),
		},
		{
			Content:  "Coconut palms need 1.3 kg urea, 2 kg rock phosphate and 2 kg muriate of potash per year, split into two doses with the monsoons.",
			Keywords: "coconut fertilizer urea potash phosphate manure",
			Metadata: meta(models.IntentFertilizerAdvice, "coconut"),
		},
		{
			Content:  "Paddy requires 2-3 cm water depth during the vegetative stage. Maintain proper water management for good yield.",
			Keywords: "paddy water irrigation vegetative stage water depth",
			Metadata: meta(models.IntentIrrigationAdvice, "paddy"),
		},
		{
			Content:  "Drip irrigation for banana saves about 40% water. Supply 15-25 litres per plant per day depending on the season.",
			Keywords: "banana drip irrigation water litres",
			Metadata: meta(models.IntentIrrigationAdvice, "banana"),
		},
		{
			Content:  "Pepper vines are propagated from runner shoots. Plant rooted cuttings at the onset of the south west monsoon with support standards.",
			Keywords: "pepper planting cultivation cuttings monsoon",
			Metadata: meta(models.IntentCropCultivation, "pepper"),
		},
		{
			Content:  "Transplant 20-25 day old paddy seedlings at 20 x 15 cm spacing with 2-3 seedlings per hill.",
			Keywords: "paddy transplanting seedlings spacing cultivation",
			Metadata: meta(models.IntentCropCultivation, "paddy"),
		},
		{
			Content:  "PM-KISAN provides income support of 6000 rupees per year to landholding farmer families in three instalments.",
			Keywords: "pm kisan scheme subsidy government income support",
			Metadata: meta(models.IntentGovernmentSchemes, ""),
		},
	}
	for i := range docs {
		docs[i].ID = docID(i)
	}
	return docs
}

func meta(category models.Intent, crop string) models.DocumentMetadata {
	return models.DocumentMetadata{Category: string(category), Source: builtinSource, Crop: crop}
}

func docID(i int) string {
	return fmt.Sprintf("knowledge_%03d", i)
}

// cropAliases lists the query spellings that refer to a corpus crop.
var cropAliases = map[string][]string{
	"paddy":   {"paddy", "rice", "നെല്ല്", "നെൽ"},
	"banana":  {"banana", "plantain", "വാഴ"},
	"tomato":  {"tomato", "തക്കാളി"},
	"coconut": {"coconut", "തെങ്ങ്", "നാളികേരം"},
	"pepper":  {"pepper", "കുരുമുളക്"},
}

// Keyword buckets for the fallback scorer. Each bucket the query hits adds
// to every document's score once.
var buckets = []*regexp.Regexp{
	matcher("leaf spot", "fungicide", "treatment", "control", "disease", "spots", "blast", "wilt", "virus",
		"pest", "insect", "beetle", "രോഗം", "കീട"),
	matcher("fertilizer", "npk", "manure", "compost", "urea", "potash", "വളം"),
	matcher("water", "irrigation", "depth", "drip", "വെള്ളം", "ജലസേചന"),
}

var cropMatchers = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(cropAliases))
	for crop, aliases := range cropAliases {
		m[crop] = matcher(aliases...)
	}
	return m
}()

// matcher builds a case-insensitive alternation. Latin words match on word
// boundaries, Malayalam stems as substrings.
func matcher(words ...string) *regexp.Regexp {
	alts := make([]string, len(words))
	for i, w := range words {
		alts[i] = regexp.QuoteMeta(w)
		if w[0] < 0x80 {
			alts[i] = `\b` + alts[i] + `\b`
		}
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func cropMentioned(crop, query string) bool {
	if crop == "" {
		return false
	}
	if re, ok := cropMatchers[crop]; ok {
		return re.MatchString(query)
	}
	return matcher(crop).MatchString(query)
}
