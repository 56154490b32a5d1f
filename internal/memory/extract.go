package memory

import (
	"regexp"
	"strings"

	"github.com/avvvet/krishiseva/internal/models"
)

type term struct {
	value string
	re    *regexp.Regexp
}

// newTerm compiles patterns into one alternation. Latin patterns match whole
// words only so "price" does not hit "rice".
func newTerm(value string, patterns ...string) term {
	alts := make([]string, len(patterns))
	for i, p := range patterns {
		alts[i] = regexp.QuoteMeta(p)
		if isASCII(p) {
			alts[i] = `\b` + alts[i] + `\b`
		}
	}
	return term{value: value, re: regexp.MustCompile(strings.Join(alts, "|"))}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Vocabularies are scanned in order; the first hit per field wins.
var (
	cropTerms = []term{
		newTerm("rice", "rice", "paddy", "നെല്ല്", "നെൽ"),
		newTerm("coconut", "coconut", "തെങ്ങ്", "തേങ്ങ"),
		newTerm("pepper", "pepper", "കുരുമുളക്"),
		newTerm("banana", "banana", "plantain", "വാഴ"),
		newTerm("rubber", "rubber", "റബ്ബർ"),
		newTerm("cardamom", "cardamom", "ഏലം"),
		newTerm("tapioca", "tapioca", "cassava", "കപ്പ"),
		newTerm("wheat", "wheat"),
		newTerm("maize", "maize", "corn"),
		newTerm("sugarcane", "sugarcane"),
		newTerm("cotton", "cotton"),
		newTerm("pulses", "pulses", "lentil"),
		newTerm("tomato", "tomato", "തക്കാളി"),
	}

	locationTerms = []term{
		newTerm("kerala", "kerala", "കേരളം", "കേരള"),
		newTerm("thrissur", "thrissur", "തൃശ്ശൂർ"),
		newTerm("palakkad", "palakkad", "പാലക്കാട്"),
		newTerm("wayanad", "wayanad", "വയനാട്"),
		newTerm("idukki", "idukki", "ഇടുക്കി"),
		newTerm("kuttanad", "kuttanad", "കുട്ടനാട്"),
		newTerm("ernakulam", "ernakulam", "kochi", "എറണാകുളം"),
		newTerm("punjab", "punjab"),
		newTerm("maharashtra", "maharashtra"),
		newTerm("delhi", "delhi"),
		newTerm("karnataka", "karnataka"),
		newTerm("tamil nadu", "tamil nadu", "tamilnadu"),
	}
)

var (
	organicRe      = regexp.MustCompile(`\borganic\b|ജൈവ`)
	conventionalRe = regexp.MustCompile(`\b(conventional|chemical farming|traditional)\b`)
	mixedRe        = regexp.MustCompile(`\b(mixed farming|integrated farming)\b`)

	beginnerRe = regexp.MustCompile(`\b(beginner|new to farming|first time|novice)\b`)
	expertRe   = regexp.MustCompile(`\b(expert|experienced|professional farmer)\b`)
)

// Extract derives a partial context update from a query. Fields that do not
// match leave the update nil, so nothing is ever overwritten with empty.
// current is used only to avoid no-op updates.
func Extract(query string, current models.SessionContext) models.ContextUpdate {
	var u models.ContextUpdate
	q := strings.ToLower(query)

	if crop := firstTerm(q, cropTerms); crop != "" && crop != current.Crop {
		u.Crop = models.Ptr(crop)
	}
	if loc := firstTerm(q, locationTerms); loc != "" && loc != current.Location {
		u.Location = models.Ptr(loc)
	}

	var ft models.FarmingType
	switch {
	case organicRe.MatchString(q):
		ft = models.FarmingOrganic
	case mixedRe.MatchString(q):
		ft = models.FarmingMixed
	case conventionalRe.MatchString(q):
		ft = models.FarmingConventional
	}
	if ft != models.FarmingUnset && ft != current.FarmingType {
		u.FarmingType = models.Ptr(ft)
	}

	var lvl models.ExperienceLevel
	switch {
	case beginnerRe.MatchString(q):
		lvl = models.ExperienceBeginner
	case expertRe.MatchString(q):
		lvl = models.ExperienceExpert
	}
	if lvl != "" && lvl != current.ExperienceLevel {
		u.ExperienceLevel = models.Ptr(lvl)
	}

	return u
}

func firstTerm(q string, terms []term) string {
	for _, t := range terms {
		if t.re.MatchString(q) {
			return t.value
		}
	}
	return ""
}
