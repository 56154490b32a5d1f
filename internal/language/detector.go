// Package language identifies the language of a farmer's message.
package language

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	xlang "golang.org/x/text/language"
)

// Malayalam Unicode block.
const (
	malayalamFirst = '\u0D00'
	malayalamLast  = '\u0D7F'
)

// scriptThreshold is the Malayalam rune ratio above which statistical
// detection is skipped.
const scriptThreshold = 0.30

// Base is returned whenever detection fails.
const Base = "en"

// supported lists the codes we pass through from the statistical detector.
var supported = map[string]bool{
	"en": true,
	"ml": true,
	"hi": true,
	"ta": true,
	"te": true,
	"kn": true,
}

// Detection is the result of Detect.
type Detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Detector detects languages. The zero value is ready to use.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the language of text with a confidence in [0,1].
func (d *Detector) Detect(text string) Detection {
	ml, total := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isMalayalam(r) {
			ml++
		}
	}
	if total == 0 {
		return Detection{Language: Base, Confidence: 0.5}
	}

	ratio := float64(ml) / float64(total)
	if ratio > scriptThreshold {
		return Detection{Language: "ml", Confidence: min(0.9, ratio+0.3)}
	}

	info := whatlanggo.Detect(text)
	if info.Script == nil || info.Lang < 0 {
		return Detection{Language: Base, Confidence: 0.5}
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return Detection{Language: Base, Confidence: 0.5}
	}
	if supported[code] {
		return Detection{Language: code, Confidence: 0.8}
	}
	return Detection{Language: Base, Confidence: 0.6}
}

// IsMixed reports whether text contains both Malayalam and Latin letters.
func (d *Detector) IsMixed(text string) bool {
	var hasML, hasLatin bool
	for _, r := range text {
		switch {
		case isMalayalam(r):
			hasML = true
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			hasLatin = true
		}
		if hasML && hasLatin {
			return true
		}
	}
	return false
}

// Normalize canonicalises a language tag such as "ml-IN" or "EN_us" to its
// base ISO-639-1 code. It returns "" when the tag cannot be parsed.
func Normalize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return ""
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// Supported reports whether code is one of the languages we answer in.
func Supported(code string) bool {
	return supported[code]
}

func isMalayalam(r rune) bool {
	return r >= malayalamFirst && r <= malayalamLast
}
