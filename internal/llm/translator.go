package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const translationTemplate = `You are translating %s text from %s to %s.

Translate the following text accurately, preserving agricultural terminology,
numbers and units. Reply with the translation only.

Text:
%s`

var languageNames = map[string]string{
	"en": "English",
	"ml": "Malayalam",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"kn": "Kannada",
}

// agriTerms pairs English crop names with their Malayalam forms.
var agriTerms = []struct {
	en string
	ml string
}{
	{"rice", "നെല്ല്"},
	{"coconut", "തെങ്ങ്"},
	{"pepper", "കുരുമുളക്"},
	{"cardamom", "ഏലം"},
	{"banana", "വാഴ"},
	{"mango", "മാവ്"},
	{"tomato", "തക്കാളി"},
	{"spinach", "ചീര"},
	{"yam", "ചേന"},
}

var enTermRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(agriTerms))
	for i, t := range agriTerms {
		res[i] = regexp.MustCompile(`(?i)\b` + t.en + `\b`)
	}
	return res
}()

// LLMTranslator translates through a LanguageModel and then forces the
// canonical agricultural vocabulary.
type LLMTranslator struct {
	model LanguageModel
}

// NewLLMTranslator creates a translator backed by model.
func NewLLMTranslator(model LanguageModel) *LLMTranslator {
	return &LLMTranslator{model: model}
}

func (t *LLMTranslator) Translate(ctx context.Context, text, from, to, domainHint string) (string, error) {
	if from == to || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if domainHint == "" {
		domainHint = "agricultural"
	}

	prompt := fmt.Sprintf(translationTemplate, domainHint, languageName(from), languageName(to), text)
	out, err := t.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", from, to, err)
	}

	return ApplyAgriTerms(out, from, to), nil
}

// ApplyAgriTerms replaces crop names the model tends to translate loosely.
func ApplyAgriTerms(text, from, to string) string {
	switch {
	case from == "ml" && to == "en":
		for _, term := range agriTerms {
			text = replaceToken(text, term.ml, term.en)
		}
	case from == "en" && to == "ml":
		for i, term := range agriTerms {
			text = enTermRes[i].ReplaceAllString(text, term.ml)
		}
	}
	return text
}

// replaceToken replaces old only where it stands as a whole word, so a
// Malayalam stem inside a longer word is left alone.
func replaceToken(text, old, repl string) string {
	var b strings.Builder
	start := 0
	for {
		i := strings.Index(text[start:], old)
		if i < 0 {
			b.WriteString(text[start:])
			return b.String()
		}
		i += start
		end := i + len(old)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		b.WriteString(text[start:i])
		if (i > 0 && isWordRune(before)) || (end < len(text) && isWordRune(after)) {
			b.WriteString(old)
		} else {
			b.WriteString(repl)
		}
		start = end
	}
}

// isWordRune reports letters, vowel signs and the zero-width joiners that
// occur inside Malayalam words.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '\u200c' || r == '\u200d'
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
