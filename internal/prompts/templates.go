package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/krishiseva/internal/models"
)

const ClassificationPrompt = `Analyze the following agricultural query and classify its intent.

Query: %s
Language: %s

Classify into exactly one of these categories:
%s
Provide your response in this exact format:
Intent: [category]
Confidence: [0.0-1.0]
Reasoning: [brief explanation]`

const ResponsePrompt = `%s

%s

FARMER'S CONTEXT:
%s

RELEVANT KNOWLEDGE:
%s

RECENT CONVERSATION:
%s

FARMER'S QUESTION: %s

INSTRUCTIONS:
1. Provide a helpful, accurate response based on the knowledge provided
2. Structure your response to cover: %s.
3. Make the response practical and actionable
4. Use simple language appropriate for farmers
5. If the question is unclear, ask for clarification
6. If you don't have enough information, suggest consulting local agricultural officers

RESPONSE FORMAT:
1. First, provide a direct, concise answer in ONE short sentence (max 20 words). Start with [MAIN_ANSWER]
2. Then, provide detailed explanation and context. Start with [CONTEXT]

Example:
[MAIN_ANSWER] Your plants likely have fungal leaf spot disease.
[CONTEXT] This is caused by humid conditions and can be treated with copper-based fungicides. Ensure proper spacing between plants for air circulation.

RESPONSE:`

// Tags that delimit the two answer segments.
const (
	MainAnswerTag = "[MAIN_ANSWER]"
	ContextTag    = "[CONTEXT]"
)

// FallbackMessage is the apology used when the pipeline cannot answer.
var FallbackMessage = map[string]struct{ Main, Context string }{
	models.LanguageEnglish: {
		Main:    "I'm having trouble processing your question right now.",
		Context: "Please try rephrasing your question or contact your local agricultural officer for assistance.",
	},
	models.LanguageMalayalam: {
		Main:    "ക്ഷമിക്കണം, നിങ്ങളുടെ ചോദ്യം ഇപ്പോൾ പ്രോസസ്സ് ചെയ്യുന്നതിൽ എനിക്ക് പ്രശ്നമുണ്ട്.",
		Context: "ദയവായി നിങ്ങളുടെ ചോദ്യം മാറ്റി പറയുക അല്ലെങ്കിൽ നിങ്ങളുടെ പ്രാദേശിക കൃഷി ഉദ്യോഗസ്ഥനെ സമീപിക്കുക.",
	},
}

// Fallback returns the apology for language, English when unknown.
func Fallback(language string) (main, context string) {
	msg, ok := FallbackMessage[language]
	if !ok {
		msg = FallbackMessage[models.LanguageEnglish]
	}
	return msg.Main, msg.Context
}

var intentDescriptions = map[models.Intent]string{
	models.IntentDiseaseIdentification: "identifying plant diseases",
	models.IntentPestManagement:        "dealing with pests and insects",
	models.IntentCropCultivation:       "growing and farming advice",
	models.IntentFertilizerAdvice:      "fertilizer and nutrient guidance",
	models.IntentIrrigationAdvice:      "watering and irrigation",
	models.IntentWeatherRelated:        "weather and climate queries",
	models.IntentMarketPrices:          "pricing and market information",
	models.IntentGovernmentSchemes:     "subsidies and government programs",
	models.IntentGeneralAdvice:         "general agricultural questions",
}

// BuildClassificationPrompt lists the closed intent set for the model.
func BuildClassificationPrompt(query, language string) string {
	var b strings.Builder
	for i, in := range models.Intents {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, in, intentDescriptions[in])
	}
	return fmt.Sprintf(ClassificationPrompt, query, language, b.String())
}

type roleTemplate struct {
	system    string
	structure []string
}

var roleTemplates = map[models.Intent]roleTemplate{
	models.IntentDiseaseIdentification: {
		system:    "You are an expert agricultural advisor specializing in plant disease identification. Provide accurate, actionable advice for farmers about crop diseases.",
		structure: []string{"diagnosis", "causes", "treatment", "prevention"},
	},
	models.IntentPestManagement: {
		system:    "You are an expert in integrated pest management. Provide safe, effective solutions for pest control in agriculture.",
		structure: []string{"identification", "control methods", "organic options", "prevention"},
	},
	models.IntentCropCultivation: {
		system:    "You are an agricultural extension officer with expertise in crop cultivation. Provide practical farming advice based on local conditions.",
		structure: []string{"timing", "methods", "requirements", "tips"},
	},
	models.IntentFertilizerAdvice: {
		system:    "You are a soil and plant nutrition expert. Provide balanced fertilizer recommendations considering soil health and sustainability.",
		structure: []string{"soil analysis", "nutrient needs", "application method", "timing"},
	},
	models.IntentIrrigationAdvice: {
		system:    "You are an irrigation specialist. Give water management advice that saves water and suits the crop stage.",
		structure: []string{"water requirement", "schedule", "method", "conservation"},
	},
	models.IntentWeatherRelated: {
		system:    "You are an agro-meteorology advisor. Explain how weather conditions affect the farmer's crops and what to do.",
		structure: []string{"impact", "precautions", "timing"},
	},
	models.IntentMarketPrices: {
		system:    "You are an agricultural marketing advisor. Help farmers understand prices and where to sell.",
		structure: []string{"price factors", "where to sell", "timing"},
	},
	models.IntentGovernmentSchemes: {
		system:    "You are an advisor on Indian and Kerala government schemes for farmers. Explain eligibility and how to apply.",
		structure: []string{"scheme", "eligibility", "how to apply"},
	},
}

var generalTemplate = roleTemplate{
	system:    "You are a helpful agricultural advisor. Provide practical farming advice and guidance.",
	structure: []string{"answer", "recommendations", "additional tips"},
}

// ResponseInput carries everything the response prompt needs.
type ResponseInput struct {
	Query    string
	Intent   models.Intent
	Language string
	Session  models.SessionContext
	Docs     []models.KnowledgeDocument
	History  string
}

// BuildResponsePrompt assembles the generation prompt.
func BuildResponsePrompt(in ResponseInput) string {
	tmpl, ok := roleTemplates[in.Intent]
	if !ok {
		tmpl = generalTemplate
	}

	history := in.History
	if history == "" {
		history = "No previous conversation."
	}

	return fmt.Sprintf(ResponsePrompt,
		tmpl.system,
		languageInstruction(in.Language),
		buildContextSection(in.Session),
		FormatKnowledge(in.Docs),
		history,
		in.Query,
		strings.Join(tmpl.structure, ", "),
	)
}

var languageNames = map[string]string{
	"ml": "Malayalam",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"kn": "Kannada",
}

func languageInstruction(language string) string {
	if name, ok := languageNames[language]; ok {
		return "Respond in " + name + "."
	}
	return "Respond in English."
}

func buildContextSection(sc models.SessionContext) string {
	var b strings.Builder
	if sc.Crop != "" {
		fmt.Fprintf(&b, "Farmer's crop: %s\n", sc.Crop)
	}
	if sc.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", sc.Location)
	}
	if sc.FarmingType != models.FarmingUnset {
		fmt.Fprintf(&b, "Farming type: %s\n", sc.FarmingType)
	}
	if sc.ExperienceLevel != "" {
		fmt.Fprintf(&b, "Experience level: %s\n", sc.ExperienceLevel)
	}
	if sc.CurrentSeason != "" {
		fmt.Fprintf(&b, "Current season: %s\n", sc.CurrentSeason)
	}
	if b.Len() == 0 {
		return "No specific context provided."
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatKnowledge renders retrieved documents with their source labels.
func FormatKnowledge(docs []models.KnowledgeDocument) string {
	if len(docs) == 0 {
		return "No relevant information found in knowledge base."
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		source := doc.Metadata.Source
		if source == "" {
			source = "Knowledge Base"
		}
		parts = append(parts, fmt.Sprintf("[Reference %d - %s]:\n%s", i+1, source, doc.Content))
	}
	return strings.Join(parts, "\n\n")
}

// StructuredAnswer is a model answer split into its two segments.
type StructuredAnswer struct {
	MainAnswer string
	Context    string
}

var sentenceEnd = regexp.MustCompile(`[.!?।]+(?:\s|$)`)

// ParseStructuredAnswer splits a model answer on the [MAIN_ANSWER] and
// [CONTEXT] tags. Without both tags the first sentence becomes the main
// answer and the rest the context.
func ParseStructuredAnswer(text string) StructuredAnswer {
	text = strings.TrimSpace(text)

	mi := strings.Index(text, MainAnswerTag)
	ci := strings.Index(text, ContextTag)
	if mi >= 0 && ci > mi {
		return StructuredAnswer{
			MainAnswer: strings.TrimSpace(text[mi+len(MainAnswerTag) : ci]),
			Context:    strings.TrimSpace(strings.ReplaceAll(text[ci+len(ContextTag):], MainAnswerTag, "")),
		}
	}

	// Strip a stray tag before falling back.
	text = strings.TrimSpace(strings.NewReplacer(MainAnswerTag, "", ContextTag, "").Replace(text))

	loc := sentenceEnd.FindStringIndex(text)
	if loc == nil {
		return StructuredAnswer{MainAnswer: text}
	}
	return StructuredAnswer{
		MainAnswer: strings.TrimSpace(text[:loc[1]]),
		Context:    strings.TrimSpace(text[loc[1]:]),
	}
}
