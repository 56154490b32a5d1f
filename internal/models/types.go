package models

import "errors"

// NATS request from the web layer
type AskRequest struct {
	UserID            string `json:"user_id"`
	Message           string `json:"message"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

// NATS response to the web layer
type AskResponse struct {
	Success     bool        `json:"success"`
	Response    string      `json:"response"`
	MainAnswer  string      `json:"main_answer"`
	Context     string      `json:"context"`
	Intent      string      `json:"intent"`
	Confidence  float64     `json:"confidence"`
	Language    string      `json:"language"`
	SourcesUsed int         `json:"sources_used"`
	Suggestions []string    `json:"suggestions"`
	Metadata    AskMetadata `json:"metadata"`
	ErrorCode   *string     `json:"error_code,omitempty"`
	Error       *string     `json:"error,omitempty"`
}

// AskMetadata carries observability details. Degradation is only ever
// visible here, never in the answer text.
type AskMetadata struct {
	RequestID          string         `json:"request_id"`
	LanguageDetected   string         `json:"language_detected"`
	LanguageConfidence float64        `json:"language_confidence"`
	IntentMethod       string         `json:"intent_method,omitempty"`
	Stages             []StageNote    `json:"stages,omitempty"`
	Fallback           bool           `json:"fallback"`
	UserContext        SessionContext `json:"user_context"`
}

// HistoryRequest asks for a user's conversation summary.
type HistoryRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// ConversationSummary describes recent activity for one user.
type ConversationSummary struct {
	UserID        string         `json:"user_id"`
	Summary       string         `json:"summary"`
	TotalMessages int            `json:"total_messages"`
	MainTopics    []string       `json:"main_topics"`
	UserContext   SessionContext `json:"user_context"`
	Recent        []HistoryEntry `json:"recent_activity"`
}

// Error codes
const (
	ErrorValidation = "VALIDATION_ERROR"
	ErrorParse      = "PARSE_ERROR"
	ErrorPipeline   = "PIPELINE_FAILURE"
)

var (
	// ErrNotFound is returned by stores when a key is absent or expired.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks requests rejected before the pipeline runs.
	ErrValidation = errors.New("validation error")
)
