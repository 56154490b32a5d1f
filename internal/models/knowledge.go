package models

// DocumentMetadata describes where a knowledge document came from.
type DocumentMetadata struct {
	Category string `json:"category"`
	Source   string `json:"source"`
	Crop     string `json:"crop,omitempty"`
}

// KnowledgeDocument is a read-only retrieval hit.
type KnowledgeDocument struct {
	Content    string           `json:"content"`
	Metadata   DocumentMetadata `json:"metadata"`
	Similarity float64          `json:"similarity"`
}

// ResponseResult is the composed answer for one question.
type ResponseResult struct {
	MainAnswer  string   `json:"main_answer"`
	ContextText string   `json:"context"`
	Formatted   string   `json:"response"`
	Intent      Intent   `json:"intent"`
	Confidence  float64  `json:"confidence"`
	Language    string   `json:"language"`
	SourcesUsed int      `json:"sources_used"`
	Suggestions []string `json:"suggestions"`
}
