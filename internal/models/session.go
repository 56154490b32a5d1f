package models

import "time"

// FarmingType is the farmer's declared cultivation practice.
type FarmingType string

const (
	FarmingUnset        FarmingType = ""
	FarmingOrganic      FarmingType = "organic"
	FarmingConventional FarmingType = "conventional"
	FarmingMixed        FarmingType = "mixed"
)

// ExperienceLevel is how experienced the farmer says they are.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

// Season is the Indian agricultural season derived from the calendar month.
type Season string

const (
	SeasonKharif Season = "kharif"
	SeasonRabi   Season = "rabi"
	SeasonSummer Season = "summer"
)

// Language codes used by the session layer.
const (
	LanguageEnglish   = "en"
	LanguageMalayalam = "ml"
	LanguageOther     = "other"
)

// Roles for history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionContext is the per-user conversational state.
type SessionContext struct {
	Crop              string          `json:"crop,omitempty"`
	Location          string          `json:"location,omitempty"`
	FarmingType       FarmingType     `json:"farming_type,omitempty"`
	ExperienceLevel   ExperienceLevel `json:"experience_level"`
	PreferredLanguage string          `json:"preferred_language"`
	CurrentSeason     Season          `json:"current_season"`
	ConversationCount int             `json:"conversation_count"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// DefaultSessionContext returns the context used for new or expired sessions.
func DefaultSessionContext(now time.Time) SessionContext {
	return SessionContext{
		ExperienceLevel:   ExperienceIntermediate,
		PreferredLanguage: LanguageEnglish,
		CurrentSeason:     SeasonFor(now),
		LastUpdated:       now,
	}
}

// SeasonFor maps a date to kharif (Jun-Sep), rabi (Oct-Jan) or summer.
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.June, time.July, time.August, time.September:
		return SeasonKharif
	case time.October, time.November, time.December, time.January:
		return SeasonRabi
	default:
		return SeasonSummer
	}
}

// ContextUpdate is a partial update. Nil fields are left untouched.
type ContextUpdate struct {
	Crop              *string
	Location          *string
	FarmingType       *FarmingType
	ExperienceLevel   *ExperienceLevel
	PreferredLanguage *string
	ConversationCount *int
}

// IsEmpty reports whether the update changes nothing.
func (u ContextUpdate) IsEmpty() bool {
	return u.Crop == nil && u.Location == nil && u.FarmingType == nil &&
		u.ExperienceLevel == nil && u.PreferredLanguage == nil && u.ConversationCount == nil
}

// Apply merges the update into c. Specified fields overwrite, the rest persist.
func (c SessionContext) Apply(u ContextUpdate) SessionContext {
	if u.Crop != nil {
		c.Crop = *u.Crop
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.FarmingType != nil {
		c.FarmingType = *u.FarmingType
	}
	if u.ExperienceLevel != nil {
		c.ExperienceLevel = *u.ExperienceLevel
	}
	if u.PreferredLanguage != nil {
		c.PreferredLanguage = *u.PreferredLanguage
	}
	if u.ConversationCount != nil && *u.ConversationCount >= 0 {
		c.ConversationCount = *u.ConversationCount
	}
	return c
}

// HistoryEntry is one conversational turn.
type HistoryEntry struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
	Timestamp  time.Time `json:"timestamp"`
	Intent     string    `json:"intent,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// SessionLanguage folds a language code into the en|ml|other session enum.
func SessionLanguage(code string) string {
	switch code {
	case LanguageEnglish, LanguageMalayalam:
		return code
	default:
		return LanguageOther
	}
}

// Ptr returns a pointer to v. Handy for building ContextUpdate literals.
func Ptr[T any](v T) *T {
	return &v
}
