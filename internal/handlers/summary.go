package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/krishiseva/internal/models"
)

const (
	summaryHistoryLimit = 10
	recentActivity      = 3
)

// Summary describes a user's recent conversation: how many messages are
// kept, which intents the farmer asked about and the current context.
func (h *ConversationHandler) Summary(ctx context.Context, userID string, limit int) (models.ConversationSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return models.ConversationSummary{}, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	if limit <= 0 {
		limit = summaryHistoryLimit
	}

	history := h.sessions.History(ctx, userID, limit)
	sc := h.sessions.Get(ctx, userID)
	if history.IsDegraded() || sc.IsDegraded() {
		h.logger.Warn("summary served from local store", "user", userID)
	}

	s := models.ConversationSummary{
		UserID:        userID,
		TotalMessages: len(history.Value),
		MainTopics:    mainTopics(history.Value),
		UserContext:   sc.Value,
		Recent:        history.Value,
	}
	if len(s.Recent) > recentActivity {
		s.Recent = s.Recent[:recentActivity]
	}

	switch {
	case s.TotalMessages == 0:
		s.Summary = "No conversation history found."
		s.Recent = []models.HistoryEntry{}
	case len(s.MainTopics) == 0:
		s.Summary = fmt.Sprintf("User has had %d interactions.", s.TotalMessages)
	default:
		s.Summary = fmt.Sprintf("User has had %d interactions covering topics like %s.",
			s.TotalMessages, strings.Join(s.MainTopics, ", "))
	}
	return s, nil
}

// mainTopics lists the distinct intents of user turns, newest first.
func mainTopics(history []models.HistoryEntry) []string {
	topics := []string{}
	seen := make(map[string]bool)
	for _, e := range history {
		if e.Role != models.RoleUser || e.Intent == "" || seen[e.Intent] {
			continue
		}
		seen[e.Intent] = true
		topics = append(topics, e.Intent)
	}
	return topics
}

// Clear forgets a user's context and history.
func (h *ConversationHandler) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	return h.sessions.Clear(ctx, userID)
}
