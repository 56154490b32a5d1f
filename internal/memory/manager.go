package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

const (
	DefaultTTL            = 2 * time.Hour
	DefaultHistoryLimit   = 20
	DefaultShortTermTurns = 5
)

// Options configures a ContextManager. Zero values take defaults.
type Options struct {
	TTL             time.Duration
	HistoryCapacity int
	Now             func() time.Time
	Logger          *log.Logger
}

// ContextManager keeps per-user session context and history in a primary
// Store and serves from an in-process LocalStore while the primary fails.
//
// Concurrent updates for the same user are last-write-wins.
type ContextManager struct {
	primary  Store
	local    *LocalStore
	ttl      time.Duration
	capacity int
	now      func() time.Time
	logger   *log.Logger
}

// NewContextManager creates a context manager. primary may be nil, in which
// case the local store is used without reporting degradation.
func NewContextManager(primary Store, opts Options) *ContextManager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &ContextManager{
		primary:  primary,
		local:    NewLocalStore(opts.Now),
		ttl:      opts.TTL,
		capacity: opts.HistoryCapacity,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// TTL returns the session lifetime.
func (m *ContextManager) TTL() time.Duration {
	return m.ttl
}

// Get returns the user's session context. The value is always usable: a
// miss, an expired entry or a corrupt payload yields the default context.
func (m *ContextManager) Get(ctx context.Context, userID string) models.Outcome[models.SessionContext] {
	now := m.now()
	data, fellBack, err := m.get(ctx, contextKey(userID))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		m.logger.Warn("failed to load context", "user", userID, "err", err)
		return models.Degraded(models.DefaultSessionContext(now), models.ReasonContextStoreUnavailable, err)
	}

	sc := models.DefaultSessionContext(now)
	if err == nil {
		var stored models.SessionContext
		if jerr := json.Unmarshal(data, &stored); jerr != nil {
			m.logger.Warn("discarding corrupt context", "user", userID, "err", jerr)
		} else if now.Sub(stored.LastUpdated) < m.ttl {
			sc = stored
			sc.CurrentSeason = models.SeasonFor(now)
		}
	}

	if fellBack != nil {
		return models.Degraded(sc, models.ReasonContextStoreUnavailable, fellBack)
	}
	return models.Ok(sc)
}

// Update merges u into the stored context, refreshes LastUpdated and
// re-applies the TTL.
func (m *ContextManager) Update(ctx context.Context, userID string, u models.ContextUpdate) models.Outcome[models.SessionContext] {
	current := m.Get(ctx, userID)

	sc := current.Value.Apply(u)
	sc.LastUpdated = m.now()
	sc.CurrentSeason = models.SeasonFor(sc.LastUpdated)

	data, err := json.Marshal(sc)
	if err != nil {
		return models.Degraded(current.Value, models.ReasonContextStoreUnavailable, fmt.Errorf("failed to marshal context: %w", err))
	}

	fellBack := m.set(ctx, contextKey(userID), data)
	if fellBack == nil {
		fellBack = current.Err
	}
	if fellBack != nil {
		return models.Degraded(sc, models.ReasonContextStoreUnavailable, fellBack)
	}
	return models.Ok(sc)
}

// AppendHistory pushes entries to the front of the user's history in one
// backend call, so entries of one call are never interleaved with another.
// The value is the number of entries written.
func (m *ContextManager) AppendHistory(ctx context.Context, userID string, entries ...models.HistoryEntry) models.Outcome[int] {
	if len(entries) == 0 {
		return models.Ok(0)
	}

	values := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = m.now()
		}
		data, err := json.Marshal(e)
		if err != nil {
			return models.Failed[int](models.ReasonContextStoreUnavailable, fmt.Errorf("failed to marshal history entry: %w", err))
		}
		values = append(values, data)
	}

	key := historyKey(userID)
	if m.primary != nil {
		err := m.primary.PushList(ctx, key, m.capacity, m.ttl, values...)
		if err == nil {
			return models.Ok(len(values))
		}
		m.logger.Warn("history push failed, using local store", "user", userID, "err", err)
		_ = m.local.PushList(ctx, key, m.capacity, m.ttl, values...)
		return models.Degraded(len(values), models.ReasonContextStoreUnavailable, err)
	}

	_ = m.local.PushList(ctx, key, m.capacity, m.ttl, values...)
	return models.Ok(len(values))
}

// History returns up to limit entries, most recent first.
func (m *ContextManager) History(ctx context.Context, userID string, limit int) models.Outcome[[]models.HistoryEntry] {
	if limit <= 0 || limit > m.capacity {
		limit = m.capacity
	}

	key := historyKey(userID)
	var (
		raw      [][]byte
		fellBack error
	)
	if m.primary != nil {
		var err error
		raw, err = m.primary.RangeList(ctx, key, limit)
		if err != nil {
			m.logger.Warn("history read failed, using local store", "user", userID, "err", err)
			fellBack = err
			raw, _ = m.local.RangeList(ctx, key, limit)
		}
	} else {
		raw, _ = m.local.RangeList(ctx, key, limit)
	}

	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e models.HistoryEntry
		if err := json.Unmarshal(item, &e); err != nil {
			m.logger.Debug("skipping corrupt history entry", "user", userID, "err", err)
			continue
		}
		entries = append(entries, e)
	}

	if fellBack != nil {
		return models.Degraded(entries, models.ReasonContextStoreUnavailable, fellBack)
	}
	return models.Ok(entries)
}

// Clear removes a user's context and history from both stores.
func (m *ContextManager) Clear(ctx context.Context, userID string) error {
	keys := []string{contextKey(userID), historyKey(userID)}
	_ = m.local.Delete(ctx, keys...)
	if m.primary == nil {
		return nil
	}
	if err := m.primary.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Info("cleared session", "user", userID)

	return nil
}

// FormattedHistory renders the last turns exchanges as prompt text, oldest
// first, through a LangChainGo conversation buffer.
func (m *ContextManager) FormattedHistory(ctx context.Context, userID string, turns int) string {
	if turns <= 0 {
		turns = DefaultShortTermTurns
	}

	history := m.History(ctx, userID, turns*2).Value
	if len(history) == 0 {
		return ""
	}

	mem := memory.NewConversationBuffer()
	for i := len(history) - 1; i >= 0; i-- {
		var err error
		switch history[i].Role {
		case models.RoleUser:
			err = mem.ChatHistory.AddUserMessage(ctx, history[i].Content)
		case models.RoleAssistant:
			err = mem.ChatHistory.AddAIMessage(ctx, history[i].Content)
		default:
			m.logger.Debug("unknown message role, skipping", "role", history[i].Role)
			continue
		}
		if err != nil {
			m.logger.Warn("failed to add message to buffer", "err", err)
			return ""
		}
	}

	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, msg := range messages {
		switch v := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "Farmer: %s\n", v.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", v.Content)
		case llms.SystemChatMessage:
			fmt.Fprintf(&b, "System: %s\n", v.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

// Ping checks the primary store.
func (m *ContextManager) Ping(ctx context.Context) error {
	if m.primary == nil {
		return nil
	}
	return m.primary.Ping(ctx)
}

// Close closes the underlying store
func (m *ContextManager) Close() error {
	if closer, ok := m.primary.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// get reads key from the primary store, falling back to the local store on
// backend errors. fellBack carries the primary error when the local store
// answered.
func (m *ContextManager) get(ctx context.Context, key string) (data []byte, fellBack error, err error) {
	if m.primary == nil {
		data, err = m.local.Get(ctx, key)
		return data, nil, err
	}

	data, err = m.primary.Get(ctx, key)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return data, nil, err
	}

	m.logger.Warn("context store unavailable, using local store", "key", key, "err", err)
	data, lerr := m.local.Get(ctx, key)
	return data, err, lerr
}

// set writes to the primary store, or to the local store when that fails.
func (m *ContextManager) set(ctx context.Context, key string, data []byte) error {
	if m.primary != nil {
		err := m.primary.Set(ctx, key, data, m.ttl)
		if err == nil {
			return nil
		}
		m.logger.Warn("context write failed, using local store", "key", key, "err", err)
		_ = m.local.Set(ctx, key, data, m.ttl)
		return err
	}
	_ = m.local.Set(ctx, key, data, m.ttl)
	return nil
}
