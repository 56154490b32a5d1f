package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/krishiseva/internal/models"
)

type localEntry struct {
	value     []byte
	list      [][]byte
	writtenAt time.Time
	ttl       time.Duration
}

func (e localEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.writtenAt) >= e.ttl
}

// LocalStore is an in-process Store. Entries expire lazily: an entry older
// than its TTL is dropped when it is next read.
type LocalStore struct {
	mu      sync.Mutex
	entries map[string]localEntry
	now     func() time.Time
}

// NewLocalStore creates an empty store. now may be nil.
func NewLocalStore(now func() time.Time) *LocalStore {
	if now == nil {
		now = time.Now
	}
	return &LocalStore{
		entries: make(map[string]localEntry),
		now:     now,
	}
}

// lookup returns the live entry for key. Caller holds mu.
func (s *LocalStore) lookup(key string) (localEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return localEntry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return localEntry{}, false
	}
	return e, true
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.value == nil {
		return nil, models.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = localEntry{
		value:     append([]byte(nil), value...),
		writtenAt: s.now(),
		ttl:       ttl,
	}
	return nil
}

func (s *LocalStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil
	}
	e.writtenAt = s.now()
	e.ttl = ttl
	s.entries[key] = e
	return nil
}

func (s *LocalStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *LocalStore) PushList(_ context.Context, key string, capacity int, ttl time.Duration, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.lookup(key)
	list := make([][]byte, 0, len(values)+len(e.list))
	for i := len(values) - 1; i >= 0; i-- {
		list = append(list, append([]byte(nil), values[i]...))
	}
	list = append(list, e.list...)
	if capacity > 0 && len(list) > capacity {
		list = list[:capacity]
	}

	s.entries[key] = localEntry{
		list:      list,
		writtenAt: s.now(),
		ttl:       ttl,
	}
	return nil
}

func (s *LocalStore) RangeList(_ context.Context, key string, limit int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || limit <= 0 {
		return nil, nil
	}
	if limit > len(e.list) {
		limit = len(e.list)
	}
	out := make([][]byte, limit)
	copy(out, e.list[:limit])
	return out, nil
}

func (s *LocalStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of entries, expired or not.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
