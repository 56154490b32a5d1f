package memory

import (
	"context"
	"fmt"
	"time"
)

// Store defines the key/value backend behind the context manager.
// This allows us to swap between Redis and the in-process map.
type Store interface {
	// Get returns the value stored at key, or models.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Expire resets the TTL of key. Missing keys are ignored.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// PushList prepends values to the list at key in order, so the last
	// value ends up first, then trims the list to capacity and resets its TTL.
	// The whole operation is atomic.
	PushList(ctx context.Context, key string, capacity int, ttl time.Duration, values ...[]byte) error

	// RangeList returns up to limit items from the head of the list.
	RangeList(ctx context.Context, key string, limit int) ([][]byte, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// contextKey generates the key for a user's session context
func contextKey(userID string) string {
	return fmt.Sprintf("user_context:%s", userID)
}

// historyKey generates the key for a user's conversation history
func historyKey(userID string) string {
	return fmt.Sprintf("conversation:%s", userID)
}
