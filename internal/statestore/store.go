package statestore

import (
	"context"
	"time"
)

// Store is a key-value store with per-key TTL. Circuit breakers persist
// their mutable triple (failure count, state, last failure time) through
// it so independent worker processes converge on a shared view of
// breaker health. Writes are last-write-wins; there is no cross-process
// locking.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
