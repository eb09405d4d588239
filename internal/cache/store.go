package cache

import (
	"context"
	"time"
)

// Store is the byte-oriented cache used in front of the directory.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

const keyPrefix = "gatekeeper:"

// ExpiringStore is implemented by stores whose expired entries must be
// removed explicitly rather than evicted by the backend.
type ExpiringStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
