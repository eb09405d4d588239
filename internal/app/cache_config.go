package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/cache"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// OpenCacheStore builds the directory cache selected by cache.backend. The
// returned store is nil for the "none" backend. The close func is never nil.
func OpenCacheStore(ctx context.Context, c CacheConfig, db *gorm.DB) (cache.Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "none":
		return nil, noop, nil
	case "", "memory":
		return cache.NewMemoryStore(c.Size, c.TTL), noop, nil
	case "redis":
		store, err := cache.NewRedisStore(ctx, c.RedisClientConfig())
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case "database":
		if db == nil {
			return nil, noop, fmt.Errorf("cache: database backend requires a database connection")
		}
		return cache.NewDatabaseStore(db), noop, nil
	default:
		return nil, noop, fmt.Errorf("cache: unsupported backend %q", c.Backend)
	}
}
