package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/cache"
	"github.com/edudao/gatekeeper/internal/database"
	"github.com/edudao/gatekeeper/internal/directory"
)

// OpenDatabase connects to the configured database, migrates the schema and
// seeds the role catalogue, plus the demo members when database.seed_demo is set.
func OpenDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, multierr.Append(fmt.Errorf("auto-migrate database: %w", err), CloseDatabase(db))
	}
	if cfg.Database.SeedDemo {
		if err := database.SeedDemoUsers(db); err != nil {
			return nil, multierr.Append(fmt.Errorf("seed demo users: %w", err), CloseDatabase(db))
		}
	}
	return db, nil
}

// CloseDatabase releases the underlying connection pool.
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DirectoryStack is the chain of directories the resolver reads through:
// SQL store, instrumentation, then the read-through cache.
type DirectoryStack struct {
	// Directory is the full chain handed to the resolver.
	Directory authz.Directory
	// Source is the instrumented SQL directory below the cache.
	Source authz.Directory
	Cached *directory.CachedDirectory
	Store  cache.Store

	closeStore func() error
}

// OpenDirectory assembles the directory chain over db using the cache section of cfg.
func OpenDirectory(ctx context.Context, cfg *Config, db *gorm.DB) (*DirectoryStack, error) {
	gormDir, err := directory.NewGormDirectory(db)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := OpenCacheStore(ctx, cfg.Cache, db)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	source := directory.NewInstrumented(gormDir)
	cached, err := directory.NewCachedDirectory(source, store, cfg.Cache.TTL)
	if err != nil {
		return nil, multierr.Append(err, closeStore())
	}

	return &DirectoryStack{
		Directory:  cached,
		Source:     source,
		Cached:     cached,
		Store:      store,
		closeStore: closeStore,
	}, nil
}

// ExpiringStores returns the cache stores that need periodic purging.
func (s *DirectoryStack) ExpiringStores() []cache.ExpiringStore {
	if s == nil {
		return nil
	}
	if expiring, ok := s.Store.(cache.ExpiringStore); ok {
		return []cache.ExpiringStore{expiring}
	}
	return nil
}

// Close waits for detached directory loads, then releases the cache store.
func (s *DirectoryStack) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.Cached != nil {
		err = s.Cached.Close()
	}
	if s.closeStore != nil {
		err = multierr.Append(err, s.closeStore())
	}
	return err
}
