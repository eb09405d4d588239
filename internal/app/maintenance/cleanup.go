package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/edudao/gatekeeper/internal/cache"
	"github.com/edudao/gatekeeper/pkg/logger"
)

const defaultCachePurgeSpec = "@every 10m"

// ExpiringStore is a cache whose expired entries must be removed explicitly.
type ExpiringStore = cache.ExpiringStore

// Cleaner coordinates background maintenance tasks such as purging expired
// directory cache entries.
type Cleaner struct {
	stores []ExpiringStore
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	purgeSchedule string

	mu     sync.Mutex
	status RunStatus
}

// RunStatus describes the purge history observed by health probes.
type RunStatus struct {
	Enabled             bool
	TotalRuns           uint64
	LastRunAt           time.Time
	LastError           error
	ConsecutiveFailures uint64
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithPurgeSchedule overrides the cron specification for cache purges.
func WithPurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.purgeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner over the given stores. Nil stores are
// ignored; with none left Start is a no-op.
func NewCleaner(stores []ExpiringStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:           time.Now,
		purgeSchedule: defaultCachePurgeSpec,
		log:           logger.WithModule("maintenance"),
	}
	for _, s := range stores {
		if s != nil {
			cleaner.stores = append(cleaner.stores, s)
		}
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Enabled reports whether any store needs purging.
func (c *Cleaner) Enabled() bool {
	return len(c.stores) > 0
}

// Start registers the purge job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.purgeSchedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cache purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce purges every store once. Failures are collected rather than
// stopping at the first one.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		errs    error
		removed int64
	)
	now := c.now()
	for _, store := range c.stores {
		n, err := store.PurgeExpired(ctx, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed += n
	}

	if removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("removed", removed))
	}
	c.record(now, errs)
	return errs
}

// Status returns the purge history.
func (c *Cleaner) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	status.Enabled = c.Enabled()
	return status
}

func (c *Cleaner) record(at time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.TotalRuns++
	c.status.LastRunAt = at
	c.status.LastError = err
	if err != nil {
		c.status.ConsecutiveFailures++
	} else {
		c.status.ConsecutiveFailures = 0
	}
}
