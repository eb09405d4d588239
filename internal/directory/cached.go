package directory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/cache"
	"github.com/edudao/gatekeeper/pkg/logger"
	"github.com/edudao/gatekeeper/pkg/metrics"
)

const defaultCacheTTL = 30 * time.Second

// ErrClosed is returned by a CachedDirectory after Close.
var ErrClosed = errors.New("directory: closed")

// CachedDirectory is a read-through cache in front of another directory.
// Identical concurrent queries share one upstream call. Cache failures are
// logged and never fail a query.
type CachedDirectory struct {
	next  authz.Directory
	store cache.Store
	ttl   time.Duration
	group singleflight.Group
	log   *zap.Logger

	// Upstream loads detach from caller cancellation, so Close tracks them.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

var _ authz.Directory = (*CachedDirectory)(nil)

// NewCachedDirectory wraps next with store. A nil store disables caching but
// keeps request coalescing.
func NewCachedDirectory(next authz.Directory, store cache.Store, ttl time.Duration) (*CachedDirectory, error) {
	if next == nil {
		return nil, errors.New("directory: upstream directory is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedDirectory{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   logger.WithModule("directory"),
	}, nil
}

// QueryRoleAssignments implements authz.Directory.
func (d *CachedDirectory) QueryRoleAssignments(ctx context.Context, userID string) ([]authz.RoleAssignment, error) {
	var out []authz.RoleAssignment
	err := d.lookup(ctx, "role_assignments", assignmentsKey(userID), &out, func(ctx context.Context) (any, error) {
		return d.next.QueryRoleAssignments(ctx, userID)
	})
	return out, err
}

// QueryRoleIDs implements authz.Directory.
func (d *CachedDirectory) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	var out []string
	err := d.lookup(ctx, "role_ids", roleIDsKey(userID), &out, func(ctx context.Context) (any, error) {
		return d.next.QueryRoleIDs(ctx, userID)
	})
	return out, err
}

// QueryPermissionGrants implements authz.Directory.
func (d *CachedDirectory) QueryPermissionGrants(ctx context.Context, roleIDs []string) ([]authz.PermissionGrant, error) {
	var out []authz.PermissionGrant
	err := d.lookup(ctx, "permission_grants", grantsKey(roleIDs), &out, func(ctx context.Context) (any, error) {
		return d.next.QueryPermissionGrants(ctx, roleIDs)
	})
	return out, err
}

// Close refuses new upstream loads and waits for detached ones to finish.
// Cached entries remain readable.
func (d *CachedDirectory) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	return nil
}

func (d *CachedDirectory) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.inflight.Add(1)
	return true
}

// Invalidate drops cached rows for userID. Grant entries are keyed by role set
// and age out through the TTL.
func (d *CachedDirectory) Invalidate(ctx context.Context, userID string) error {
	if d.store == nil {
		return nil
	}
	return d.store.Delete(ctx, assignmentsKey(userID), roleIDsKey(userID))
}

func (d *CachedDirectory) lookup(ctx context.Context, query, key string, dst any, load func(context.Context) (any, error)) error {
	if d.store != nil {
		raw, ok, err := d.store.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues(query, "error").Inc()
			d.log.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			if err := json.Unmarshal(raw, dst); err == nil {
				metrics.CacheLookups.WithLabelValues(query, "hit").Inc()
				return nil
			}
			metrics.CacheLookups.WithLabelValues(query, "error").Inc()
			d.log.Warn("directory cache entry corrupt", zap.String("key", key))
		default:
			metrics.CacheLookups.WithLabelValues(query, "miss").Inc()
		}
	}

	ch := d.group.DoChan(key, func() (any, error) {
		if !d.begin() {
			return nil, ErrClosed
		}
		defer d.inflight.Done()

		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if d.store != nil {
			if err := d.store.Set(context.WithoutCancel(ctx), key, raw, d.ttl); err != nil {
				d.log.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dst)
	}
}

func assignmentsKey(userID string) string {
	return "directory:role_assignments:" + userID
}

func roleIDsKey(userID string) string {
	return "directory:role_ids:" + userID
}

// grantsKey length-prefixes each id so no id content can collide with the
// separators.
func grantsKey(roleIDs []string) string {
	ids := append([]string(nil), roleIDs...)
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("directory:permission_grants:")
	for _, id := range ids {
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(id)
	}
	return b.String()
}
