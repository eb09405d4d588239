package authz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSessionCapacity = 1024
	defaultSessionTTL      = 5 * time.Minute
)

// Sessions keeps one live Session per subject so request-scoped consumers can
// observe an existing resolution instead of starting their own. Entries expire
// after the configured TTL; failed sessions are replaced on next acquisition.
type Sessions struct {
	resolver *Resolver
	opts     []SessionOption

	// mu serialises lookup and replacement so concurrent first acquisitions
	// share one session.
	mu      sync.Mutex
	entries *expirable.LRU[string, *Session]
}

// NewSessions builds a registry holding at most capacity sessions for ttl.
func NewSessions(resolver *Resolver, capacity int, ttl time.Duration, opts ...SessionOption) (*Sessions, error) {
	if resolver == nil {
		return nil, errors.New("authz: resolver is required")
	}
	if capacity <= 0 {
		capacity = defaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	// Eviction runs with the LRU lock held; closing waits for the load
	// goroutine, so it happens off that path.
	evict := func(_ string, s *Session) {
		go s.Close()
	}
	return &Sessions{
		resolver: resolver,
		opts:     opts,
		entries:  expirable.NewLRU[string, *Session](capacity, evict, ttl),
	}, nil
}

// Acquire returns the session bound to userID, creating it when needed. The
// anonymous subject always gets a fresh idle session that is not retained.
func (m *Sessions) Acquire(userID string) *Session {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return NewSession(m.resolver, m.opts...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.entries.Get(userID); ok {
		if s.Snapshot().State != StateFailed {
			return s
		}
		m.entries.Remove(userID)
	}

	s := NewSession(m.resolver, m.opts...)
	s.SetUser(userID)
	m.entries.Add(userID, s)
	return s
}

// Await acquires the session for userID and blocks until it settles or ctx is
// done. A session invalidated while being waited on is replaced and awaited
// again.
func (m *Sessions) Await(ctx context.Context, userID string) (Snapshot, error) {
	ctx = ensureContext(ctx)
	for {
		snap, err := m.Acquire(userID).Wait(ctx)
		if err != nil || !errors.Is(snap.Err, ErrSessionClosed) {
			return snap, err
		}
		if err := ctx.Err(); err != nil {
			return snap, err
		}
	}
}

// Invalidate drops the session for userID so the next Acquire re-resolves.
func (m *Sessions) Invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Remove(strings.TrimSpace(userID))
}

// Len reports the number of retained sessions.
func (m *Sessions) Len() int {
	return m.entries.Len()
}

// Close drops every retained session and returns once their loads have
// exited.
func (m *Sessions) Close() {
	m.mu.Lock()
	live := m.entries.Values()
	m.entries.Purge()
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}
