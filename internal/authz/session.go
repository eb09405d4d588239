package authz

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edudao/gatekeeper/pkg/logger"
	"github.com/edudao/gatekeeper/pkg/metrics"
)

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle means no subject is bound.
	StateIdle State = iota
	// StateLoading means directory queries are in flight.
	StateLoading
	// StateReady means roles and permissions were resolved.
	StateReady
	// StateFailed means a directory query failed; sets are empty.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a Session at one point in time.
type Snapshot struct {
	UserID      string
	State       State
	Roles       Roles
	Permissions Permissions
	Err         error
}

// Loading reports whether queries are still in flight.
func (s Snapshot) Loading() bool {
	return s.State == StateLoading
}

// HasPermission checks the resolved permission set without touching the
// directory. Anything but a ready snapshot denies.
func (s Snapshot) HasPermission(name string) bool {
	if s.State != StateReady {
		return false
	}
	return s.Permissions.Has(name)
}

// Session tracks the authorization state for the subject currently bound to a
// consumer. Rebinding discards earlier results, including ones still in flight.
type Session struct {
	resolver *Resolver
	log      *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	snap    Snapshot
	changed chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionLogger overrides the session logger.
func WithSessionLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession returns an idle session backed by resolver.
func NewSession(resolver *Resolver, opts ...SessionOption) *Session {
	s := &Session{
		resolver: resolver,
		log:      logger.WithModule("authz"),
		snap:     Snapshot{State: StateIdle, Roles: Roles{}, Permissions: Permissions{}},
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUser binds the session to userID. An empty userID is the anonymous
// subject and settles immediately without querying the directory. Binding the
// subject that is already bound is a no-op.
func (s *Session) SetUser(userID string) {
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || userID == s.snap.UserID {
		return
	}
	s.restartLocked(userID)
}

// Refresh re-runs resolution for the bound subject.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.restartLocked(s.snap.UserID)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// HasPermission is bound to the currently resolved permission set.
func (s *Session) HasPermission(name string) bool {
	return s.Snapshot().HasPermission(name)
}

// Changed returns a channel closed on the next state transition.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Wait blocks until the session leaves the loading state or ctx is done. The
// returned snapshot is the latest one observed.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	ctx = ensureContext(ctx)
	for {
		s.mu.Lock()
		snap, ch := s.snap, s.changed
		s.mu.Unlock()

		if !snap.Loading() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// Close stops observing. In-flight queries are cancelled and their results
// dropped. A session closed while loading settles as failed with
// ErrSessionClosed so waiters are released. Close returns once the load
// goroutine has exited, including when another caller closed it first.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.snap.Loading() {
		s.publishLocked(Snapshot{
			UserID:      s.snap.UserID,
			State:       StateFailed,
			Roles:       Roles{},
			Permissions: Permissions{},
			Err:         ErrSessionClosed,
		})
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) restartLocked(userID string) {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if userID == "" {
		s.publishLocked(Snapshot{State: StateIdle, Roles: Roles{}, Permissions: Permissions{}})
		return
	}

	s.publishLocked(Snapshot{UserID: userID, State: StateLoading, Roles: Roles{}, Permissions: Permissions{}})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	gen := s.gen

	s.wg.Add(1)
	go s.load(ctx, gen, userID)
}

func (s *Session) load(ctx context.Context, gen uint64, userID string) {
	defer s.wg.Done()

	var (
		roles Roles
		perms Permissions
	)

	// Roles and permissions are independent reads; either may finish first.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.resolver.ResolveRoles(gctx, userID)
		if err != nil {
			return err
		}
		roles = r
		return nil
	})
	g.Go(func() error {
		p, err := s.resolver.ResolvePermissions(gctx, userID)
		if err != nil {
			return err
		}
		perms = p
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.log.Debug("discarding stale authorization result", zap.String("user_id", userID))
		metrics.SessionTransitions.WithLabelValues("stale").Inc()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil {
		s.log.Warn("authorization session failed", zap.String("user_id", userID), zap.Error(err))
		s.publishLocked(Snapshot{
			UserID:      userID,
			State:       StateFailed,
			Roles:       Roles{},
			Permissions: Permissions{},
			Err:         err,
		})
		return
	}

	s.publishLocked(Snapshot{
		UserID:      userID,
		State:       StateReady,
		Roles:       roles,
		Permissions: perms,
	})
}

func (s *Session) publishLocked(snap Snapshot) {
	s.snap = snap
	close(s.changed)
	s.changed = make(chan struct{})
	metrics.SessionTransitions.WithLabelValues(snap.State.String()).Inc()
}
