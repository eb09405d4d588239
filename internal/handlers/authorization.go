package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/pkg/errors"
	"github.com/edudao/gatekeeper/pkg/response"
)

const defaultSnapshotWait = 5 * time.Second

// SessionRegistry waits on and drops per-subject sessions.
type SessionRegistry interface {
	Await(ctx context.Context, userID string) (authz.Snapshot, error)
	Invalidate(userID string)
}

// CacheInvalidator drops cached directory rows for a subject.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// SnapshotView is the JSON form of an authorization session.
type SnapshotView struct {
	UserID      string              `json:"user_id,omitempty"`
	State       string              `json:"state"`
	Loading     bool                `json:"loading"`
	Roles       authz.Roles         `json:"roles"`
	Permissions authz.Permissions   `json:"permissions"`
	Error       *response.ErrorInfo `json:"error,omitempty"`
}

// NewSnapshotView renders snap for API consumers.
func NewSnapshotView(snap authz.Snapshot) SnapshotView {
	view := SnapshotView{
		UserID:      snap.UserID,
		State:       snap.State.String(),
		Loading:     snap.Loading(),
		Roles:       snap.Roles,
		Permissions: snap.Permissions,
	}
	if view.Roles == nil {
		view.Roles = authz.Roles{}
	}
	if view.Permissions == nil {
		view.Permissions = authz.Permissions{}
	}
	if snap.Err != nil {
		view.Error = &response.ErrorInfo{
			Code:    errors.ErrDirectoryUnavailable.Code,
			Message: errors.ErrDirectoryUnavailable.Message,
		}
	}
	return view
}

// AuthorizationHandler exposes the resolver and session registry over HTTP.
type AuthorizationHandler struct {
	resolver *authz.Resolver
	sessions SessionRegistry
	cache    CacheInvalidator
	wait     time.Duration
}

// AuthorizationOption customises an AuthorizationHandler.
type AuthorizationOption func(*AuthorizationHandler)

// WithCacheInvalidator lets Refresh also drop cached directory rows.
func WithCacheInvalidator(cache CacheInvalidator) AuthorizationOption {
	return func(h *AuthorizationHandler) {
		h.cache = cache
	}
}

// WithSnapshotWait bounds how long Me waits for a loading session.
func WithSnapshotWait(wait time.Duration) AuthorizationOption {
	return func(h *AuthorizationHandler) {
		if wait > 0 {
			h.wait = wait
		}
	}
}

// NewAuthorizationHandler constructs the handler.
func NewAuthorizationHandler(resolver *authz.Resolver, sessions SessionRegistry, opts ...AuthorizationOption) *AuthorizationHandler {
	h := &AuthorizationHandler{resolver: resolver, sessions: sessions, wait: defaultSnapshotWait}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GET /api/authorization/me
func (h *AuthorizationHandler) Me(c *gin.Context) {
	who, cancel := callerOf(c).bounded(h.wait)
	defer cancel()
	// A timeout still returns the loading snapshot; the client polls again.
	snap, _ := h.sessions.Await(who.ctx, who.userID)

	response.Success(c, http.StatusOK, NewSnapshotView(snap))
}

type checkQuery struct {
	Permission string `form:"permission" json:"permission" validate:"required,permission_name"`
}

// GET /api/authorization/check?permission=NAME
func (h *AuthorizationHandler) Check(c *gin.Context) {
	var q checkQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}

	who := callerOf(c)
	allowed := h.resolver.HasPermission(who.ctx, who.userID, q.Permission)
	response.Success(c, http.StatusOK, gin.H{
		"permission": q.Permission,
		"allowed":    allowed,
	})
}

// POST /api/authorization/refresh
func (h *AuthorizationHandler) Refresh(c *gin.Context) {
	who := callerOf(c)
	if who.anonymous() {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(who.ctx, who.userID); err != nil {
			response.Error(c, errors.Wrap(err, "failed to drop cached authorization data"))
			return
		}
	}
	h.sessions.Invalidate(who.userID)
	h.Me(c)
}

// GET /api/users/:id/roles
func (h *AuthorizationHandler) UserRoles(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	roles, err := h.resolver.ResolveRoles(requestContext(c), userID)
	if err != nil {
		response.Error(c, directoryError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": userID, "roles": roles})
}

// GET /api/users/:id/permissions
func (h *AuthorizationHandler) UserPermissions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	perms, err := h.resolver.ResolvePermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, directoryError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": userID, "permissions": perms})
}

func directoryError(err error) error {
	switch {
	case authz.IsDirectoryQueryError(err):
		return errors.ErrDirectoryUnavailable.WithInternal(err)
	case stderrors.Is(err, authz.ErrUserIDRequired):
		return errors.NewBadRequest("user id is required")
	default:
		return err
	}
}
