package authz

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/edudao/gatekeeper/pkg/logger"
	"github.com/edudao/gatekeeper/pkg/metrics"
)

// Resolver turns a user identifier into the roles and permissions granted to
// it by the directory.
type Resolver struct {
	dir Directory
	log *zap.Logger
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the logger used for swallowed failures.
func WithResolverLogger(log *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver constructs a Resolver over the provided directory.
func NewResolver(dir Directory, opts ...ResolverOption) (*Resolver, error) {
	if dir == nil {
		return nil, errors.New("authz: directory is required")
	}
	r := &Resolver{dir: dir, log: logger.WithModule("authz")}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolveRoles returns the distinct roles assigned to userID.
func (r *Resolver) ResolveRoles(ctx context.Context, userID string) (Roles, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	assignments, err := r.dir.QueryRoleAssignments(ctx, userID)
	if err != nil {
		return nil, queryError("role assignments", userID, err)
	}

	byID := make(map[string]Role, len(assignments))
	for _, a := range assignments {
		if a.Role == nil {
			continue
		}
		id := a.Role.ID
		if id == "" {
			id = a.RoleID
		}
		if _, seen := byID[id]; seen {
			continue
		}
		role := *a.Role
		role.ID = id
		byID[id] = role
	}
	return newRoles(byID), nil
}

// ResolvePermissions returns the distinct permissions reachable from the roles
// assigned to userID through a single grant hop.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID string) (Permissions, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	roleIDs, err := r.dir.QueryRoleIDs(ctx, userID)
	if err != nil {
		return nil, queryError("role ids", userID, err)
	}
	roleIDs = uniqueIDs(roleIDs)
	if len(roleIDs) == 0 {
		return Permissions{}, nil
	}

	grants, err := r.dir.QueryPermissionGrants(ctx, roleIDs)
	if err != nil {
		return nil, queryError("permission grants", userID, err)
	}

	byID := make(map[string]Permission, len(grants))
	for _, g := range grants {
		if g.Permission == nil || g.Permission.ID == "" {
			continue
		}
		if _, seen := byID[g.Permission.ID]; seen {
			continue
		}
		byID[g.Permission.ID] = *g.Permission
	}
	return newPermissions(byID), nil
}

// HasPermission reports whether userID holds a permission named exactly
// permissionName. Directory failures are logged and reported as a denial.
func (r *Resolver) HasPermission(ctx context.Context, userID, permissionName string) bool {
	if strings.TrimSpace(userID) == "" {
		metrics.PermissionChecks.WithLabelValues("denied").Inc()
		return false
	}

	perms, err := r.ResolvePermissions(ctx, userID)
	if err != nil {
		r.log.Error("permission check failed",
			zap.String("user_id", userID),
			zap.String("permission", permissionName),
			zap.Error(err),
		)
		metrics.PermissionChecks.WithLabelValues("error").Inc()
		return false
	}

	if perms.Has(permissionName) {
		metrics.PermissionChecks.WithLabelValues("allowed").Inc()
		return true
	}
	metrics.PermissionChecks.WithLabelValues("denied").Inc()
	return false
}

func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
