package directory

import (
	"context"
	"sync"

	"github.com/edudao/gatekeeper/internal/authz"
)

// Static is an in-memory directory. It is safe for concurrent use and keeps
// duplicate assignment and grant rows exactly as they were added.
type Static struct {
	mu          sync.RWMutex
	roles       map[string]authz.Role
	permissions map[string]authz.Permission
	assignments map[string][]string
	grants      map[string][]string
}

var _ authz.Directory = (*Static)(nil)

// NewStatic returns an empty directory.
func NewStatic() *Static {
	return &Static{
		roles:       make(map[string]authz.Role),
		permissions: make(map[string]authz.Permission),
		assignments: make(map[string][]string),
		grants:      make(map[string][]string),
	}
}

// AddRole registers or replaces a role.
func (s *Static) AddRole(role authz.Role) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
	return s
}

// AddPermission registers or replaces a permission.
func (s *Static) AddPermission(perm authz.Permission) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[perm.ID] = perm
	return s
}

// Assign appends user → role rows.
func (s *Static) Assign(userID string, roleIDs ...string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[userID] = append(s.assignments[userID], roleIDs...)
	return s
}

// Grant appends role → permission rows.
func (s *Static) Grant(roleID string, permissionIDs ...string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[roleID] = append(s.grants[roleID], permissionIDs...)
	return s
}

func (s *Static) QueryRoleAssignments(ctx context.Context, userID string) ([]authz.RoleAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.assignments[userID]
	out := make([]authz.RoleAssignment, 0, len(ids))
	for _, id := range ids {
		a := authz.RoleAssignment{RoleID: id}
		if role, ok := s.roles[id]; ok {
			role := role
			a.Role = &role
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Static) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.assignments[userID]...), nil
}

func (s *Static) QueryPermissionGrants(ctx context.Context, roleIDs []string) ([]authz.PermissionGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []authz.PermissionGrant
	for _, roleID := range roleIDs {
		for _, permID := range s.grants[roleID] {
			g := authz.PermissionGrant{RoleID: roleID}
			if perm, ok := s.permissions[permID]; ok {
				perm := perm
				g.Permission = &perm
			}
			out = append(out, g)
		}
	}
	return out, nil
}
