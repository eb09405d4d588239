package authz

import (
	"context"
	"sort"
)

// Role is a named bundle of permissions assignable to a user.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Permission is an atomic authorization unit scoped to a resource and action.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

// RoleAssignment is one row of the user → role relation with the role record
// joined in. Role is nil when the assignment references a missing role.
type RoleAssignment struct {
	RoleID string `json:"role_id"`
	Role   *Role  `json:"role,omitempty"`
}

// PermissionGrant is one row of the role → permission relation with the
// permission record joined in.
type PermissionGrant struct {
	RoleID     string      `json:"role_id"`
	Permission *Permission `json:"permission,omitempty"`
}

// Directory is the read-only query surface of the role/permission store.
type Directory interface {
	QueryRoleAssignments(ctx context.Context, userID string) ([]RoleAssignment, error)
	QueryRoleIDs(ctx context.Context, userID string) ([]string, error)
	QueryPermissionGrants(ctx context.Context, roleIDs []string) ([]PermissionGrant, error)
}

// Roles is a deduplicated set of roles ordered by ID.
type Roles []Role

// IDs returns the role identifiers in set order.
func (r Roles) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, role := range r {
		ids = append(ids, role.ID)
	}
	return ids
}

// Permissions is a deduplicated set of permissions ordered by ID.
type Permissions []Permission

// Has reports whether the set contains a permission with exactly this name.
func (p Permissions) Has(name string) bool {
	for _, perm := range p {
		if perm.Name == name {
			return true
		}
	}
	return false
}

// Names returns the permission names in set order.
func (p Permissions) Names() []string {
	names := make([]string, 0, len(p))
	for _, perm := range p {
		names = append(names, perm.Name)
	}
	return names
}

func newRoles(byID map[string]Role) Roles {
	out := make(Roles, 0, len(byID))
	for _, role := range byID {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newPermissions(byID map[string]Permission) Permissions {
	out := make(Permissions, 0, len(byID))
	for _, perm := range byID {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
