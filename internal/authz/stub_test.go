package authz

import (
	"context"
	"errors"
	"sync"
	"time"
)

// stubDirectory is an in-memory Directory with per-user latency and failure
// injection.
type stubDirectory struct {
	mu          sync.Mutex
	roles       map[string]Role
	perms       map[string]Permission
	assignments map[string][]string
	grants      map[string][]string

	failRoles  map[string]error
	failRoleID map[string]error
	failGrants error
	delay      map[string]time.Duration

	assignmentCalls int
	roleIDCalls     int
	grantCalls      int
	grantArgs       [][]string
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		roles:       map[string]Role{},
		perms:       map[string]Permission{},
		assignments: map[string][]string{},
		grants:      map[string][]string{},
		failRoles:   map[string]error{},
		failRoleID:  map[string]error{},
		delay:       map[string]time.Duration{},
	}
}

// daoFixture mirrors the seeded catalogue for a few members.
func daoFixture() *stubDirectory {
	d := newStubDirectory()
	d.roles["r-admin"] = Role{ID: "r-admin", Name: "admin"}
	d.roles["r-reviewer"] = Role{ID: "r-reviewer", Name: "reviewer"}
	d.roles["r-member"] = Role{ID: "r-member", Name: "member"}
	d.perms["p-users"] = Permission{ID: "p-users", Name: "manage_users"}
	d.perms["p-review"] = Permission{ID: "p-review", Name: "review_proposal"}
	d.perms["p-vote"] = Permission{ID: "p-vote", Name: "vote"}
	d.grants["r-admin"] = []string{"p-users"}
	d.grants["r-reviewer"] = []string{"p-review", "p-vote"}
	d.grants["r-member"] = []string{"p-vote"}
	d.assignments["u1"] = []string{"r-admin"}
	d.assignments["u3"] = []string{"r-reviewer", "r-member"}
	return d
}

func (d *stubDirectory) wait(ctx context.Context, userID string) error {
	d.mu.Lock()
	delay := d.delay[userID]
	d.mu.Unlock()
	if delay == 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *stubDirectory) QueryRoleAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	if err := d.wait(ctx, userID); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assignmentCalls++
	if err := d.failRoles[userID]; err != nil {
		return nil, err
	}
	var out []RoleAssignment
	for _, id := range d.assignments[userID] {
		a := RoleAssignment{RoleID: id}
		if role, ok := d.roles[id]; ok {
			role := role
			a.Role = &role
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *stubDirectory) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	if err := d.wait(ctx, userID); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roleIDCalls++
	if err := d.failRoleID[userID]; err != nil {
		return nil, err
	}
	return append([]string(nil), d.assignments[userID]...), nil
}

func (d *stubDirectory) QueryPermissionGrants(_ context.Context, roleIDs []string) ([]PermissionGrant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grantCalls++
	d.grantArgs = append(d.grantArgs, append([]string(nil), roleIDs...))
	if d.failGrants != nil {
		return nil, d.failGrants
	}
	var out []PermissionGrant
	for _, roleID := range roleIDs {
		for _, permID := range d.grants[roleID] {
			g := PermissionGrant{RoleID: roleID}
			if perm, ok := d.perms[permID]; ok {
				perm := perm
				g.Permission = &perm
			}
			out = append(out, g)
		}
	}
	return out, nil
}

func (d *stubDirectory) calls() (assignments, roleIDs, grants int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.assignmentCalls, d.roleIDCalls, d.grantCalls
}

var errDirectoryDown = errors.New("directory unavailable")
