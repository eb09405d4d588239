package directory

import (
	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/database"
)

// NewDemoStatic returns a Static directory loaded with the seeded DAO
// catalogue and demo members, matching what SeedDemoUsers writes to SQL.
func NewDemoStatic() *Static {
	c := database.DemoCatalogue()

	s := NewStatic()
	for _, r := range c.Roles {
		s.AddRole(authz.Role{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	for _, p := range c.Permissions {
		s.AddPermission(authz.Permission{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Resource:    p.Resource,
			Action:      p.Action,
		})
	}
	for roleID, perms := range c.Grants {
		s.Grant(roleID, perms...)
	}
	for userID, roles := range c.Assignments {
		if len(roles) > 0 {
			s.Assign(userID, roles...)
		}
	}
	return s
}
