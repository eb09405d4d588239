package database

import "github.com/edudao/gatekeeper/internal/models"

var catalogueRoles = []models.Role{
	{BaseModel: models.BaseModel{ID: "admin"}, Name: "admin", Description: "Platform administrators", IsSystem: true},
	{BaseModel: models.BaseModel{ID: "reviewer"}, Name: "reviewer", Description: "Proposal reviewers", IsSystem: true},
	{BaseModel: models.BaseModel{ID: "institution"}, Name: "institution", Description: "Accredited education institutions", IsSystem: true},
	{BaseModel: models.BaseModel{ID: "member"}, Name: "member", Description: "Token-holding DAO members", IsSystem: true},
}

var cataloguePermissions = []models.Permission{
	{BaseModel: models.BaseModel{ID: "manage_users"}, Name: "manage_users", Description: "Manage members and role assignments", Resource: "users", Action: "manage"},
	{BaseModel: models.BaseModel{ID: "manage_settings"}, Name: "manage_settings", Description: "Manage platform settings", Resource: "settings", Action: "manage"},
	{BaseModel: models.BaseModel{ID: "review_proposal"}, Name: "review_proposal", Description: "Review submitted funding proposals", Resource: "proposals", Action: "review"},
	{BaseModel: models.BaseModel{ID: "manage_institution"}, Name: "manage_institution", Description: "Manage an institution profile and its programs", Resource: "institutions", Action: "manage"},
	{BaseModel: models.BaseModel{ID: "create_proposal"}, Name: "create_proposal", Description: "Submit funding proposals", Resource: "proposals", Action: "create"},
	{BaseModel: models.BaseModel{ID: "vote"}, Name: "vote", Description: "Cast token-weighted votes", Resource: "proposals", Action: "vote"},
}

var catalogueGrants = map[string][]string{
	"admin":       {"manage_users", "manage_settings"},
	"reviewer":    {"review_proposal", "vote"},
	"institution": {"manage_institution", "create_proposal"},
	"member":      {"create_proposal", "vote"},
}

type demoUser struct {
	user  models.User
	roles []string
}

var demoUsers = []demoUser{
	{user: models.User{ID: "u1", Handle: "alice", DisplayName: "Alice (admin)", IsActive: true}, roles: []string{"admin"}},
	{user: models.User{ID: "u2", Handle: "bob", DisplayName: "Bob", IsActive: true}},
	{user: models.User{ID: "u3", Handle: "carol", DisplayName: "Carol (reviewer)", IsActive: true}, roles: []string{"reviewer", "member"}},
	{user: models.User{ID: "u4", Handle: "open-university", DisplayName: "Open University", IsActive: true}, roles: []string{"institution"}},
}

// Catalogue is the seeded role and permission set along with the demo
// members. Grants and Assignments map role and user ids to the ids they hold.
type Catalogue struct {
	Roles       []models.Role
	Permissions []models.Permission
	Grants      map[string][]string
	Assignments map[string][]string
}

// DemoCatalogue returns a copy of the seeded catalogue including demo members.
func DemoCatalogue() Catalogue {
	c := Catalogue{
		Roles:       append([]models.Role(nil), catalogueRoles...),
		Permissions: append([]models.Permission(nil), cataloguePermissions...),
		Grants:      make(map[string][]string, len(catalogueGrants)),
		Assignments: make(map[string][]string, len(demoUsers)),
	}
	for roleID, perms := range catalogueGrants {
		c.Grants[roleID] = append([]string(nil), perms...)
	}
	for _, du := range demoUsers {
		c.Assignments[du.user.ID] = append([]string(nil), du.roles...)
	}
	return c
}
