package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/models"
)

// GormDirectory answers directory queries from the SQL store.
type GormDirectory struct {
	db *gorm.DB
}

var _ authz.Directory = (*GormDirectory)(nil)

// NewGormDirectory constructs a directory backed by db.
func NewGormDirectory(db *gorm.DB) (*GormDirectory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &GormDirectory{db: db}, nil
}

// QueryRoleAssignments returns every user_roles row for userID with its role joined.
func (d *GormDirectory) QueryRoleAssignments(ctx context.Context, userID string) ([]authz.RoleAssignment, error) {
	var rows []models.UserRole
	if err := d.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ?", userID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("directory: load role assignments: %w", err)
	}

	out := make([]authz.RoleAssignment, 0, len(rows))
	for _, row := range rows {
		a := authz.RoleAssignment{RoleID: row.RoleID}
		if row.Role != nil {
			a.Role = &authz.Role{
				ID:          row.Role.ID,
				Name:        row.Role.Name,
				Description: row.Role.Description,
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// QueryRoleIDs returns the role ids assigned to userID, duplicates included.
func (d *GormDirectory) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := d.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("role_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("directory: load role ids: %w", err)
	}
	return ids, nil
}

// QueryPermissionGrants returns the grants attached to any of roleIDs in a single query.
func (d *GormDirectory) QueryPermissionGrants(ctx context.Context, roleIDs []string) ([]authz.PermissionGrant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var rows []models.RolePermission
	if err := d.db.WithContext(ctx).
		Preload("Permission").
		Where("role_id IN ?", roleIDs).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("directory: load permission grants: %w", err)
	}

	out := make([]authz.PermissionGrant, 0, len(rows))
	for _, row := range rows {
		g := authz.PermissionGrant{RoleID: row.RoleID}
		if row.Permission != nil {
			g.Permission = &authz.Permission{
				ID:          row.Permission.ID,
				Name:        row.Permission.Name,
				Description: row.Permission.Description,
				Resource:    row.Permission.Resource,
				Action:      row.Permission.Action,
			}
		}
		out = append(out, g)
	}
	return out, nil
}
