package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/edudao/gatekeeper/internal/models"
)

// AutoMigrate creates or updates the directory schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
		&models.CacheEntry{},
	)
}

// SeedData populates the DAO role and permission catalogue. It is idempotent.
func SeedData(db *gorm.DB) error {
	for _, role := range catalogueRoles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	for _, perm := range cataloguePermissions {
		if err := db.Where(models.Permission{BaseModel: models.BaseModel{ID: perm.ID}}).Attrs(perm).FirstOrCreate(&models.Permission{}).Error; err != nil {
			return err
		}
	}

	for roleID, permIDs := range catalogueGrants {
		for _, permID := range permIDs {
			if err := ensureGrant(db, roleID, permID); err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedDemoUsers inserts a handful of members covering each role, plus one with
// no roles at all.
func SeedDemoUsers(db *gorm.DB) error {
	for _, demo := range demoUsers {
		user := demo.user
		if err := db.Where(models.User{ID: user.ID}).Attrs(user).FirstOrCreate(&models.User{}).Error; err != nil {
			return err
		}
		for _, roleID := range demo.roles {
			if err := AssignRole(db, user.ID, roleID); err != nil {
				return err
			}
		}
	}
	return nil
}

// AssignRole links userID to roleID unless that assignment already exists.
func AssignRole(db *gorm.DB, userID, roleID string) error {
	var existing models.UserRole
	err := db.Where("user_id = ? AND role_id = ?", userID, roleID).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
}

func ensureGrant(db *gorm.DB, roleID, permissionID string) error {
	var existing models.RolePermission
	err := db.Where("role_id = ? AND permission_id = ?", roleID, permissionID).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}
