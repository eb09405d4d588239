package models

import "time"

// UserRole assigns a role to a user. The table has a surrogate key, so the
// same pair may appear more than once.
type UserRole struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"size:64;index;not null" json:"user_id"`
	RoleID string `gorm:"size:64;index;not null" json:"role_id"`

	Role *Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:CASCADE" json:"role,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// RolePermission grants a permission to a role.
type RolePermission struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID       string `gorm:"size:64;index;not null" json:"role_id"`
	PermissionID string `gorm:"size:64;index;not null" json:"permission_id"`

	Permission *Permission `gorm:"foreignKey:PermissionID;references:ID;constraint:OnDelete:CASCADE" json:"permission,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
