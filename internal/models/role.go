package models

// Role is a named bundle of permissions.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`
}
