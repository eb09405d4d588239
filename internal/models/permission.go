package models

// Permission governs one action on one resource type.
type Permission struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Description string `json:"description"`
	Resource    string `gorm:"size:64;index" json:"resource"`
	Action      string `gorm:"size:64;index" json:"action"`
}
