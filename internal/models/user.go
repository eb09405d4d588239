package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform member. Wallet addresses are optional since institutions
// may sign in without one.
type User struct {
	ID            string `gorm:"primaryKey;size:64" json:"id"`
	Handle        string `gorm:"uniqueIndex;size:64;not null" json:"handle"`
	DisplayName   string `json:"display_name"`
	WalletAddress string `gorm:"size:64;index" json:"wallet_address,omitempty"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
