package models

import (
	"time"

	"gorm.io/gorm"
)

// GmailCredential is the persisted OAuth token pair for one mailbox.
type GmailCredential struct {
	UserEmail    string `gorm:"column:user_email;type:varchar(255);primaryKey"`
	AccessToken  string `gorm:"column:access_token;type:text;not null"`
	RefreshToken string `gorm:"column:refresh_token;type:text;not null"`

	// TokenExpiry is a hint from the identity provider; an expired hint does
	// not mean the token is invalid, only that a refresh is likely.
	TokenExpiry      *time.Time `gorm:"column:token_expiry;type:timestamp"`
	LastTokenRefresh *time.Time `gorm:"column:last_token_refresh;type:timestamp"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (GmailCredential) TableName() string {
	return "gmail_credentials"
}
