package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/taskilo/mailsync/internal/utils"
)

// EmailAttachment is attachment metadata only. Content lives with the
// provider and is fetched on demand, never during sync.
type EmailAttachment struct {
	ID      string `gorm:"column:id;type:varchar(50);primaryKey"`
	EmailID string `gorm:"column:email_id;type:varchar(255);index;not null"`

	GmailAttachmentID string `gorm:"column:gmail_attachment_id;type:text;not null"`
	Filename          string `gorm:"column:filename;type:varchar(1000)"`
	MimeType          string `gorm:"column:mime_type;type:varchar(255)"`
	// Size is 0 when the provider does not report one.
	Size int64 `gorm:"column:size;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (a *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("atch", 24)
	}
	a.CreatedAt = utils.Now()
	return nil
}
