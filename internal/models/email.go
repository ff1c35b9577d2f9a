package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/taskilo/mailsync/internal/enum"
	"github.com/taskilo/mailsync/internal/utils"
)

// Email is a normalized Gmail message as the sync engine writes it.
type Email struct {
	// ID is userEmail + "_" + GmailID, so re-syncing the same message always
	// targets the same row.
	ID        string `gorm:"column:id;type:varchar(255);primaryKey"`
	UserEmail string `gorm:"column:user_email;type:varchar(255);index;not null"`
	GmailID   string `gorm:"column:gmail_id;type:varchar(100);index;not null"`
	ThreadID  string `gorm:"column:thread_id;type:varchar(100);index"`

	// Core metadata
	From         string         `gorm:"column:from_address;type:varchar(1000)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`

	// Content
	BodyText string `gorm:"column:body_text;type:text"`
	BodyHTML string `gorm:"column:body_html;type:text"`

	// InternalDate is Gmail's immutable message timestamp in epoch
	// milliseconds. It is the sole ordering key for a mailbox and is written
	// exactly once; later syncs of the same message must not touch it.
	InternalDate int64      `gorm:"column:internal_date;index;not null"`
	ReceivedAt   *time.Time `gorm:"column:received_at;type:timestamp;index"`

	// Flags and labels
	Read     bool               `gorm:"column:read;default:false"`
	Starred  bool               `gorm:"column:starred;default:false"`
	Labels   pq.StringArray     `gorm:"column:labels;type:text[]"`
	Priority enum.EmailPriority `gorm:"column:priority;type:varchar(10);index"`

	Attachments []EmailAttachment `gorm:"foreignKey:EmailID"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.EmailRecordID(e.UserEmail, e.GmailID)
	}
	e.CreatedAt = utils.Now()
	return nil
}
