package models

import (
	"time"
)

// SyncState is the incremental cursor for one mailbox.
type SyncState struct {
	UserEmail string `gorm:"column:user_email;type:varchar(255);primaryKey"`

	// LastHistoryID only ever moves forward. The fallback path reads without
	// touching it.
	LastHistoryID uint64 `gorm:"column:last_history_id;not null;default:0"`

	LastSyncAt    *time.Time `gorm:"column:last_sync_at;type:timestamp"`
	LastSyncCount int        `gorm:"column:last_sync_count;default:0"`
	TotalSynced   int64      `gorm:"column:total_synced;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SyncState) TableName() string {
	return "gmail_sync_states"
}
