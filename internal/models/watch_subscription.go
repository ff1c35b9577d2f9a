package models

import (
	"time"
)

// WatchSubscription tracks the Gmail push-notification registration for one
// mailbox. Re-registering overwrites the row rather than adding a new one.
type WatchSubscription struct {
	UserEmail string `gorm:"column:user_email;type:varchar(255);primaryKey"`
	Topic     string `gorm:"column:topic;type:varchar(500);not null"`

	HistoryID  uint64    `gorm:"column:history_id;not null;default:0"`
	Expiration time.Time `gorm:"column:expiration;type:timestamp;not null"`
	Enabled    bool      `gorm:"column:enabled;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (WatchSubscription) TableName() string {
	return "gmail_watch_subscriptions"
}

// ExpiresWithin reports whether the subscription expires before now + window.
func (w *WatchSubscription) ExpiresWithin(now time.Time, window time.Duration) bool {
	return w.Expiration.Sub(now) < window
}
