package dto

import (
	"time"

	"github.com/taskilo/mailsync/internal/enum"
)

// EmailsSynced is published after a sync pass persisted at least one email.
type EmailsSynced struct {
	UserEmail string           `json:"userEmail"`
	Trigger   enum.SyncTrigger `json:"trigger"`
	Count     int              `json:"count"`
	EmailIDs  []string         `json:"emailIds"`
	SyncedAt  time.Time        `json:"syncedAt"`
}
