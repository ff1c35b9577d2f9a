package interfaces

import (
	"context"

	"github.com/taskilo/mailsync/internal/models"
)

type SyncStateRepository interface {
	// GetSyncState returns nil, nil when the mailbox has never synced.
	GetSyncState(ctx context.Context, userEmail string) (*models.SyncState, error)
	// AdvanceCursor moves the history cursor forward. A historyID at or below
	// the stored one is ignored; the cursor never regresses.
	AdvanceCursor(ctx context.Context, userEmail string, historyID uint64, syncedCount int) error
	// RecordSyncPass updates the sync statistics without touching the cursor.
	RecordSyncPass(ctx context.Context, userEmail string, syncedCount int) error
}
