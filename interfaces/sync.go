package interfaces

import (
	"context"

	"github.com/taskilo/mailsync/internal/models"
)

type SyncService interface {
	// Sync runs one synchronization pass for the mailbox and returns the
	// newly normalized emails. Individual message failures are skipped; a
	// pass in which both the incremental and fallback paths fail returns an
	// empty slice, not an error. An error is returned only for unrecoverable
	// conditions such as missing credentials.
	Sync(ctx context.Context, userEmail string) ([]*models.Email, error)
	// ForceSync ignores the cursor and re-reads the most recent messages,
	// capped for cost. The cursor is not advanced.
	ForceSync(ctx context.Context, userEmail string) ([]*models.Email, error)
}

type WatchService interface {
	// Register creates or overwrites the push-notification subscription.
	Register(ctx context.Context, userEmail string) error
	// RenewIfNeeded re-registers when the subscription expires within the
	// renewal window, otherwise does nothing.
	RenewIfNeeded(ctx context.Context, userEmail string) error
	// RenewAll runs RenewIfNeeded for every enabled subscription.
	RenewAll(ctx context.Context) error
}
