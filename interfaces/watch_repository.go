package interfaces

import (
	"context"

	"github.com/taskilo/mailsync/internal/models"
)

type WatchRepository interface {
	// GetWatch returns nil, nil when no subscription exists for the mailbox.
	GetWatch(ctx context.Context, userEmail string) (*models.WatchSubscription, error)
	// SaveWatch creates or overwrites the subscription for the mailbox.
	SaveWatch(ctx context.Context, watch *models.WatchSubscription) error
	ListEnabled(ctx context.Context) ([]*models.WatchSubscription, error)
}
