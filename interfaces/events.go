package interfaces

import (
	"context"

	"github.com/taskilo/mailsync/dto"
)

type EventPublisher interface {
	PublishEmailsSynced(ctx context.Context, event dto.EmailsSynced) error
	Close() error
}
