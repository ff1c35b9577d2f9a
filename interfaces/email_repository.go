package interfaces

import (
	"context"

	"github.com/taskilo/mailsync/internal/models"
)

type EmailRepository interface {
	// AppendEmails inserts new rows and leaves existing ones untouched, so a
	// message synced twice keeps its original internal date.
	AppendEmails(ctx context.Context, userEmail string, emails []*models.Email) (int, error)
	GetByID(ctx context.Context, id string) (*models.Email, error)
	CountByMailbox(ctx context.Context, userEmail string) (int64, error)
}
