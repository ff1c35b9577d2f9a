package interfaces

import (
	"context"
	"time"

	"github.com/taskilo/mailsync/internal/models"
)

type CredentialRepository interface {
	GetCredential(ctx context.Context, userEmail string) (*models.GmailCredential, error)
	SaveCredential(ctx context.Context, credential *models.GmailCredential) error
	// SaveTokens persists a refreshed token pair. An empty refreshToken means
	// the provider did not rotate it and the stored one must be kept.
	SaveTokens(ctx context.Context, userEmail, accessToken, refreshToken string, refreshedAt time.Time) error
	ListUserEmails(ctx context.Context) ([]string, error)
}
