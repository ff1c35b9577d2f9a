package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) interfaces.CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetCredential(ctx context.Context, userEmail string) (*models.GmailCredential, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.GetCredential")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	var credential models.GmailCredential
	result := r.db.WithContext(ctx).
		Where("user_email = ?", userEmail).
		First(&credential)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, mailsync_errors.ErrCredentialsNotFound
		}
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get credential")
	}

	return &credential, nil
}

func (r *credentialRepository) SaveCredential(ctx context.Context, credential *models.GmailCredential) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.SaveCredential")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, credential.UserEmail)

	credential.UpdatedAt = utils.Now()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}},
			UpdateAll: true,
		}).
		Create(credential)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to save credential")
	}

	return nil
}

func (r *credentialRepository) SaveTokens(ctx context.Context, userEmail, accessToken, refreshToken string, refreshedAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.SaveTokens")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	updates := map[string]interface{}{
		"access_token":       accessToken,
		"last_token_refresh": refreshedAt,
		"updated_at":         utils.Now(),
	}
	// The refresh token is replaced only when the identity provider rotated
	// it; it is never blanked out.
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}

	result := r.db.WithContext(ctx).
		Model(&models.GmailCredential{}).
		Where("user_email = ?", userEmail).
		Updates(updates)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to save tokens")
	}
	if result.RowsAffected == 0 {
		return mailsync_errors.ErrCredentialsNotFound
	}

	return nil
}

func (r *credentialRepository) ListUserEmails(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "credentialRepository.ListUserEmails")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var userEmails []string
	if err := r.db.WithContext(ctx).
		Model(&models.GmailCredential{}).
		Pluck("user_email", &userEmails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list mailboxes")
	}

	return userEmails, nil
}
