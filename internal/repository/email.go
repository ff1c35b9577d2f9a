package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{db: db}
}

// AppendEmails inserts the given emails, skipping ids that already exist.
// Existing rows are never updated here: the internal date written on first
// insert is the mailbox's ordering key and must survive re-syncs unchanged.
func (r *emailRepository) AppendEmails(ctx context.Context, userEmail string, emails []*models.Email) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.AppendEmails")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)
	span.SetTag("email.count", len(emails))

	if len(emails) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, email := range emails {
		result := r.db.WithContext(ctx).
			Omit("Attachments").
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(email)
		if result.Error != nil {
			tracing.TraceErr(span, result.Error)
			return inserted, errors.Wrap(result.Error, "failed to append email")
		}
		if result.RowsAffected == 0 {
			// Known message, first write wins. Attachments are only stored
			// alongside a fresh insert so re-syncs cannot duplicate them.
			continue
		}
		inserted++

		if len(email.Attachments) > 0 {
			for i := range email.Attachments {
				email.Attachments[i].EmailID = email.ID
			}
			if err := r.db.WithContext(ctx).Create(&email.Attachments).Error; err != nil {
				tracing.TraceErr(span, err)
				return inserted, errors.Wrap(err, "failed to append email attachments")
			}
		}
	}

	span.SetTag("email.inserted", inserted)
	return inserted, nil
}

func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	result := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&email)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, mailsync_errors.ErrMessageNotFound
		}
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get email")
	}

	return &email, nil
}

func (r *emailRepository) CountByMailbox(ctx context.Context, userEmail string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.CountByMailbox")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("user_email = ?", userEmail).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(err, "failed to count emails")
	}

	return count, nil
}
