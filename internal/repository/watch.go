package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
)

type watchRepository struct {
	db *gorm.DB
}

func NewWatchRepository(db *gorm.DB) interfaces.WatchRepository {
	return &watchRepository{db: db}
}

func (r *watchRepository) GetWatch(ctx context.Context, userEmail string) (*models.WatchSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "watchRepository.GetWatch")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	var watch models.WatchSubscription
	result := r.db.WithContext(ctx).
		Where("user_email = ?", userEmail).
		First(&watch)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get watch subscription")
	}

	return &watch, nil
}

func (r *watchRepository) SaveWatch(ctx context.Context, watch *models.WatchSubscription) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "watchRepository.SaveWatch")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, watch.UserEmail)

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}},
			UpdateAll: true,
		}).
		Create(watch).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to save watch subscription")
	}

	return nil
}

func (r *watchRepository) ListEnabled(ctx context.Context) ([]*models.WatchSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "watchRepository.ListEnabled")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var watches []*models.WatchSubscription
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&watches).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list watch subscriptions")
	}

	return watches, nil
}
