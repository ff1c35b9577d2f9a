package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) GetSyncState(ctx context.Context, userEmail string) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	var state models.SyncState
	result := r.db.WithContext(ctx).
		Where("user_email = ?", userEmail).
		First(&state)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get sync state")
	}

	return &state, nil
}

func (r *syncStateRepository) AdvanceCursor(ctx context.Context, userEmail string, historyID uint64, syncedCount int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.AdvanceCursor")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)
	span.SetTag(tracing.SpanTagHistoryId, historyID)

	now := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("user_email = ? AND last_history_id < ?", userEmail, historyID).
		Updates(map[string]interface{}{
			"last_history_id": historyID,
			"last_sync_at":    now,
			"last_sync_count": syncedCount,
			"total_synced":    gorm.Expr("total_synced + ?", syncedCount),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to advance sync cursor")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Either the row does not exist yet or the cursor is already ahead.
	var existing int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("user_email = ?", userEmail).
		Count(&existing).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to check sync state")
	}
	if existing > 0 {
		return nil
	}

	state := models.SyncState{
		UserEmail:     userEmail,
		LastHistoryID: historyID,
		LastSyncAt:    &now,
		LastSyncCount: syncedCount,
		TotalSynced:   int64(syncedCount),
	}
	if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to create sync state")
	}
	return nil
}

func (r *syncStateRepository) RecordSyncPass(ctx context.Context, userEmail string, syncedCount int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.RecordSyncPass")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMailbox(span, userEmail)

	now := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("user_email = ?", userEmail).
		Updates(map[string]interface{}{
			"last_sync_at":    now,
			"last_sync_count": syncedCount,
			"total_synced":    gorm.Expr("total_synced + ?", syncedCount),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to record sync pass")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	state := models.SyncState{
		UserEmail:     userEmail,
		LastSyncAt:    &now,
		LastSyncCount: syncedCount,
		TotalSynced:   int64(syncedCount),
	}
	if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to create sync state")
	}
	return nil
}
