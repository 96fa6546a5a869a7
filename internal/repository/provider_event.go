package repository

import (
	"context"
	"time"

	"nfpickle-donations/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProviderEventRepository interface {
	// Record inserts the event once. It reports seen=true when the event
	// id was already logged, and whether that earlier delivery was fully
	// processed.
	Record(ctx context.Context, event *model.ProviderEvent) (seen bool, processed bool, err error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, message string) error
}

type providerEventRepoImpl struct {
	db *gorm.DB
}

func NewProviderEventRepository(db *gorm.DB) ProviderEventRepository {
	return &providerEventRepoImpl{
		db: db,
	}
}

func (r *providerEventRepoImpl) Record(ctx context.Context, event *model.ProviderEvent) (bool, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		return false, false, result.Error
	}
	if result.RowsAffected > 0 {
		return false, false, nil
	}

	var existing model.ProviderEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", event.EventID).
		First(&existing).Error
	if err != nil {
		return true, false, err
	}

	return true, existing.ProcessedAt != nil, nil
}

func (r *providerEventRepoImpl) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.ProviderEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed_at":  &now,
			"process_error": nil,
		}).Error
}

func (r *providerEventRepoImpl) MarkFailed(ctx context.Context, eventID, message string) error {
	if len(message) > 250 {
		message = message[:250]
	}
	return r.db.WithContext(ctx).
		Model(&model.ProviderEvent{}).
		Where("event_id = ?", eventID).
		Update("process_error", message).Error
}
