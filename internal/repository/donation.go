package repository

import (
	"context"
	"time"

	"nfpickle-donations/internal/model"

	"gorm.io/gorm"
)

type DonationRepository interface {
	Create(ctx context.Context, donation *model.Donation) error
	FindByID(ctx context.Context, id string) (*model.Donation, error)
	ListNewestFirst(ctx context.Context) ([]*model.Donation, error)
	ListStalePending(ctx context.Context, before time.Time) ([]*model.Donation, error)
	DeleteByID(ctx context.Context, id string) error

	// UpdateByPaymentIntentID and UpdateBySubscriptionID set the given
	// fields on every record matching the correlation id and report how
	// many matched. Zero matches is not an error; webhook events can
	// reference test objects or already-deleted donations.
	UpdateByPaymentIntentID(ctx context.Context, paymentIntentID string, fields map[string]interface{}) (int64, error)
	UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]interface{}) (int64, error)
}

type donationRepoImpl struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepoImpl{
		db: db,
	}
}

func (r *donationRepoImpl) Create(ctx context.Context, donation *model.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *donationRepoImpl) FindByID(ctx context.Context, id string) (*model.Donation, error) {
	var donation model.Donation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&donation).Error

	if err != nil {
		return nil, err
	}

	return &donation, nil
}

func (r *donationRepoImpl) ListNewestFirst(ctx context.Context) ([]*model.Donation, error) {
	var donations []*model.Donation
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&donations).Error

	if err != nil {
		return nil, err
	}

	return donations, nil
}

func (r *donationRepoImpl) ListStalePending(ctx context.Context, before time.Time) ([]*model.Donation, error) {
	var donations []*model.Donation
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusPending).
		Where("created_at < ?", before).
		Find(&donations).Error

	if err != nil {
		return nil, err
	}

	return donations, nil
}

func (r *donationRepoImpl) DeleteByID(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Donation{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *donationRepoImpl) UpdateByPaymentIntentID(ctx context.Context, paymentIntentID string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Updates(fields)

	return result.RowsAffected, result.Error
}

func (r *donationRepoImpl) UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(fields)

	return result.RowsAffected, result.Error
}
