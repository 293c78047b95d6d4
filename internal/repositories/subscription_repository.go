package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"premia/internal/models/db_models"
)

type ISubscriptionRepository interface {
	GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*db_models.Subscription, error)
	// GetActiveByUser returns (nil, nil) when the user has no active subscription.
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *db_models.Subscription) error

	// UpdateIfStatus applies fields only when the row is still in one of the
	// given prior statuses. Returns false (no error) when the state has moved
	// on, so sweeps and late callbacks degrade to no-ops.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.SubscriptionStatus, fields map[string]interface{}) (bool, error)

	ListActiveExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error)
	ListActiveExpiringWithin(ctx context.Context, now, until int64) ([]db_models.Subscription, error)
	ListAutoRenewDueBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error)
	DeleteCancelledBefore(ctx context.Context, cutoff int64) (int64, error)
}

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) ISubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, db_models.SubStatusActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.Subscription, error) {
	var subs []db_models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *db_models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.SubscriptionStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.Subscription{}).
		Where("id = ? AND status IN ?", id, prior).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) ListActiveExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error) {
	var subs []db_models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at > 0 AND ends_at < ?", db_models.SubStatusActive, cutoff).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) ListActiveExpiringWithin(ctx context.Context, now, until int64) ([]db_models.Subscription, error) {
	var subs []db_models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at >= ? AND ends_at <= ?", db_models.SubStatusActive, now, until).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) ListAutoRenewDueBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error) {
	var subs []db_models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND auto_renew = TRUE AND ends_at <= ?", db_models.SubStatusActive, cutoff).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) DeleteCancelledBefore(ctx context.Context, cutoff int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("status = ? AND cancelled_at IS NOT NULL AND cancelled_at < ?", db_models.SubStatusCancelled, cutoff).
		Delete(&db_models.Subscription{})
	return res.RowsAffected, res.Error
}
