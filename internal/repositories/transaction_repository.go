package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"premia/internal/models/db_models"
)

type ITransactionRepository interface {
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error)
	// GetTransactionByCode returns (nil, nil) when no row matches; gateway
	// callbacks key on the code, not the id.
	GetTransactionByCode(ctx context.Context, code string) (*db_models.Transaction, error)
	ListBySubscription(ctx context.Context, subID uuid.UUID) ([]db_models.Transaction, error)
	// GetOpenRenewal finds a non-terminal renewal transaction for a
	// subscription, so the renewal job never double-charges.
	GetOpenRenewal(ctx context.Context, subID uuid.UUID) (*db_models.Transaction, error)
	CreateTransaction(ctx context.Context, txn *db_models.Transaction) error

	// UpdateIfStatus applies fields only while the row is still in one of the
	// prior statuses; false means the state machine already moved on.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.TransactionStatus, fields map[string]interface{}) (bool, error)

	ListPendingExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Transaction, error)
	DeleteSettledBefore(ctx context.Context, cutoff int64) (int64, error)
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) ITransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) GetTransactionByCode(ctx context.Context, code string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).First(&txn, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) ListBySubscription(ctx context.Context, subID uuid.UUID) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *TransactionRepository) GetOpenRenewal(ctx context.Context, subID uuid.UUID) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND type = ? AND status IN ?",
			subID,
			db_models.TxnTypeRenewal,
			[]db_models.TransactionStatus{db_models.TxnStatusPending, db_models.TxnStatusProcessing}).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, txn *db_models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *TransactionRepository) UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.TransactionStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("id = ? AND status IN ?", id, prior).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) ListPendingExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", db_models.TxnStatusPending, cutoff).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *TransactionRepository) DeleteSettledBefore(ctx context.Context, cutoff int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("status IN ? AND created_at < ?",
			[]db_models.TransactionStatus{db_models.TxnStatusCompleted, db_models.TxnStatusFailed},
			cutoff).
		Delete(&db_models.Transaction{})
	return res.RowsAffected, res.Error
}
