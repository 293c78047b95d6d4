package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"premia/internal/gateway"
	"premia/internal/models/db_models"
	"premia/internal/repositories"
	"premia/pkg/utils"
)

// PendingExpiry is how long a pending transaction may wait for settlement
// before the stale-pending sweep fails it.
const PendingExpiry = 15 * time.Minute

// DefaultPaymentMethods are the methods accepted when none are configured.
var DefaultPaymentMethods = []string{"card", "bank_transfer", "wallet"}

type CreateTransactionParams struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	PlanID         uuid.UUID
	AmountMinor    int64
	Currency       string
	PaymentMethod  string
	Type           db_models.TransactionType
	Description    string
}

type TransactionServiceInterface interface {
	Create(ctx context.Context, params CreateTransactionParams) (*db_models.Transaction, error)

	// Initiate moves pending -> processing before the settlement request goes
	// out to the gateway.
	Initiate(ctx context.Context, code string, gatewayTxnID *string) error

	// ApplySettlement normalizes the gateway outcome and applies it to the
	// transaction. The returned flag tells callers whether this call changed
	// state; replays of an already-settled outcome return (txn, false, nil).
	ApplySettlement(ctx context.Context, settlement gateway.Settlement) (*db_models.Transaction, bool, error)

	// AttachGatewayRef stores the gateway-assigned id once the ack arrives.
	AttachGatewayRef(ctx context.Context, code string, gatewayTxnID string) error

	// MarkExpired fails a pending transaction past its expiry window.
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)

	// Retry re-opens a failed transaction, bounded by MaxTransactionRetries.
	Retry(ctx context.Context, code string) (*db_models.Transaction, error)

	GetByCode(ctx context.Context, code string) (*db_models.Transaction, error)
	GetOpenRenewal(ctx context.Context, subID uuid.UUID) (*db_models.Transaction, error)
	ListBySubscription(ctx context.Context, subID uuid.UUID) ([]db_models.Transaction, error)
}

type TransactionService struct {
	txnRepo        repositories.ITransactionRepository
	enabledMethods map[string]bool
	now            func() time.Time
}

func NewTransactionService(txnRepo repositories.ITransactionRepository, enabledMethods []string) TransactionServiceInterface {
	return newTransactionService(txnRepo, enabledMethods, time.Now)
}

func NewTransactionServiceWithClock(txnRepo repositories.ITransactionRepository, enabledMethods []string, now func() time.Time) TransactionServiceInterface {
	return newTransactionService(txnRepo, enabledMethods, now)
}

func newTransactionService(txnRepo repositories.ITransactionRepository, enabledMethods []string, now func() time.Time) *TransactionService {
	if len(enabledMethods) == 0 {
		enabledMethods = DefaultPaymentMethods
	}
	methods := make(map[string]bool, len(enabledMethods))
	for _, m := range enabledMethods {
		methods[m] = true
	}
	return &TransactionService{
		txnRepo:        txnRepo,
		enabledMethods: methods,
		now:            now,
	}
}

func (t *TransactionService) Create(ctx context.Context, params CreateTransactionParams) (*db_models.Transaction, error) {
	txn := &db_models.Transaction{
		Code:           utils.NewTransactionCode(),
		UserID:         params.UserID,
		SubscriptionID: params.SubscriptionID,
		PlanID:         params.PlanID,
		AmountMinor:    params.AmountMinor,
		Currency:       params.Currency,
		Status:         db_models.TxnStatusPending,
		Type:           params.Type,
		PaymentMethod:  params.PaymentMethod,
		Description:    params.Description,
		ExpiresAt:      t.now().Add(PendingExpiry).Unix(),
	}
	if err := t.txnRepo.CreateTransaction(ctx, txn); err != nil {
		return nil, utils.ErrDatabaseError
	}
	return txn, nil
}

func (t *TransactionService) Initiate(ctx context.Context, code string, gatewayTxnID *string) error {
	txn, err := t.txnRepo.GetTransactionByCode(ctx, code)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if txn == nil {
		return utils.ErrTransactionNotFound
	}
	if !t.enabledMethods[txn.PaymentMethod] {
		return utils.ErrUnsupportedMethod
	}

	fields := map[string]interface{}{"status": db_models.TxnStatusProcessing}
	if gatewayTxnID != nil {
		fields["gateway_txn_id"] = gatewayTxnID
	}
	ok, err := t.txnRepo.UpdateIfStatus(ctx, txn.ID,
		[]db_models.TransactionStatus{db_models.TxnStatusPending}, fields)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if !ok {
		return utils.ErrInvalidState
	}
	return nil
}

func (t *TransactionService) ApplySettlement(ctx context.Context, settlement gateway.Settlement) (*db_models.Transaction, bool, error) {
	txn, err := t.txnRepo.GetTransactionByCode(ctx, settlement.TransactionCode)
	if err != nil {
		return nil, false, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, false, utils.ErrTransactionNotFound
	}

	status := gateway.NormalizeStatus(settlement.Status)
	if status == db_models.TxnStatusProcessing {
		// Still in flight on the gateway side, nothing to record yet.
		return txn, false, nil
	}
	if txn.Status == status {
		// Replayed callback; settling twice must stay a no-op.
		return txn, false, nil
	}

	fields := map[string]interface{}{"status": status}
	if settlement.GatewayTxnID != "" {
		fields["gateway_txn_id"] = settlement.GatewayTxnID
	}
	if raw, err := json.Marshal(settlement.RawPayload); err == nil && settlement.RawPayload != nil {
		fields["gateway_response"] = raw
	}

	switch status {
	case db_models.TxnStatusCompleted:
		fields["paid_at"] = t.now().Unix()
	case db_models.TxnStatusFailed:
		reason := settlement.FailureReason
		if reason == "" {
			reason = "rejected by gateway (status " + settlement.Status + ")"
		}
		fields["failure_reason"] = reason
	}

	ok, err := t.txnRepo.UpdateIfStatus(ctx, txn.ID,
		[]db_models.TransactionStatus{db_models.TxnStatusProcessing}, fields)
	if err != nil {
		return nil, false, utils.ErrDatabaseError
	}
	if !ok {
		// State moved on (expired, retried, settled elsewhere). Log and keep
		// the current row authoritative.
		log.Printf("settlement for %s ignored, transaction no longer processing", txn.Code)
		current, gerr := t.txnRepo.GetTransactionByCode(ctx, settlement.TransactionCode)
		if gerr != nil || current == nil {
			return txn, false, nil
		}
		return current, false, nil
	}

	updated, err := t.txnRepo.GetTransactionByCode(ctx, settlement.TransactionCode)
	if err != nil || updated == nil {
		return txn, true, nil
	}
	return updated, true, nil
}

func (t *TransactionService) AttachGatewayRef(ctx context.Context, code string, gatewayTxnID string) error {
	txn, err := t.txnRepo.GetTransactionByCode(ctx, code)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if txn == nil {
		return utils.ErrTransactionNotFound
	}
	_, err = t.txnRepo.UpdateIfStatus(ctx, txn.ID,
		[]db_models.TransactionStatus{db_models.TxnStatusProcessing},
		map[string]interface{}{"gateway_txn_id": gatewayTxnID})
	if err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (t *TransactionService) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := t.txnRepo.UpdateIfStatus(ctx, id,
		[]db_models.TransactionStatus{db_models.TxnStatusPending},
		map[string]interface{}{
			"status":         db_models.TxnStatusFailed,
			"failure_reason": "expired",
		})
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	return ok, nil
}

func (t *TransactionService) Retry(ctx context.Context, code string) (*db_models.Transaction, error) {
	txn, err := t.txnRepo.GetTransactionByCode(ctx, code)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.Status == db_models.TxnStatusCompleted {
		return nil, utils.ErrInvalidState
	}
	if txn.Status != db_models.TxnStatusFailed {
		return nil, utils.ErrInvalidState
	}
	if txn.RetryCount >= db_models.MaxTransactionRetries {
		return nil, utils.ErrMaxRetriesExceeded
	}

	ok, err := t.txnRepo.UpdateIfStatus(ctx, txn.ID,
		[]db_models.TransactionStatus{db_models.TxnStatusFailed},
		map[string]interface{}{
			"status":         db_models.TxnStatusPending,
			"retry_count":    txn.RetryCount + 1,
			"failure_reason": nil,
			"expires_at":     t.now().Add(PendingExpiry).Unix(),
		})
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		return nil, utils.ErrInvalidState
	}

	return t.txnRepo.GetTransactionByCode(ctx, code)
}

func (t *TransactionService) GetByCode(ctx context.Context, code string) (*db_models.Transaction, error) {
	txn, err := t.txnRepo.GetTransactionByCode(ctx, code)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	return txn, nil
}

func (t *TransactionService) GetOpenRenewal(ctx context.Context, subID uuid.UUID) (*db_models.Transaction, error) {
	txn, err := t.txnRepo.GetOpenRenewal(ctx, subID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return txn, nil
}

func (t *TransactionService) ListBySubscription(ctx context.Context, subID uuid.UUID) ([]db_models.Transaction, error) {
	txns, err := t.txnRepo.ListBySubscription(ctx, subID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return txns, nil
}
