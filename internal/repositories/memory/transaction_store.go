package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"premia/internal/models/db_models"
	"premia/internal/repositories"
)

type TransactionStore struct {
	mu     sync.RWMutex
	txns   map[uuid.UUID]db_models.Transaction
	byCode map[string]uuid.UUID
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		txns:   make(map[uuid.UUID]db_models.Transaction),
		byCode: make(map[string]uuid.UUID),
	}
}

var _ repositories.ITransactionRepository = (*TransactionStore)(nil)

func (s *TransactionStore) GetTransactionByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[id]
	if !ok {
		return nil, nil
	}
	return &txn, nil
}

func (s *TransactionStore) GetTransactionByCode(ctx context.Context, code string) (*db_models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	txn := s.txns[id]
	return &txn, nil
}

func (s *TransactionStore) ListBySubscription(ctx context.Context, subID uuid.UUID) ([]db_models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Transaction
	for _, txn := range s.txns {
		if txn.SubscriptionID == subID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *TransactionStore) GetOpenRenewal(ctx context.Context, subID uuid.UUID) (*db_models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, txn := range s.txns {
		if txn.SubscriptionID == subID && txn.Type == db_models.TxnTypeRenewal &&
			(txn.Status == db_models.TxnStatusPending || txn.Status == db_models.TxnStatusProcessing) {
			out := txn
			return &out, nil
		}
	}
	return nil, nil
}

func (s *TransactionStore) CreateTransaction(ctx context.Context, txn *db_models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&txn.BaseModel)
	s.txns[txn.ID] = *txn
	s.byCode[txn.Code] = txn.ID
	return nil
}

func (s *TransactionStore) UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.TransactionStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range prior {
		if txn.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	applyTransactionFields(&txn, fields)
	stamp(&txn.BaseModel)
	s.txns[id] = txn
	return true, nil
}

func (s *TransactionStore) ListPendingExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Transaction
	for _, txn := range s.txns {
		if txn.Status == db_models.TxnStatusPending && txn.ExpiresAt < cutoff {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *TransactionStore) DeleteSettledBefore(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, txn := range s.txns {
		if (txn.Status == db_models.TxnStatusCompleted || txn.Status == db_models.TxnStatusFailed) &&
			txn.CreatedAt < cutoff {
			delete(s.byCode, txn.Code)
			delete(s.txns, id)
			removed++
		}
	}
	return removed, nil
}

func applyTransactionFields(txn *db_models.Transaction, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			txn.Status = v.(db_models.TransactionStatus)
		case "gateway_txn_id":
			txn.GatewayTxnID = toStringPtr(v)
		case "gateway_response":
			if raw, ok := v.(datatypes.JSON); ok {
				txn.GatewayResponse = raw
			} else if raw, ok := v.([]byte); ok {
				txn.GatewayResponse = raw
			}
		case "expires_at":
			txn.ExpiresAt = v.(int64)
		case "paid_at":
			txn.PaidAt = toInt64Ptr(v)
		case "failure_reason":
			txn.FailureReason = toStringPtr(v)
		case "retry_count":
			txn.RetryCount = v.(int)
		}
	}
}
