package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"premia/internal/models/db_models"
	"premia/internal/repositories"
)

type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]db_models.Subscription
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subs: make(map[uuid.UUID]db_models.Subscription)}
}

var _ repositories.ISubscriptionRepository = (*SubscriptionStore)(nil)

func (s *SubscriptionStore) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *SubscriptionStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Status == db_models.SubStatusActive {
			out := sub
			return &out, nil
		}
	}
	return nil, nil
}

func (s *SubscriptionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SubscriptionStore) CreateSubscription(ctx context.Context, sub *db_models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&sub.BaseModel)
	s.subs[sub.ID] = *sub
	return nil
}

func (s *SubscriptionStore) UpdateIfStatus(ctx context.Context, id uuid.UUID, prior []db_models.SubscriptionStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range prior {
		if sub.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	applySubscriptionFields(&sub, fields)
	stamp(&sub.BaseModel)
	s.subs[id] = sub
	return true, nil
}

func (s *SubscriptionStore) ListActiveExpiredBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Subscription
	for _, sub := range s.subs {
		if sub.Status == db_models.SubStatusActive && sub.EndsAt > 0 && sub.EndsAt < cutoff {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SubscriptionStore) ListActiveExpiringWithin(ctx context.Context, now, until int64) ([]db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Subscription
	for _, sub := range s.subs {
		if sub.Status == db_models.SubStatusActive && sub.EndsAt >= now && sub.EndsAt <= until {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SubscriptionStore) ListAutoRenewDueBefore(ctx context.Context, cutoff int64) ([]db_models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db_models.Subscription
	for _, sub := range s.subs {
		if sub.Status == db_models.SubStatusActive && sub.AutoRenew && sub.EndsAt <= cutoff {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SubscriptionStore) DeleteCancelledBefore(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, sub := range s.subs {
		if sub.Status == db_models.SubStatusCancelled && sub.CancelledAt != nil && *sub.CancelledAt < cutoff {
			delete(s.subs, id)
			removed++
		}
	}
	return removed, nil
}

func applySubscriptionFields(sub *db_models.Subscription, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			sub.Status = v.(db_models.SubscriptionStatus)
		case "starts_at":
			sub.StartsAt = v.(int64)
		case "ends_at":
			sub.EndsAt = v.(int64)
		case "auto_renew":
			sub.AutoRenew = v.(bool)
		case "next_payment_at":
			sub.NextPaymentAt = toInt64Ptr(v)
		case "paid_amount_minor":
			sub.PaidAmountMinor = v.(int64)
		case "payment_method":
			sub.PaymentMethod = v.(string)
		case "last_transaction_code":
			sub.LastTransactionCode = toStringPtr(v)
		case "failed_payment_attempts":
			sub.FailedPaymentAttempts = v.(int)
		case "cancelled_at":
			sub.CancelledAt = toInt64Ptr(v)
		case "cancel_reason":
			sub.CancelReason = toStringPtr(v)
		}
	}
}

func toInt64Ptr(v interface{}) *int64 {
	switch t := v.(type) {
	case *int64:
		return t
	case int64:
		return &t
	case nil:
		return nil
	}
	return nil
}

func toStringPtr(v interface{}) *string {
	switch t := v.(type) {
	case *string:
		return t
	case string:
		return &t
	case nil:
		return nil
	}
	return nil
}
