package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"premia/internal/models/db_models"
	"premia/internal/repositories"
	"premia/pkg/utils"
)

// lifetimeYears is how far out a lifetime subscription's end date is pushed.
const lifetimeYears = 100

type SubscriptionServiceInterface interface {
	// CreatePending opens the subscription in pending; at most one active
	// subscription may exist per user.
	CreatePending(ctx context.Context, userID, planID uuid.UUID, paymentMethod string, autoRenew bool) (*db_models.Subscription, error)

	// Activate moves pending -> active once the linked transaction completed.
	// Returns false without error when the subscription already left pending
	// (e.g. cancelled while the gateway was still resolving).
	Activate(ctx context.Context, subID uuid.UUID, txn *db_models.Transaction) (bool, error)

	// Expire moves active -> expired; a no-op on anything else.
	Expire(ctx context.Context, subID uuid.UUID) (bool, error)

	Cancel(ctx context.Context, subID uuid.UUID, reason string) (*db_models.Subscription, error)

	// ApplyRenewal extends an active subscription after a completed renewal
	// transaction and resets the failure counter.
	ApplyRenewal(ctx context.Context, subID uuid.UUID, txn *db_models.Transaction) (bool, error)

	// RecordRenewalFailure bumps the consecutive failure counter; the third
	// failure force-disables auto-renewal. The subscription stays active
	// until it naturally expires.
	RecordRenewalFailure(ctx context.Context, subID uuid.UUID) error

	GetByID(ctx context.Context, subID uuid.UUID) (*db_models.Subscription, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.Subscription, error)
}

type SubscriptionService struct {
	subRepo  repositories.ISubscriptionRepository
	planRepo repositories.IPlanRepository
	now      func() time.Time
}

func NewSubscriptionService(subRepo repositories.ISubscriptionRepository, planRepo repositories.IPlanRepository) SubscriptionServiceInterface {
	return &SubscriptionService{
		subRepo:  subRepo,
		planRepo: planRepo,
		now:      time.Now,
	}
}

// NewSubscriptionServiceWithClock injects the clock for tests.
func NewSubscriptionServiceWithClock(subRepo repositories.ISubscriptionRepository, planRepo repositories.IPlanRepository, now func() time.Time) SubscriptionServiceInterface {
	return &SubscriptionService{subRepo: subRepo, planRepo: planRepo, now: now}
}

func (s *SubscriptionService) CreatePending(ctx context.Context, userID, planID uuid.UUID, paymentMethod string, autoRenew bool) (*db_models.Subscription, error) {
	current, err := s.subRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if current != nil {
		return nil, utils.ErrDuplicateActiveSubscription
	}

	sub := &db_models.Subscription{
		UserID:        userID,
		PlanID:        planID,
		Status:        db_models.SubStatusPending,
		StartsAt:      s.now().Unix(),
		AutoRenew:     autoRenew,
		PaymentMethod: paymentMethod,
	}
	if err := s.subRepo.CreateSubscription(ctx, sub); err != nil {
		return nil, utils.ErrDatabaseError
	}
	return sub, nil
}

func (s *SubscriptionService) Activate(ctx context.Context, subID uuid.UUID, txn *db_models.Transaction) (bool, error) {
	sub, err := s.subRepo.GetSubscriptionByID(ctx, subID)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	if sub == nil {
		return false, utils.ErrSubscriptionNotFound
	}

	plan, err := s.planRepo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	if plan == nil {
		return false, utils.ErrPlanNotFound
	}

	startsAt := s.now().Unix()
	endsAt := periodEnd(startsAt, plan)

	fields := map[string]interface{}{
		"status":                db_models.SubStatusActive,
		"starts_at":             startsAt,
		"ends_at":               endsAt,
		"paid_amount_minor":     txn.AmountMinor,
		"last_transaction_code": txn.Code,
	}
	if plan.BillingType == db_models.BillingMonthly {
		fields["next_payment_at"] = endsAt
	}

	// Guarded on pending: a cancel that won the race stays cancelled and the
	// late settlement records payment without resurrecting the subscription.
	ok, err := s.subRepo.UpdateIfStatus(ctx, subID, []db_models.SubscriptionStatus{db_models.SubStatusPending}, fields)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	return ok, nil
}

func (s *SubscriptionService) Expire(ctx context.Context, subID uuid.UUID) (bool, error) {
	ok, err := s.subRepo.UpdateIfStatus(ctx, subID,
		[]db_models.SubscriptionStatus{db_models.SubStatusActive},
		map[string]interface{}{"status": db_models.SubStatusExpired})
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	return ok, nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, subID uuid.UUID, reason string) (*db_models.Subscription, error) {
	if reason == "" {
		return nil, utils.ErrCancelReasonRequired
	}

	sub, err := s.subRepo.GetSubscriptionByID(ctx, subID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if sub == nil {
		return nil, utils.ErrSubscriptionNotFound
	}
	if sub.Status.IsTerminal() {
		return nil, utils.ErrSubscriptionTerminal
	}

	now := s.now().Unix()
	ok, err := s.subRepo.UpdateIfStatus(ctx, subID,
		[]db_models.SubscriptionStatus{db_models.SubStatusPending, db_models.SubStatusActive},
		map[string]interface{}{
			"status":        db_models.SubStatusCancelled,
			"auto_renew":    false,
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		// Lost the race to another terminal transition.
		return nil, utils.ErrSubscriptionTerminal
	}

	return s.subRepo.GetSubscriptionByID(ctx, subID)
}

func (s *SubscriptionService) ApplyRenewal(ctx context.Context, subID uuid.UUID, txn *db_models.Transaction) (bool, error) {
	sub, err := s.subRepo.GetSubscriptionByID(ctx, subID)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	if sub == nil {
		return false, utils.ErrSubscriptionNotFound
	}

	plan, err := s.planRepo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	if plan == nil {
		return false, utils.ErrPlanNotFound
	}

	// Extend from the current period end, not from now; renewing a day early
	// must not shorten the entitlement.
	newEnd := periodEnd(sub.EndsAt, plan)

	fields := map[string]interface{}{
		"ends_at":                 newEnd,
		"paid_amount_minor":       txn.AmountMinor,
		"last_transaction_code":   txn.Code,
		"failed_payment_attempts": 0,
	}
	if plan.BillingType == db_models.BillingMonthly {
		fields["next_payment_at"] = newEnd
	}

	ok, err := s.subRepo.UpdateIfStatus(ctx, subID, []db_models.SubscriptionStatus{db_models.SubStatusActive}, fields)
	if err != nil {
		return false, utils.ErrDatabaseError
	}
	return ok, nil
}

func (s *SubscriptionService) RecordRenewalFailure(ctx context.Context, subID uuid.UUID) error {
	sub, err := s.subRepo.GetSubscriptionByID(ctx, subID)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if sub == nil {
		return utils.ErrSubscriptionNotFound
	}

	attempts := sub.FailedPaymentAttempts + 1
	fields := map[string]interface{}{
		"failed_payment_attempts": attempts,
	}
	if attempts >= db_models.MaxRenewalFailures {
		fields["auto_renew"] = false
	}

	_, err = s.subRepo.UpdateIfStatus(ctx, subID, []db_models.SubscriptionStatus{db_models.SubStatusActive}, fields)
	if err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (s *SubscriptionService) GetByID(ctx context.Context, subID uuid.UUID) (*db_models.Subscription, error) {
	sub, err := s.subRepo.GetSubscriptionByID(ctx, subID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if sub == nil {
		return nil, utils.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *SubscriptionService) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	sub, err := s.subRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if sub == nil {
		return nil, utils.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *SubscriptionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.Subscription, error) {
	subs, err := s.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return subs, nil
}

// periodEnd computes the end of a billing period starting at the given unix
// second.
func periodEnd(from int64, plan *db_models.Plan) int64 {
	start := time.Unix(from, 0)
	if plan.IsLifetime() {
		return start.AddDate(lifetimeYears, 0, 0).Unix()
	}
	return start.AddDate(0, 0, plan.DurationDays).Unix()
}
