package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"premia/internal/models/db_models"
	"premia/internal/repositories/memory"
	"premia/pkg/utils"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type subFixture struct {
	svc   SubscriptionServiceInterface
	subs  *memory.SubscriptionStore
	plans *memory.PlanStore
}

func newSubFixture(t *testing.T) *subFixture {
	t.Helper()
	subs := memory.NewSubscriptionStore()
	plans := memory.NewPlanStore()
	return &subFixture{
		svc:   NewSubscriptionServiceWithClock(subs, plans, fixedClock),
		subs:  subs,
		plans: plans,
	}
}

func (f *subFixture) seedPlan(t *testing.T, billing db_models.BillingType, durationDays int) *db_models.Plan {
	t.Helper()
	plan := &db_models.Plan{
		Name:         "Premium",
		PriceMinor:   99000,
		Currency:     "VND",
		DurationDays: durationDays,
		BillingType:  billing,
		IsActive:     true,
	}
	if err := f.plans.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func completedTxn(amount int64) *db_models.Transaction {
	return &db_models.Transaction{
		Code:        utils.NewTransactionCode(),
		AmountMinor: amount,
		Status:      db_models.TxnStatusCompleted,
	}
}

func TestCreatePendingRejectsSecondActive(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)
	userID := uuid.New()

	sub, err := f.svc.CreatePending(ctx, userID, plan.ID, "card", false)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if sub.Status != db_models.SubStatusPending {
		t.Errorf("status = %q, want pending", sub.Status)
	}

	if _, err := f.svc.Activate(ctx, sub.ID, completedTxn(99000)); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if _, err := f.svc.CreatePending(ctx, userID, plan.ID, "card", false); !errors.Is(err, utils.ErrDuplicateActiveSubscription) {
		t.Errorf("got %v, want ErrDuplicateActiveSubscription", err)
	}

	// A pending one does not block; only active does.
	if _, err := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false); err != nil {
		t.Errorf("other user blocked: %v", err)
	}
}

func TestActivateSetsPeriodAndPayment(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, err := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", true)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	txn := completedTxn(99000)
	activated, err := f.svc.Activate(ctx, sub.ID, txn)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !activated {
		t.Fatal("expected activation")
	}

	got, err := f.svc.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != db_models.SubStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}
	if got.EndsAt <= got.StartsAt {
		t.Errorf("EndsAt %d not after StartsAt %d", got.EndsAt, got.StartsAt)
	}
	wantEnd := testNow.AddDate(0, 0, 30).Unix()
	if got.EndsAt != wantEnd {
		t.Errorf("EndsAt = %d, want %d", got.EndsAt, wantEnd)
	}
	if got.NextPaymentAt == nil || *got.NextPaymentAt != wantEnd {
		t.Errorf("NextPaymentAt = %v, want %d", got.NextPaymentAt, wantEnd)
	}
	if got.PaidAmountMinor != 99000 {
		t.Errorf("PaidAmountMinor = %d, want 99000", got.PaidAmountMinor)
	}
	if got.LastTransactionCode == nil || *got.LastTransactionCode != txn.Code {
		t.Errorf("LastTransactionCode = %v, want %q", got.LastTransactionCode, txn.Code)
	}
}

func TestActivateLifetimePlanHasNoNextPayment(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingLifetime, db_models.DurationLifetime)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false)
	if _, err := f.svc.Activate(ctx, sub.ID, completedTxn(990000)); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got, _ := f.svc.GetByID(ctx, sub.ID)
	if got.NextPaymentAt != nil {
		t.Errorf("lifetime NextPaymentAt = %v, want nil", *got.NextPaymentAt)
	}
	if got.EndsAt <= testNow.AddDate(50, 0, 0).Unix() {
		t.Errorf("lifetime EndsAt %d too close", got.EndsAt)
	}
}

func TestActivateAfterCancelIsSkipped(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false)
	if _, err := f.svc.Cancel(ctx, sub.ID, "changed my mind"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// Settlement that lost the race to the cancel must not resurrect.
	activated, err := f.svc.Activate(ctx, sub.ID, completedTxn(99000))
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if activated {
		t.Error("cancelled subscription must not activate")
	}

	got, _ := f.svc.GetByID(ctx, sub.ID)
	if got.Status != db_models.SubStatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	f := newSubFixture(t)
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)
	sub, _ := f.svc.CreatePending(context.Background(), uuid.New(), plan.ID, "card", false)

	if _, err := f.svc.Cancel(context.Background(), sub.ID, ""); !errors.Is(err, utils.ErrCancelReasonRequired) {
		t.Errorf("got %v, want ErrCancelReasonRequired", err)
	}
}

func TestCancelTerminalStates(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false)
	cancelled, err := f.svc.Cancel(ctx, sub.ID, "too expensive")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != db_models.SubStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil || cancelled.CancelReason == nil {
		t.Error("cancel audit fields not set")
	}
	if cancelled.AutoRenew {
		t.Error("auto renew must be off after cancel")
	}

	// Second cancel hits a terminal state.
	if _, err := f.svc.Cancel(ctx, sub.ID, "again"); !errors.Is(err, utils.ErrSubscriptionTerminal) {
		t.Errorf("got %v, want ErrSubscriptionTerminal", err)
	}

	// Expired is equally terminal.
	sub2, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false)
	if _, err := f.svc.Activate(ctx, sub2.ID, completedTxn(99000)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := f.svc.Expire(ctx, sub2.ID); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, sub2.ID, "late"); !errors.Is(err, utils.ErrSubscriptionTerminal) {
		t.Errorf("got %v, want ErrSubscriptionTerminal", err)
	}
}

func TestExpireOnlyMovesActive(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", false)
	expired, err := f.svc.Expire(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if expired {
		t.Error("pending subscription must not expire")
	}

	f.svc.Activate(ctx, sub.ID, completedTxn(99000))
	expired, err = f.svc.Expire(ctx, sub.ID)
	if err != nil || !expired {
		t.Fatalf("Expire active: expired=%v err=%v", expired, err)
	}

	// Re-running is a no-op, not an error.
	expired, err = f.svc.Expire(ctx, sub.ID)
	if err != nil || expired {
		t.Errorf("second Expire: expired=%v err=%v", expired, err)
	}
}

func TestApplyRenewalExtendsFromPeriodEnd(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", true)
	f.svc.Activate(ctx, sub.ID, completedTxn(99000))

	before, _ := f.svc.GetByID(ctx, sub.ID)

	// Simulate prior renewal failures that a successful charge must clear.
	f.subs.UpdateIfStatus(ctx, sub.ID,
		[]db_models.SubscriptionStatus{db_models.SubStatusActive},
		map[string]interface{}{"failed_payment_attempts": 2})

	renewTxn := completedTxn(99000)
	extended, err := f.svc.ApplyRenewal(ctx, sub.ID, renewTxn)
	if err != nil {
		t.Fatalf("ApplyRenewal: %v", err)
	}
	if !extended {
		t.Fatal("expected extension")
	}

	got, _ := f.svc.GetByID(ctx, sub.ID)
	wantEnd := time.Unix(before.EndsAt, 0).AddDate(0, 0, 30).Unix()
	if got.EndsAt != wantEnd {
		t.Errorf("EndsAt = %d, want %d (extend from previous end, not now)", got.EndsAt, wantEnd)
	}
	if got.FailedPaymentAttempts != 0 {
		t.Errorf("FailedPaymentAttempts = %d, want 0", got.FailedPaymentAttempts)
	}
	if got.LastTransactionCode == nil || *got.LastTransactionCode != renewTxn.Code {
		t.Errorf("LastTransactionCode = %v, want %q", got.LastTransactionCode, renewTxn.Code)
	}
}

func TestRecordRenewalFailureDisablesAutoRenew(t *testing.T) {
	f := newSubFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, db_models.BillingMonthly, 30)

	sub, _ := f.svc.CreatePending(ctx, uuid.New(), plan.ID, "card", true)
	f.svc.Activate(ctx, sub.ID, completedTxn(99000))

	for i := 1; i <= db_models.MaxRenewalFailures; i++ {
		if err := f.svc.RecordRenewalFailure(ctx, sub.ID); err != nil {
			t.Fatalf("RecordRenewalFailure #%d: %v", i, err)
		}
		got, _ := f.svc.GetByID(ctx, sub.ID)
		if got.FailedPaymentAttempts != i {
			t.Errorf("attempt %d: counter = %d", i, got.FailedPaymentAttempts)
		}
		wantAutoRenew := i < db_models.MaxRenewalFailures
		if got.AutoRenew != wantAutoRenew {
			t.Errorf("attempt %d: AutoRenew = %v, want %v", i, got.AutoRenew, wantAutoRenew)
		}
		if got.Status != db_models.SubStatusActive {
			t.Errorf("attempt %d: status = %q, subscription must stay active", i, got.Status)
		}
	}
}

func TestGetActiveByUserNotFound(t *testing.T) {
	f := newSubFixture(t)
	if _, err := f.svc.GetActiveByUser(context.Background(), uuid.New()); !errors.Is(err, utils.ErrSubscriptionNotFound) {
		t.Errorf("got %v, want ErrSubscriptionNotFound", err)
	}
}
