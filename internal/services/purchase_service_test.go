package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"premia/internal/gateway"
	"premia/internal/models/db_models"
	"premia/internal/repositories/memory"
	"premia/pkg/memcache"
	"premia/pkg/utils"
)

type notifierStub struct {
	mu     sync.Mutex
	events []string
}

func (n *notifierStub) Dispatch(ctx context.Context, event string, userID uuid.UUID, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *notifierStub) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

// gatewayStub settles synchronously inside Initiate, which keeps the tests
// deterministic; the waiter channel is buffered so the early notify is fine.
type gatewayStub struct {
	settle  gateway.SettleFunc
	status  string // "" means never settle
	reason  string
	refuse  error
	mu      sync.Mutex
	initCnt int
}

func (g *gatewayStub) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.Ack, error) {
	g.mu.Lock()
	g.initCnt++
	g.mu.Unlock()
	if g.refuse != nil {
		return nil, g.refuse
	}
	ack := &gateway.Ack{
		GatewayTxnID: "STUB-" + req.TransactionCode,
		PaymentURL:   "https://pay.test/checkout/" + req.TransactionCode,
		QRPayload:    "stub://pay?code=" + req.TransactionCode,
	}
	if g.status != "" {
		g.settle(gateway.Settlement{
			TransactionCode: req.TransactionCode,
			GatewayTxnID:    ack.GatewayTxnID,
			Status:          g.status,
			FailureReason:   g.reason,
		})
	}
	return ack, nil
}

func (g *gatewayStub) initiations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initCnt
}

type purchaseFixture struct {
	svc      PurchaseServiceInterface
	subSvc   SubscriptionServiceInterface
	txnSvc   TransactionServiceInterface
	gw       *gatewayStub
	notifier *notifierStub
	plans    *memory.PlanStore
	plan     *db_models.Plan
}

func newPurchaseFixture(t *testing.T, gw *gatewayStub) *purchaseFixture {
	t.Helper()
	plans := memory.NewPlanStore()
	subs := memory.NewSubscriptionStore()
	txns := memory.NewTransactionStore()

	plan := &db_models.Plan{
		Name:         "Premium",
		PriceMinor:   99000,
		Currency:     "VND",
		DurationDays: 30,
		BillingType:  db_models.BillingMonthly,
		IsActive:     true,
	}
	if err := plans.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	notifier := &notifierStub{}
	planSvc := NewPlanService(plans, nil)
	subSvc := NewSubscriptionServiceWithClock(subs, plans, fixedClock)
	txnSvc := NewTransactionServiceWithClock(txns, nil, fixedClock)
	svc := NewPurchaseService(planSvc, subSvc, txnSvc, gw, memcache.NewSettlementWaiters(), notifier, time.Second)
	gw.settle = func(s gateway.Settlement) {
		if err := svc.HandleSettlement(context.Background(), s); err != nil {
			t.Errorf("HandleSettlement: %v", err)
		}
	}

	return &purchaseFixture{
		svc:      svc,
		subSvc:   subSvc,
		txnSvc:   txnSvc,
		gw:       gw,
		notifier: notifier,
		plans:    plans,
		plan:     plan,
	}
}

func TestPurchaseHappyPath(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "success"})
	ctx := context.Background()
	userID := uuid.New()

	res, err := f.svc.Purchase(ctx, userID, f.plan.ID, "card", true)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if !res.Success {
		t.Fatal("expected successful purchase")
	}
	if res.Transaction.Status != db_models.TxnStatusCompleted {
		t.Errorf("transaction status = %q, want completed", res.Transaction.Status)
	}
	if res.Subscription.Status != db_models.SubStatusActive {
		t.Errorf("subscription status = %q, want active", res.Subscription.Status)
	}
	if res.Subscription.EndsAt <= res.Subscription.StartsAt {
		t.Error("activated subscription has no period")
	}
	if res.PaymentURL == "" || res.QRPayload == "" {
		t.Error("ack fields missing from result")
	}
	if f.notifier.count(EventSubscriptionCreated) != 1 ||
		f.notifier.count(EventPaymentCompleted) != 1 ||
		f.notifier.count(EventSubscriptionActivated) != 1 {
		t.Errorf("unexpected events: %v", f.notifier.events)
	}

	active, err := f.subSvc.GetActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetActiveByUser: %v", err)
	}
	if active.PaidAmountMinor != 99000 {
		t.Errorf("PaidAmountMinor = %d", active.PaidAmountMinor)
	}
}

func TestPurchaseFailedPayment(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "failed", reason: "card declined"})
	ctx := context.Background()
	userID := uuid.New()

	res, err := f.svc.Purchase(ctx, userID, f.plan.ID, "card", false)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if res.Success {
		t.Fatal("expected failed purchase")
	}
	if res.Transaction.Status != db_models.TxnStatusFailed {
		t.Errorf("transaction status = %q, want failed", res.Transaction.Status)
	}
	if res.Subscription.Status != db_models.SubStatusPending {
		t.Errorf("subscription status = %q, want pending (retry still possible)", res.Subscription.Status)
	}
	if f.notifier.count(EventPaymentFailed) != 1 {
		t.Errorf("unexpected events: %v", f.notifier.events)
	}
	if f.notifier.count(EventSubscriptionActivated) != 0 {
		t.Error("failed payment must not activate")
	}
}

func TestPurchaseRejectsSecondActiveSubscription(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "success"})
	ctx := context.Background()
	userID := uuid.New()

	if _, err := f.svc.Purchase(ctx, userID, f.plan.ID, "card", false); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := f.svc.Purchase(ctx, userID, f.plan.ID, "card", false); !errors.Is(err, utils.ErrDuplicateActiveSubscription) {
		t.Errorf("got %v, want ErrDuplicateActiveSubscription", err)
	}
}

func TestPurchaseUnsupportedMethod(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "success"})
	if _, err := f.svc.Purchase(context.Background(), uuid.New(), f.plan.ID, "crypto", false); !errors.Is(err, utils.ErrUnsupportedMethod) {
		t.Errorf("got %v, want ErrUnsupportedMethod", err)
	}
}

func TestPurchaseInactivePlan(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "success"})
	ctx := context.Background()
	if err := f.plans.UpdatePlan(ctx, f.plan.ID, map[string]interface{}{"is_active": false}); err != nil {
		t.Fatalf("deactivate plan: %v", err)
	}
	if _, err := f.svc.Purchase(ctx, uuid.New(), f.plan.ID, "card", false); !errors.Is(err, utils.ErrPlanNotFound) {
		t.Errorf("got %v, want ErrPlanNotFound", err)
	}
}

func TestPurchaseTimesOutButTransactionSurvives(t *testing.T) {
	gw := &gatewayStub{} // never settles
	f := newPurchaseFixture(t, gw)

	f.svc.(*PurchaseService).settleWait = 20 * time.Millisecond

	_, err := f.svc.Purchase(context.Background(), uuid.New(), f.plan.ID, "card", false)
	if !errors.Is(err, utils.ErrGatewayTimeout) {
		t.Fatalf("got %v, want ErrGatewayTimeout", err)
	}
	// The transaction stays in processing for the callback or the sweep.
	if gw.initiations() != 1 {
		t.Errorf("initiations = %d", gw.initiations())
	}
}

func TestPurchaseGatewayRefusalFailsTransaction(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{refuse: errors.New("provider unavailable")})
	_, err := f.svc.Purchase(context.Background(), uuid.New(), f.plan.ID, "card", false)
	if err == nil {
		t.Fatal("expected error from refused initiation")
	}
}

func TestRetryPaymentActivatesAfterFailure(t *testing.T) {
	gw := &gatewayStub{status: "failed", reason: "card declined"}
	f := newPurchaseFixture(t, gw)
	ctx := context.Background()
	userID := uuid.New()

	res, err := f.svc.Purchase(ctx, userID, f.plan.ID, "card", false)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if res.Success {
		t.Fatal("setup: expected failed purchase")
	}

	gw.status = "success"
	retried, err := f.svc.RetryPayment(ctx, res.Transaction.Code)
	if err != nil {
		t.Fatalf("RetryPayment: %v", err)
	}
	if !retried.Success {
		t.Fatal("expected successful retry")
	}
	if retried.Transaction.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", retried.Transaction.RetryCount)
	}
	if retried.Subscription.Status != db_models.SubStatusActive {
		t.Errorf("subscription status = %q, want active", retried.Subscription.Status)
	}
}

func TestLateSettlementAfterCancelDoesNotActivate(t *testing.T) {
	gw := &gatewayStub{} // settlement driven manually below
	f := newPurchaseFixture(t, gw)
	ctx := context.Background()
	userID := uuid.New()

	sub, err := f.subSvc.CreatePending(ctx, userID, f.plan.ID, "card", false)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	txn, err := f.txnSvc.Create(ctx, CreateTransactionParams{
		UserID: userID, SubscriptionID: sub.ID, PlanID: f.plan.ID,
		AmountMinor: 99000, Currency: "VND", PaymentMethod: "card",
		Type: db_models.TxnTypeSubscription,
	})
	if err != nil {
		t.Fatalf("Create txn: %v", err)
	}
	if err := f.txnSvc.Initiate(ctx, txn.Code, nil); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// User cancels while the gateway is still resolving.
	if _, err := f.subSvc.Cancel(ctx, sub.ID, "changed my mind"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The settlement lands afterwards: payment is recorded, entitlement is not.
	if err := f.svc.HandleSettlement(ctx, gateway.Settlement{TransactionCode: txn.Code, Status: "success"}); err != nil {
		t.Fatalf("HandleSettlement: %v", err)
	}

	gotTxn, _ := f.txnSvc.GetByCode(ctx, txn.Code)
	if gotTxn.Status != db_models.TxnStatusCompleted {
		t.Errorf("transaction status = %q, want completed", gotTxn.Status)
	}
	gotSub, _ := f.subSvc.GetByID(ctx, sub.ID)
	if gotSub.Status != db_models.SubStatusCancelled {
		t.Errorf("subscription status = %q, must stay cancelled", gotSub.Status)
	}
	if f.notifier.count(EventSubscriptionActivated) != 0 {
		t.Error("cancelled subscription must not emit activation")
	}
}

func activateSub(t *testing.T, f *purchaseFixture, userID uuid.UUID, autoRenew bool) *db_models.Subscription {
	t.Helper()
	ctx := context.Background()
	sub, err := f.subSvc.CreatePending(ctx, userID, f.plan.ID, "card", autoRenew)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	code := utils.NewTransactionCode()
	if _, err := f.subSvc.Activate(ctx, sub.ID, &db_models.Transaction{Code: code, AmountMinor: 99000, Status: db_models.TxnStatusCompleted}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	got, err := f.subSvc.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return got
}

func TestInitiateRenewalExtendsSubscription(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "success"})
	ctx := context.Background()
	sub := activateSub(t, f, uuid.New(), true)
	endBefore := sub.EndsAt

	txn, err := f.svc.InitiateRenewal(ctx, sub)
	if err != nil {
		t.Fatalf("InitiateRenewal: %v", err)
	}
	if txn == nil {
		t.Fatal("expected renewal transaction")
	}
	if txn.Type != db_models.TxnTypeRenewal {
		t.Errorf("type = %q, want renewal", txn.Type)
	}
	if txn.AmountMinor != sub.PaidAmountMinor {
		t.Errorf("renewal amount = %d, want locked-in %d", txn.AmountMinor, sub.PaidAmountMinor)
	}

	got, _ := f.subSvc.GetByID(ctx, sub.ID)
	if got.EndsAt <= endBefore {
		t.Errorf("EndsAt = %d, not extended past %d", got.EndsAt, endBefore)
	}
	if f.notifier.count(EventPaymentCompleted) != 1 {
		t.Errorf("unexpected events: %v", f.notifier.events)
	}
}

func TestInitiateRenewalSkipsWhenOneInFlight(t *testing.T) {
	gw := &gatewayStub{} // leaves the first renewal open
	f := newPurchaseFixture(t, gw)
	ctx := context.Background()
	sub := activateSub(t, f, uuid.New(), true)

	first, err := f.svc.InitiateRenewal(ctx, sub)
	if err != nil {
		t.Fatalf("first InitiateRenewal: %v", err)
	}
	if first == nil {
		t.Fatal("expected open renewal")
	}

	second, err := f.svc.InitiateRenewal(ctx, sub)
	if err != nil {
		t.Fatalf("second InitiateRenewal: %v", err)
	}
	if second != nil {
		t.Error("second renewal opened while one is in flight, double charge risk")
	}
	if gw.initiations() != 1 {
		t.Errorf("gateway initiations = %d, want 1", gw.initiations())
	}
}

func TestFailedRenewalBumpsFailureCounter(t *testing.T) {
	f := newPurchaseFixture(t, &gatewayStub{status: "failed", reason: "insufficient funds"})
	ctx := context.Background()
	sub := activateSub(t, f, uuid.New(), true)

	if _, err := f.svc.InitiateRenewal(ctx, sub); err != nil {
		t.Fatalf("InitiateRenewal: %v", err)
	}

	got, _ := f.subSvc.GetByID(ctx, sub.ID)
	if got.FailedPaymentAttempts != 1 {
		t.Errorf("FailedPaymentAttempts = %d, want 1", got.FailedPaymentAttempts)
	}
	if got.Status != db_models.SubStatusActive {
		t.Errorf("status = %q, subscription must stay active until period end", got.Status)
	}
	if f.notifier.count(EventPaymentFailed) != 1 {
		t.Errorf("unexpected events: %v", f.notifier.events)
	}
}
