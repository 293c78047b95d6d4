package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"premia/internal/gateway"
	"premia/internal/models/db_models"
	"premia/pkg/memcache"
	"premia/pkg/utils"
)

// DefaultSettleWait bounds how long a synchronous purchase call waits for the
// gateway to resolve. The engine itself is callback-driven; this wait only
// exists so the mobile client gets a final answer on the happy path.
const DefaultSettleWait = 5 * time.Second

type PurchaseResult struct {
	Success      bool
	Subscription *db_models.Subscription
	Transaction  *db_models.Transaction
	PaymentURL   string
	QRPayload    string
}

type PurchaseServiceInterface interface {
	// Purchase runs the end-to-end flow: resolve plan, open a pending
	// subscription and transaction, initiate settlement, await the outcome.
	Purchase(ctx context.Context, userID, planID uuid.UUID, paymentMethod string, autoRenew bool) (*PurchaseResult, error)

	// HandleSettlement is the gateway callback: apply the outcome to the
	// transaction, then activate/extend/fail the subscription accordingly.
	// Idempotent for replayed callbacks.
	HandleSettlement(ctx context.Context, settlement gateway.Settlement) error

	// RetryPayment re-opens a failed transaction and runs the settlement path
	// again; bounded by the transaction retry budget.
	RetryPayment(ctx context.Context, code string) (*PurchaseResult, error)

	// InitiateRenewal opens a renewal transaction for an auto-renewing
	// subscription at its previously paid amount and fires settlement. The
	// outcome arrives through HandleSettlement. Returns nil when a renewal is
	// already in flight.
	InitiateRenewal(ctx context.Context, sub *db_models.Subscription) (*db_models.Transaction, error)
}

type PurchaseService struct {
	planService PlanServiceInterface
	subService  SubscriptionServiceInterface
	txnService  TransactionServiceInterface
	gw          gateway.Gateway
	waiters     *memcache.SettlementWaiters
	notifier    NotificationServiceInterface
	settleWait  time.Duration
}

func NewPurchaseService(
	planService PlanServiceInterface,
	subService SubscriptionServiceInterface,
	txnService TransactionServiceInterface,
	gw gateway.Gateway,
	waiters *memcache.SettlementWaiters,
	notifier NotificationServiceInterface,
	settleWait time.Duration,
) PurchaseServiceInterface {
	if settleWait <= 0 {
		settleWait = DefaultSettleWait
	}
	return &PurchaseService{
		planService: planService,
		subService:  subService,
		txnService:  txnService,
		gw:          gw,
		waiters:     waiters,
		notifier:    notifier,
		settleWait:  settleWait,
	}
}

func (p *PurchaseService) Purchase(ctx context.Context, userID, planID uuid.UUID, paymentMethod string, autoRenew bool) (*PurchaseResult, error) {
	plan, err := p.planService.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, utils.ErrPlanNotFound
	}

	sub, err := p.subService.CreatePending(ctx, userID, planID, paymentMethod, autoRenew)
	if err != nil {
		return nil, err
	}
	p.notifier.Dispatch(ctx, EventSubscriptionCreated, userID, map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"plan_id":         planID.String(),
	})

	txn, err := p.txnService.Create(ctx, CreateTransactionParams{
		UserID:         userID,
		SubscriptionID: sub.ID,
		PlanID:         planID,
		AmountMinor:    plan.EffectivePriceMinor(),
		Currency:       plan.Currency,
		PaymentMethod:  paymentMethod,
		Type:           db_models.TxnTypeSubscription,
		Description:    fmt.Sprintf("Subscription %s", plan.Name),
	})
	if err != nil {
		return nil, err
	}

	return p.settleAndAwait(ctx, sub.ID, txn)
}

func (p *PurchaseService) RetryPayment(ctx context.Context, code string) (*PurchaseResult, error) {
	txn, err := p.txnService.Retry(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.settleAndAwait(ctx, txn.SubscriptionID, txn)
}

// settleAndAwait initiates settlement for a pending transaction and waits a
// bounded time for the asynchronous outcome.
func (p *PurchaseService) settleAndAwait(ctx context.Context, subID uuid.UUID, txn *db_models.Transaction) (*PurchaseResult, error) {
	ch := p.waiters.Register(txn.Code)
	defer p.waiters.Release(txn.Code)

	ack, err := p.initiateSettlement(ctx, txn)
	if err != nil {
		return nil, err
	}

	select {
	case <-ch:
	case <-time.After(p.settleWait):
		// The transaction stays on the callback/sweep path; the caller just
		// stops waiting.
		return nil, utils.ErrGatewayTimeout
	case <-ctx.Done():
		return nil, utils.ErrGatewayTimeout
	}

	finalTxn, err := p.txnService.GetByCode(ctx, txn.Code)
	if err != nil {
		return nil, err
	}
	finalSub, err := p.subService.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}

	return &PurchaseResult{
		Success:      finalTxn.Status == db_models.TxnStatusCompleted,
		Subscription: finalSub,
		Transaction:  finalTxn,
		PaymentURL:   ack.PaymentURL,
		QRPayload:    ack.QRPayload,
	}, nil
}

// initiateSettlement moves the transaction to processing and hands it to the
// gateway. A gateway refusal settles the transaction as failed right away.
func (p *PurchaseService) initiateSettlement(ctx context.Context, txn *db_models.Transaction) (*gateway.Ack, error) {
	if err := p.txnService.Initiate(ctx, txn.Code, nil); err != nil {
		return nil, err
	}

	ack, err := p.gw.Initiate(ctx, gateway.InitiateRequest{
		TransactionCode: txn.Code,
		AmountMinor:     txn.AmountMinor,
		Currency:        txn.Currency,
		Method:          txn.PaymentMethod,
		CustomerID:      txn.UserID.String(),
		Description:     txn.Description,
	})
	if err != nil {
		if _, _, serr := p.txnService.ApplySettlement(ctx, gateway.Settlement{
			TransactionCode: txn.Code,
			Status:          "error",
			FailureReason:   err.Error(),
		}); serr != nil {
			log.Printf("failed to record gateway refusal for %s: %v", txn.Code, serr)
		}
		return nil, fmt.Errorf("gateway initiate: %w", err)
	}

	if err := p.txnService.AttachGatewayRef(ctx, txn.Code, ack.GatewayTxnID); err != nil {
		log.Printf("failed to attach gateway ref for %s: %v", txn.Code, err)
	}
	return ack, nil
}

func (p *PurchaseService) HandleSettlement(ctx context.Context, settlement gateway.Settlement) error {
	txn, changed, err := p.txnService.ApplySettlement(ctx, settlement)
	if err != nil {
		return err
	}

	if changed {
		switch txn.Status {
		case db_models.TxnStatusCompleted:
			p.onCompleted(ctx, txn)
		case db_models.TxnStatusFailed:
			p.onFailed(ctx, txn)
		}
	}

	// Release any synchronous waiter even for replays.
	p.waiters.Notify(txn.Code, string(txn.Status))
	return nil
}

func (p *PurchaseService) onCompleted(ctx context.Context, txn *db_models.Transaction) {
	payload := map[string]interface{}{
		"transaction_code": txn.Code,
		"amount":           txn.AmountMinor,
		"currency":         txn.Currency,
	}

	if txn.Type == db_models.TxnTypeRenewal {
		extended, err := p.subService.ApplyRenewal(ctx, txn.SubscriptionID, txn)
		if err != nil {
			log.Printf("renewal apply failed for %s: %v", txn.Code, err)
			return
		}
		if !extended {
			log.Printf("renewal for %s skipped, subscription no longer active", txn.Code)
		}
		p.notifier.Dispatch(ctx, EventPaymentCompleted, txn.UserID, payload)
		return
	}

	activated, err := p.subService.Activate(ctx, txn.SubscriptionID, txn)
	if err != nil {
		log.Printf("activation failed for %s: %v", txn.Code, err)
		return
	}
	p.notifier.Dispatch(ctx, EventPaymentCompleted, txn.UserID, payload)
	if activated {
		p.notifier.Dispatch(ctx, EventSubscriptionActivated, txn.UserID, map[string]interface{}{
			"subscription_id":  txn.SubscriptionID.String(),
			"transaction_code": txn.Code,
		})
	} else {
		// Cancelled while settlement was in flight; payment recorded, no
		// entitlement granted.
		log.Printf("activation for %s skipped, subscription already left pending", txn.Code)
	}
}

func (p *PurchaseService) onFailed(ctx context.Context, txn *db_models.Transaction) {
	reason := ""
	if txn.FailureReason != nil {
		reason = *txn.FailureReason
	}
	p.notifier.Dispatch(ctx, EventPaymentFailed, txn.UserID, map[string]interface{}{
		"transaction_code": txn.Code,
		"failure_reason":   reason,
	})

	if txn.Type == db_models.TxnTypeRenewal {
		if err := p.subService.RecordRenewalFailure(ctx, txn.SubscriptionID); err != nil {
			log.Printf("failed to record renewal failure for %s: %v", txn.Code, err)
		}
	}
}

func (p *PurchaseService) InitiateRenewal(ctx context.Context, sub *db_models.Subscription) (*db_models.Transaction, error) {
	open, err := p.txnService.GetOpenRenewal(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		// A renewal charge is already in flight; never double-charge.
		return nil, nil
	}

	plan, err := p.planService.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	// Renewal price is locked to what the user last paid, not the current
	// plan price.
	txn, err := p.txnService.Create(ctx, CreateTransactionParams{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		AmountMinor:    sub.PaidAmountMinor,
		Currency:       plan.Currency,
		PaymentMethod:  sub.PaymentMethod,
		Type:           db_models.TxnTypeRenewal,
		Description:    fmt.Sprintf("Renewal %s", plan.Name),
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.initiateSettlement(ctx, txn); err != nil {
		if ferr := p.subService.RecordRenewalFailure(ctx, sub.ID); ferr != nil {
			log.Printf("failed to record renewal failure for %s: %v", sub.ID, ferr)
		}
		return txn, err
	}
	return txn, nil
}
