// Package scheduler drives the time-based reconciliation jobs over the
// subscription and transaction ledgers. Every job is written as "find
// candidates, attempt transition, skip if the state moved on", so re-running
// after a crash or alongside request traffic is safe.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"premia/internal/repositories"
	"premia/internal/services"
	"premia/pkg/utils"
)

const (
	expiringSoonWindowDays = 7
	renewalWindow          = 24 * time.Hour
	transactionRetention   = 365 * 24 * time.Hour
	subscriptionRetention  = 180 * 24 * time.Hour
)

// expiringNoticeDays are the exact remaining-day marks a notice fires at.
var expiringNoticeDays = map[int]bool{7: true, 3: true, 1: true}

// Report carries per-job counts from a manual run-all invocation.
type Report struct {
	ExpiredSubscriptions int      `json:"expired_subscriptions"`
	ExpiringNotices      int      `json:"expiring_notices"`
	RenewalsInitiated    int      `json:"renewals_initiated"`
	StalePendingFailed   int      `json:"stale_pending_failed"`
	RecordsPurged        int      `json:"records_purged"`
	Errors               []string `json:"errors,omitempty"`
}

// Jobs contains the logic for all scheduled sweeps.
type Jobs struct {
	subRepo     repositories.ISubscriptionRepository
	txnRepo     repositories.ITransactionRepository
	subService  services.SubscriptionServiceInterface
	txnService  services.TransactionServiceInterface
	purchaseSvc services.PurchaseServiceInterface
	notifier    services.NotificationServiceInterface
	logger      *slog.Logger
	now         func() time.Time
}

func NewJobs(
	subRepo repositories.ISubscriptionRepository,
	txnRepo repositories.ITransactionRepository,
	subService services.SubscriptionServiceInterface,
	txnService services.TransactionServiceInterface,
	purchaseSvc services.PurchaseServiceInterface,
	notifier services.NotificationServiceInterface,
	logger *slog.Logger,
) *Jobs {
	return &Jobs{
		subRepo:     subRepo,
		txnRepo:     txnRepo,
		subService:  subService,
		txnService:  txnService,
		purchaseSvc: purchaseSvc,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock swaps the clock for tests.
func (j *Jobs) WithClock(now func() time.Time) *Jobs {
	j.now = now
	return j
}

// ExpireSubscriptions moves active subscriptions whose period ended into
// expired. Safe to re-run: already-expired rows are no longer candidates.
func (j *Jobs) ExpireSubscriptions(ctx context.Context) (int, error) {
	now := j.now().Unix()
	subs, err := j.subRepo.ListActiveExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired candidates: %w", err)
	}

	count := 0
	for i := range subs {
		sub := subs[i]
		expired, err := j.subService.Expire(ctx, sub.ID)
		if err != nil {
			j.logger.Error("failed to expire subscription", "subscription_id", sub.ID, "error", err)
			continue
		}
		if !expired {
			// Someone else got there first.
			continue
		}
		count++
		j.notifier.Dispatch(ctx, services.EventSubscriptionExpired, sub.UserID, map[string]interface{}{
			"subscription_id": sub.ID.String(),
		})
	}
	return count, nil
}

// NotifyExpiringSoon fires a notice for active subscriptions with exactly
// 7, 3 or 1 whole days remaining. Runs once per day.
func (j *Jobs) NotifyExpiringSoon(ctx context.Context) (int, error) {
	now := j.now().Unix()
	until := j.now().AddDate(0, 0, expiringSoonWindowDays).Unix()
	subs, err := j.subRepo.ListActiveExpiringWithin(ctx, now, until)
	if err != nil {
		return 0, fmt.Errorf("list expiring candidates: %w", err)
	}

	count := 0
	for i := range subs {
		sub := subs[i]
		daysLeft := utils.DaysUntil(now, sub.EndsAt)
		if !expiringNoticeDays[daysLeft] {
			continue
		}
		count++
		j.notifier.Dispatch(ctx, services.EventSubscriptionExpiringSoon, sub.UserID, map[string]interface{}{
			"subscription_id": sub.ID.String(),
			"days_left":       daysLeft,
			"ends_at":         sub.EndsAt,
		})
	}
	return count, nil
}

// ProcessAutoRenewals opens a renewal charge for auto-renewing subscriptions
// expiring within a day. The charge amount is the previously paid amount.
func (j *Jobs) ProcessAutoRenewals(ctx context.Context) (int, error) {
	cutoff := j.now().Add(renewalWindow).Unix()
	subs, err := j.subRepo.ListAutoRenewDueBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list renewal candidates: %w", err)
	}

	count := 0
	for i := range subs {
		sub := subs[i]
		txn, err := j.purchaseSvc.InitiateRenewal(ctx, &sub)
		if err != nil {
			j.logger.Error("renewal initiation failed", "subscription_id", sub.ID, "error", err)
			continue
		}
		if txn == nil {
			// Renewal already in flight.
			continue
		}
		count++
		j.logger.Info("renewal initiated", "subscription_id", sub.ID, "transaction_code", txn.Code, "amount", txn.AmountMinor)
	}
	return count, nil
}

// SweepStalePending fails pending transactions past their expiry window.
func (j *Jobs) SweepStalePending(ctx context.Context) (int, error) {
	now := j.now().Unix()
	txns, err := j.txnRepo.ListPendingExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list stale pending: %w", err)
	}

	count := 0
	for i := range txns {
		txn := txns[i]
		failed, err := j.txnService.MarkExpired(ctx, txn.ID)
		if err != nil {
			j.logger.Error("failed to expire transaction", "code", txn.Code, "error", err)
			continue
		}
		if !failed {
			continue
		}
		count++
		j.notifier.Dispatch(ctx, services.EventPaymentFailed, txn.UserID, map[string]interface{}{
			"transaction_code": txn.Code,
			"failure_reason":   "expired",
		})
	}
	return count, nil
}

// CleanupRetention hard-deletes settled transactions older than a year and
// cancelled subscriptions older than six months.
func (j *Jobs) CleanupRetention(ctx context.Context) (int, error) {
	now := j.now()

	txnCutoff := now.Add(-transactionRetention).Unix()
	purgedTxns, err := j.txnRepo.DeleteSettledBefore(ctx, txnCutoff)
	if err != nil {
		return 0, fmt.Errorf("purge transactions: %w", err)
	}

	subCutoff := now.Add(-subscriptionRetention).Unix()
	purgedSubs, err := j.subRepo.DeleteCancelledBefore(ctx, subCutoff)
	if err != nil {
		return int(purgedTxns), fmt.Errorf("purge subscriptions: %w", err)
	}

	return int(purgedTxns + purgedSubs), nil
}

// RunAll executes every job once and reports per-job counts. One failing job
// never blocks the others.
func (j *Jobs) RunAll(ctx context.Context) Report {
	var report Report

	run := func(name string, fn func(context.Context) (int, error)) int {
		defer func() {
			if r := recover(); r != nil {
				j.logger.Error("job panicked", "job", name, "panic", r)
				report.Errors = append(report.Errors, fmt.Sprintf("%s: panic: %v", name, r))
			}
		}()
		count, err := fn(ctx)
		if err != nil {
			j.logger.Error("job failed", "job", name, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
		}
		return count
	}

	report.ExpiredSubscriptions = run("expire_subscriptions", j.ExpireSubscriptions)
	report.ExpiringNotices = run("notify_expiring_soon", j.NotifyExpiringSoon)
	report.RenewalsInitiated = run("process_auto_renewals", j.ProcessAutoRenewals)
	report.StalePendingFailed = run("sweep_stale_pending", j.SweepStalePending)
	report.RecordsPurged = run("cleanup_retention", j.CleanupRetention)

	return report
}
