package scheduler_fx

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"premia/internal/api/controllers"
	"premia/internal/repositories"
	"premia/internal/scheduler"
	"premia/internal/services"
)

var Module = fx.Options(
	fx.Provide(
		provideLogger,
		provideJobs,
		provideScheduler,
		provideSchedulerController,
	),
	fx.Invoke(runScheduler),
)

func provideLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func provideJobs(
	subRepo repositories.ISubscriptionRepository,
	txnRepo repositories.ITransactionRepository,
	subService services.SubscriptionServiceInterface,
	txnService services.TransactionServiceInterface,
	purchaseSvc services.PurchaseServiceInterface,
	notifier services.NotificationServiceInterface,
	logger *slog.Logger,
) *scheduler.Jobs {
	return scheduler.NewJobs(subRepo, txnRepo, subService, txnService, purchaseSvc, notifier, logger)
}

func provideScheduler(jobs *scheduler.Jobs, logger *slog.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(jobs, logger, scheduler.DefaultSchedules())
}

func provideSchedulerController(jobs *scheduler.Jobs, subRepo repositories.ISubscriptionRepository) *controllers.SchedulerController {
	return controllers.NewSchedulerController(jobs, subRepo)
}

func runScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := sched.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}
