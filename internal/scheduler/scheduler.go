package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Schedules holds cron expressions for the five jobs.
type Schedules struct {
	ExpireSubscriptions string // hourly
	NotifyExpiringSoon  string // daily, fixed hour
	ProcessAutoRenewals string // daily, fixed hour
	SweepStalePending   string // every 30 minutes
	CleanupRetention    string // weekly
}

func DefaultSchedules() Schedules {
	return Schedules{
		ExpireSubscriptions: "0 * * * *",
		NotifyExpiringSoon:  "0 9 * * *",
		ProcessAutoRenewals: "0 2 * * *",
		SweepStalePending:   "*/30 * * * *",
		CleanupRetention:    "0 4 * * 0",
	}
}

// Scheduler wires the jobs onto cron cadences.
type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	logger    *slog.Logger
	schedules Schedules
}

func NewScheduler(jobs *Jobs, logger *slog.Logger, schedules Schedules) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:      c,
		jobs:      jobs,
		logger:    logger,
		schedules: schedules,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	s.add("expire_subscriptions", s.schedules.ExpireSubscriptions, s.jobs.ExpireSubscriptions)
	s.add("notify_expiring_soon", s.schedules.NotifyExpiringSoon, s.jobs.NotifyExpiringSoon)
	s.add("process_auto_renewals", s.schedules.ProcessAutoRenewals, s.jobs.ProcessAutoRenewals)
	s.add("sweep_stale_pending", s.schedules.SweepStalePending, s.jobs.SweepStalePending)
	s.add("cleanup_retention", s.schedules.CleanupRetention, s.jobs.CleanupRetention)

	s.cron.Start()
}

func (s *Scheduler) add(name, spec string, fn func(context.Context) (int, error)) {
	_, err := s.cron.AddFunc(spec, func() {
		count, err := fn(context.Background())
		if err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("job finished", "job", name, "count", count)
	})
	if err != nil {
		s.logger.Error("failed to schedule job", "job", name, "spec", spec, "error", err)
		return
	}
	s.logger.Info("scheduled job", "job", name, "spec", spec)
}

// Stop gracefully stops the cron loop; the returned context is done once
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
