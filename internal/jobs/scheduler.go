package jobs

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/middleware"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron       *cron.Cron
	accountSvc portssvc.AccountSvcFacade
	logger     *slog.Logger
	schedule   string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(accountSvc portssvc.AccountSvcFacade, logger *slog.Logger, tierExpirySchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:       c,
		accountSvc: accountSvc,
		logger:     logger,
		schedule:   tierExpirySchedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runTierExpirySweep); err != nil {
		s.logger.Error("failed to schedule tier expiry sweep", "error", err)
	} else {
		s.logger.Info("scheduled tier expiry sweep", "schedule", s.schedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runTierExpirySweep() {
	jobLogger := s.logger.With(slog.String("job", "tier_expiry_sweep"))
	ctx := middleware.WithLogger(context.Background(), jobLogger)

	swept, err := s.accountSvc.ExpireTiers(ctx, time.Now())
	if err != nil {
		jobLogger.Error("tier expiry sweep failed", "error", err)
		return
	}
	jobLogger.Info("tier expiry sweep finished", slog.Int("accounts_downgraded", swept))
}
