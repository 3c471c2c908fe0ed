// Package scheduler provides the cron trigger for the daily reminder cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/spideydev/fantavacanze-notifier/internal/reminder"
	"github.com/spideydev/fantavacanze-notifier/internal/sentry"
)

// Task type identifiers
const (
	TypeDailyReminder = "notification:daily_reminder"
)

// Scheduler manages periodic job scheduling and execution using asynq.
type Scheduler struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
}

// New creates a scheduler that enqueues and processes the daily reminder
// task on the given cron schedule.
func New(redisURL, reminderCron string, reminderSvc *reminder.Service, logger *logrus.Logger) (*Scheduler, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, nil)

	_, err = scheduler.Register(reminderCron, asynq.NewTask(TypeDailyReminder, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to register reminder job: %w", err)
	}
	logger.WithField("schedule", reminderCron).Info("registered daily reminder job")

	server := asynq.NewServer(redisOpt, asynq.Config{
		// One reminder cycle at a time; the cycle itself fans out
		// internally.
		Concurrency: 1,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDailyReminder, newReminderHandler(reminderSvc, logger))

	return &Scheduler{
		scheduler: scheduler,
		server:    server,
		mux:       mux,
	}, nil
}

// newReminderHandler runs one reminder cycle per task. Each invocation is a
// single best-effort burst: a failed cycle is reported but never re-queued.
func newReminderHandler(svc *reminder.Service, logger *logrus.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		logger.Info("daily reminder job started")

		report, err := svc.Run(ctx)
		if err != nil {
			logger.WithError(err).Error("daily reminder job failed")
			sentry.CaptureError(err, map[string]string{"trigger": "reminder"}, nil)
			return nil
		}

		logger.WithFields(logrus.Fields{
			"total":     report.Total,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
			"duration":  time.Since(start).String(),
		}).Info("daily reminder job completed")
		return nil
	}
}

// Start launches the scheduler and the task server.
func (s *Scheduler) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		s.server.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the scheduler and the task server.
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
