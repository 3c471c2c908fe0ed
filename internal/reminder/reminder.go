// Package reminder implements the scheduled dispatch path: users who have
// not generated a daily challenge today get a login reminder push.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spideydev/fantavacanze-notifier/internal/monitoring"
	"github.com/spideydev/fantavacanze-notifier/internal/push"
)

// ActivitySource provides the candidate set and per-candidate activity
// lookups.
type ActivitySource interface {
	ListWithTokens(ctx context.Context) ([]push.Recipient, error)
	HasActivitySince(ctx context.Context, userID string, since time.Time) (bool, error)
}

// Config holds reminder settings.
type Config struct {
	// Location is the fixed reference timezone for the "today" boundary,
	// independent of server or recipient local time.
	Location *time.Location

	// Title of the reminder notification.
	Title string

	// BodyFormat is a format string with one %s verb for the recipient name.
	BodyFormat string
}

// Service runs the reminder cycle.
type Service struct {
	source     ActivitySource
	tokens     push.TokenSource
	dispatcher *push.Dispatcher
	config     Config
	logger     logrus.FieldLogger
	metrics    *monitoring.Metrics

	now func() time.Time
}

// NewService creates the reminder service. metrics may be nil.
func NewService(
	source ActivitySource,
	tokens push.TokenSource,
	dispatcher *push.Dispatcher,
	config Config,
	logger logrus.FieldLogger,
	metrics *monitoring.Metrics,
) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Service{
		source:     source,
		tokens:     tokens,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run executes one reminder cycle. Eligibility is fully determined for all
// candidates before any message is built: the report's totals depend on the
// complete eligible set. A failed per-candidate lookup skips that candidate
// only; a missed reminder is low-stakes.
func (s *Service) Run(ctx context.Context) (push.Report, error) {
	candidates, err := s.source.ListWithTokens(ctx)
	if err != nil {
		s.recordCycle("lookup_error")
		return push.Report{}, &push.LookupError{Err: err}
	}

	dayStart := startOfDay(s.now(), s.config.Location)
	s.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"day_start":  dayStart.Format(time.RFC3339),
	}).Info("checking reminder eligibility")

	var eligible []push.Recipient
	for _, c := range candidates {
		active, err := s.source.HasActivitySince(ctx, c.ID, dayStart)
		if err != nil {
			s.logger.WithField("user_id", c.ID).WithError(err).Warn("eligibility check failed, skipping candidate")
			continue
		}
		if !active {
			eligible = append(eligible, c)
		}
	}

	if s.metrics != nil {
		s.metrics.RecipientsResolved.Observe(float64(len(eligible)))
	}

	if len(eligible) == 0 {
		s.logger.Info("all users have challenges for today, no reminders to send")
		s.recordCycle("completed")
		return push.Report{}, nil
	}

	accessToken, err := s.tokens.Token(ctx)
	if err != nil {
		s.recordCycle("auth_error")
		return push.Report{}, &push.AuthError{Err: err}
	}

	sentAt := s.now().UTC().Format(time.RFC3339)
	targets := make([]push.Target, 0, len(eligible))
	for _, r := range eligible {
		name := r.Name
		if name == "" {
			name = "utente"
		}
		targets = append(targets, push.Target{
			Recipient: r,
			Message: push.Message{
				Token: r.Token,
				Title: s.config.Title,
				Body:  fmt.Sprintf(s.config.BodyFormat, name),
				Data: map[string]string{
					"type":       "login_reminder",
					"created_at": sentAt,
				},
			},
		})
	}

	outcomes := s.dispatcher.SendAll(ctx, accessToken, targets)
	report := push.Aggregate(outcomes)

	s.logger.WithFields(logrus.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	}).Info("reminder cycle completed")

	s.recordCycle("completed")
	return report, nil
}

func (s *Service) recordCycle(status string) {
	if s.metrics != nil {
		s.metrics.RecordCycle("reminder", status)
	}
}

// startOfDay converts the instant into the reference timezone and truncates
// to midnight. Activity stamped exactly at midnight counts as today.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
