package push

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/spideydev/fantavacanze-notifier/internal/monitoring"
)

// RecipientResolver turns a set of profile IDs into dispatchable recipients.
type RecipientResolver interface {
	Resolve(ctx context.Context, ids []string) ([]Recipient, error)
}

// Service runs the webhook-triggered dispatch cycle: resolve recipients,
// obtain a bearer token, build one message per recipient, fan out and
// aggregate the outcomes.
type Service struct {
	resolver   RecipientResolver
	tokens     TokenSource
	builder    *Builder
	dispatcher *Dispatcher
	guard      DedupeGuard
	logger     logrus.FieldLogger
	metrics    *monitoring.Metrics
}

// NewService creates the dispatch service. metrics may be nil.
func NewService(
	resolver RecipientResolver,
	tokens TokenSource,
	builder *Builder,
	dispatcher *Dispatcher,
	logger logrus.FieldLogger,
	metrics *monitoring.Metrics,
) *Service {
	return &Service{
		resolver:   resolver,
		tokens:     tokens,
		builder:    builder,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// SetDedupeGuard enables duplicate-delivery suppression. Without a guard
// every webhook delivery runs a full cycle.
func (s *Service) SetDedupeGuard(g DedupeGuard) {
	s.guard = g
}

// DispatchEvent runs one dispatch cycle for the event. Failures in shared
// prerequisites (recipient lookup, token exchange) abort the cycle before
// any send and surface as LookupError or AuthError; per-recipient send
// failures only degrade the report.
func (s *Service) DispatchEvent(ctx context.Context, event Event) (Report, error) {
	log := s.logger.WithField("event_id", event.ID)

	if s.guard != nil && event.ID != "" {
		first, err := s.guard.FirstDelivery(ctx, event.ID)
		if err != nil {
			// The guard is best effort; a broken marker store must not
			// block delivery.
			log.WithError(err).Warn("dedupe guard unavailable, dispatching anyway")
		} else if !first {
			log.Info("duplicate webhook delivery, skipping dispatch")
			s.recordCycle("skipped_duplicate")
			return Report{}, nil
		}
	}

	recipients, err := s.resolver.Resolve(ctx, event.TargetUserIDs)
	if err != nil {
		s.recordCycle("lookup_error")
		return Report{}, &LookupError{Err: err}
	}

	if s.metrics != nil {
		s.metrics.RecipientsResolved.Observe(float64(len(recipients)))
	}

	if len(recipients) == 0 {
		log.Info("no recipients with FCM tokens, nothing to send")
		s.recordCycle("completed")
		return Report{}, nil
	}

	accessToken, err := s.tokens.Token(ctx)
	if err != nil {
		s.recordCycle("auth_error")
		return Report{}, &AuthError{Err: err}
	}

	targets := make([]Target, 0, len(recipients))
	for _, r := range recipients {
		targets = append(targets, Target{
			Recipient: r,
			Message:   s.builder.Build(event, r),
		})
	}

	outcomes := s.dispatcher.SendAll(ctx, accessToken, targets)
	report := Aggregate(outcomes)

	log.WithFields(logrus.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	}).Info("dispatch cycle completed")

	s.recordCycle("completed")
	return report, nil
}

func (s *Service) recordCycle(status string) {
	if s.metrics != nil {
		s.metrics.RecordCycle("webhook", status)
	}
}
