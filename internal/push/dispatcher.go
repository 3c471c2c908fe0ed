package push

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spideydev/fantavacanze-notifier/internal/monitoring"
)

// Sender delivers a single message to the push gateway.
type Sender interface {
	Send(ctx context.Context, accessToken string, msg Message) SendResult
}

// Target pairs a recipient with the message built for it.
type Target struct {
	Recipient Recipient
	Message   Message
}

// Dispatcher fans a batch of messages out to the gateway, one concurrent
// request per recipient, and collects the per-recipient outcomes.
type Dispatcher struct {
	sender      Sender
	concurrency int
	timeout     time.Duration
	logger      logrus.FieldLogger
	metrics     *monitoring.Metrics
}

// NewDispatcher creates a dispatcher. concurrency caps in-flight requests so
// a large recipient set cannot overwhelm the gateway; timeout bounds each
// individual request. metrics may be nil.
func NewDispatcher(sender Sender, concurrency int, timeout time.Duration, logger logrus.FieldLogger, metrics *monitoring.Metrics) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		sender:      sender,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// SendAll issues one request per target and blocks until every request has
// resolved. A failed send only degrades that recipient's outcome; sibling
// requests are never cancelled. Each goroutine writes its own outcome slot,
// so no extra synchronization is needed on the result slice.
func (d *Dispatcher) SendAll(ctx context.Context, accessToken string, targets []Target) []Outcome {
	outcomes := make([]Outcome, len(targets))

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for i, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, t Target) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[slot] = d.sendOne(ctx, accessToken, t)
		}(i, target)
	}

	wg.Wait()
	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, accessToken string, t Target) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result := d.sender.Send(sendCtx, accessToken, t.Message)
	elapsed := time.Since(start)

	if d.metrics != nil {
		d.metrics.ObserveSend(elapsed, result.Success)
	}

	if !result.Success {
		d.logger.WithFields(logrus.Fields{
			"recipient_id": t.Recipient.ID,
			"duration_ms":  elapsed.Milliseconds(),
		}).WithError(result.Error).Warn("send failed")

		msg := "send failed"
		if result.Error != nil {
			msg = result.Error.Error()
		}
		return Outcome{RecipientID: t.Recipient.ID, Success: false, Error: msg}
	}

	d.logger.WithFields(logrus.Fields{
		"recipient_id": t.Recipient.ID,
		"duration_ms":  elapsed.Milliseconds(),
	}).Debug("send accepted")

	return Outcome{RecipientID: t.Recipient.ID, Success: true}
}
