package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender fails exactly the tokens listed in failTokens and records how
// many requests were in flight at once.
type fakeSender struct {
	failTokens map[string]bool
	delay      time.Duration

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	calls    int
}

func (f *fakeSender) Send(ctx context.Context, accessToken string, msg Message) SendResult {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failTokens[msg.Token] {
		return SendResult{Success: false, Error: errors.New("gateway rejected token")}
	}
	return SendResult{Success: true}
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func makeTargets(n int) []Target {
	targets := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("user-%d", i)
		targets = append(targets, Target{
			Recipient: Recipient{ID: id, Token: "tok-" + id},
			Message:   Message{Token: "tok-" + id, Title: "t", Body: "b"},
		})
	}
	return targets
}

func TestDispatcher_AllSucceed(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, 4, time.Second, testLogger(), nil)

	outcomes := d.SendAll(context.Background(), "token", makeTargets(5))

	require.Len(t, outcomes, 5)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}
	assert.Equal(t, 5, sender.calls)
}

// One failing send must not alter any sibling outcome.
func TestDispatcher_FailureIsolation(t *testing.T) {
	targets := makeTargets(4)
	sender := &fakeSender{failTokens: map[string]bool{targets[1].Message.Token: true}}
	d := NewDispatcher(sender, 4, time.Second, testLogger(), nil)

	outcomes := d.SendAll(context.Background(), "token", targets)

	require.Len(t, outcomes, 4)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.True(t, outcomes[2].Success)
	assert.True(t, outcomes[3].Success)

	report := Aggregate(outcomes)
	assert.Equal(t, Report{Total: 4, Succeeded: 3, Failed: 1}, report)
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	sender := &fakeSender{delay: 20 * time.Millisecond}
	d := NewDispatcher(sender, 3, time.Second, testLogger(), nil)

	d.SendAll(context.Background(), "token", makeTargets(12))

	assert.LessOrEqual(t, sender.maxSeen, 3)
	assert.Equal(t, 12, sender.calls)
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, 4, time.Second, testLogger(), nil)

	outcomes := d.SendAll(context.Background(), "token", nil)

	assert.Empty(t, outcomes)
	assert.Equal(t, 0, sender.calls)
}

// slowCtxSender blocks until its per-send context is done.
type slowCtxSender struct {
	timedOut atomic.Int32
}

func (s *slowCtxSender) Send(ctx context.Context, accessToken string, msg Message) SendResult {
	<-ctx.Done()
	s.timedOut.Add(1)
	return SendResult{Success: false, Error: ctx.Err()}
}

func TestDispatcher_PerSendTimeout(t *testing.T) {
	sender := &slowCtxSender{}
	d := NewDispatcher(sender, 2, 10*time.Millisecond, testLogger(), nil)

	outcomes := d.SendAll(context.Background(), "token", makeTargets(2))

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, int32(2), sender.timedOut.Load())
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, Report{}, Aggregate(nil))

	outcomes := []Outcome{
		{RecipientID: "a", Success: true},
		{RecipientID: "b", Success: false},
		{RecipientID: "c", Success: true},
	}
	report := Aggregate(outcomes)

	assert.Equal(t, len(outcomes), report.Total)
	assert.Equal(t, report.Total, report.Succeeded+report.Failed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	// Order independence: same totals for any permutation.
	reversed := []Outcome{outcomes[2], outcomes[1], outcomes[0]}
	assert.Equal(t, report, Aggregate(reversed))
}
