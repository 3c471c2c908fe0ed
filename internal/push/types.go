// Package push implements the notification fan-out pipeline: resolving
// recipients, obtaining a bearer token for the FCM v1 API, building one
// message per recipient and dispatching them concurrently into a single
// delivery report.
package push

import "errors"

// Event is one notification record produced by the database trigger.
// It is immutable once received and consumed by exactly one dispatch cycle.
type Event struct {
	ID            string
	Title         string
	Body          string
	CreatedAt     string
	TargetUserIDs []string

	// Data carries the domain-specific fields that end up in the message
	// data payload. Values of any type are accepted; the builder
	// stringifies them because the FCM data channel only carries strings.
	Data map[string]any
}

// Recipient is a resolved delivery target. Only profiles with a non-empty
// FCM token are ever materialized as recipients.
type Recipient struct {
	ID    string
	Token string
	Name  string
}

// Message is the per-recipient FCM v1 message payload.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"-"`
	Body  string            `json:"-"`
	Data  map[string]string `json:"data,omitempty"`
}

// Outcome records the result of one send attempt.
type Outcome struct {
	RecipientID string
	Success     bool
	Error       string
}

// Report is the aggregated result of a dispatch cycle.
type Report struct {
	Total     int `json:"total"`
	Succeeded int `json:"sent_to"`
	Failed    int `json:"errors"`
}

// Aggregate reduces per-recipient outcomes into a delivery report.
// The reduction is commutative: outcome order never changes the totals.
func Aggregate(outcomes []Outcome) Report {
	r := Report{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return r
}

// LookupError marks a recipient store failure. On the webhook path it is
// fatal for the whole dispatch cycle.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string { return "recipient lookup failed: " + e.Err.Error() }

func (e *LookupError) Unwrap() error { return e.Err }

// AuthError marks a rejected credential exchange. Always fatal: without a
// bearer token no message can be sent.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "credential exchange failed: " + e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

// IsLookupError checks if an error is a recipient lookup failure.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// IsAuthError checks if an error is a credential exchange failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
