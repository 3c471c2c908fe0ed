package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendResult is returned by the sender after one delivery attempt.
type SendResult struct {
	Success      bool
	Error        error
	ResponseData json.RawMessage
}

// FCMSenderConfig holds FCM sender configuration.
type FCMSenderConfig struct {
	// ProjectID is the Firebase project the messages are sent under.
	ProjectID string

	// Timeout for HTTP requests.
	Timeout time.Duration

	// BaseURL for the FCM API (optional, for testing).
	BaseURL string
}

// FCMSender sends individual messages through the FCM HTTP v1 API.
type FCMSender struct {
	projectID  string
	httpClient *http.Client
	apiBaseURL string
}

// NewFCMSender creates an FCM notification sender.
func NewFCMSender(config FCMSenderConfig) *FCMSender {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://fcm.googleapis.com"
	}

	return &FCMSender{
		projectID: config.ProjectID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiBaseURL: baseURL,
	}
}

// fcmEnvelope is the request body expected by messages:send.
type fcmEnvelope struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one message. Any 2xx status counts as success: the contract
// boundary with the gateway is delivery acceptance, not delivery
// confirmation, so a response body that fails to parse after a success
// status is still a success.
func (s *FCMSender) Send(ctx context.Context, accessToken string, msg Message) SendResult {
	envelope := fcmEnvelope{
		Message: fcmMessage{
			Token: msg.Token,
			Notification: fcmNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	bodyBytes, err := json.Marshal(envelope)
	if err != nil {
		return SendResult{
			Success: false,
			Error:   fmt.Errorf("failed to marshal message: %w", err),
		}
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.apiBaseURL, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return SendResult{
			Success: false,
			Error:   fmt.Errorf("failed to create request for token %s: %w", maskToken(msg.Token), err),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SendResult{
			Success: false,
			Error:   fmt.Errorf("request failed for token %s: %w", maskToken(msg.Token), err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{
			Success:      false,
			Error:        fmt.Errorf("fcm returned %d for token %s: %s", resp.StatusCode, maskToken(msg.Token), truncate(string(respBody), 256)),
			ResponseData: respBody,
		}
	}

	if readErr != nil {
		// Accepted by the gateway; losing the response body does not
		// change the outcome.
		return SendResult{Success: true}
	}

	return SendResult{
		Success:      true,
		ResponseData: respBody,
	}
}

// maskToken shortens a device token for safe logging.
func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:10] + "..."
}
