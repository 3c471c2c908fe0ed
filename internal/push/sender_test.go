package push

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSendURL = "https://fcm.googleapis.com/v1/projects/test-project/messages:send"

func newTestSender(t *testing.T) *FCMSender {
	t.Helper()
	sender := NewFCMSender(FCMSenderConfig{ProjectID: "test-project"})
	httpmock.ActivateNonDefault(sender.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return sender
}

func TestFCMSender_Success(t *testing.T) {
	sender := newTestSender(t)

	var captured struct {
		Message struct {
			Token        string `json:"token"`
			Notification struct {
				Title string `json:"title"`
				Body  string `json:"body"`
			} `json:"notification"`
			Data map[string]string `json:"data"`
		} `json:"message"`
	}
	var authHeader string

	httpmock.RegisterResponder(http.MethodPost, testSendURL,
		func(req *http.Request) (*http.Response, error) {
			authHeader = req.Header.Get("Authorization")
			if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad body"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"name":"projects/test-project/messages/1"}`), nil
		})

	result := sender.Send(context.Background(), "access-token", Message{
		Token: "device-token",
		Title: "Title",
		Body:  "Body",
		Data:  map[string]string{"type": "daily_challenge"},
	})

	require.True(t, result.Success)
	assert.NoError(t, result.Error)
	assert.Equal(t, "Bearer access-token", authHeader)
	assert.Equal(t, "device-token", captured.Message.Token)
	assert.Equal(t, "Title", captured.Message.Notification.Title)
	assert.Equal(t, "Body", captured.Message.Notification.Body)
	assert.Equal(t, "daily_challenge", captured.Message.Data["type"])
}

func TestFCMSender_GatewayError(t *testing.T) {
	sender := newTestSender(t)

	httpmock.RegisterResponder(http.MethodPost, testSendURL,
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":{"status":"UNREGISTERED"}}`))

	result := sender.Send(context.Background(), "access-token", Message{Token: "stale-token"})

	require.False(t, result.Success)
	assert.ErrorContains(t, result.Error, "404")
	// Full device tokens never appear in errors.
	assert.NotContains(t, result.Error.Error(), "stale-token")
}

// A success status with an unparsable body is still a success: the gateway
// accepted the message.
func TestFCMSender_UnparsableBodyAfterSuccess(t *testing.T) {
	sender := newTestSender(t)

	httpmock.RegisterResponder(http.MethodPost, testSendURL,
		httpmock.NewStringResponder(http.StatusOK, `{not json`))

	result := sender.Send(context.Background(), "access-token", Message{Token: "device-token"})

	assert.True(t, result.Success)
	assert.NoError(t, result.Error)
}

func TestFCMSender_NetworkError(t *testing.T) {
	sender := newTestSender(t)

	httpmock.RegisterResponder(http.MethodPost, testSendURL,
		httpmock.NewErrorResponder(assert.AnError))

	result := sender.Send(context.Background(), "access-token", Message{Token: "device-token"})

	require.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "abcdefghij...", maskToken("abcdefghijklmnop"))
}
