package httpserver

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spideydev/fantavacanze-notifier/internal/alerting"
	"github.com/spideydev/fantavacanze-notifier/internal/push"
	"github.com/spideydev/fantavacanze-notifier/internal/reminder"
	"github.com/spideydev/fantavacanze-notifier/internal/sentry"
	"github.com/spideydev/fantavacanze-notifier/internal/telemetry"
)

type handlers struct {
	dispatch *push.Service
	reminder *reminder.Service
	alerter  alerting.Alerter
	logger   *logrus.Logger
	db       *sql.DB
}

// webhookPayload is the body posted by the database trigger on INSERT into
// the notifications table.
type webhookPayload struct {
	Type   string              `json:"type"`
	Table  string              `json:"table"`
	Schema string              `json:"schema"`
	Record *notificationRecord `json:"record"`
}

type notificationRecord struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	CreatedAt       string           `json:"created_at"`
	UserID          string           `json:"user_id"`
	LeagueID        string           `json:"league_id"`
	ChallengeID     string           `json:"challenge_id"`
	ChallengeName   string           `json:"challenge_name"`
	ChallengePoints json.Number      `json:"challenge_points"`
	TargetUserIDs   lenientStringSet `json:"target_user_ids"`
}

// lenientStringSet decodes a JSON array of strings. Anything else (absent,
// null, a non-array, mixed element types) degrades to the empty set instead
// of failing the whole payload.
type lenientStringSet []string

func (l *lenientStringSet) UnmarshalJSON(data []byte) error {
	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil {
		*l = strs
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err == nil {
		var strs []string
		for _, v := range raw {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		*l = strs
		return nil
	}

	*l = nil
	return nil
}

// challengeNotification handles the webhook path. A completed dispatch cycle
// returns 200 even when some individual sends failed; only malformed input
// (400) and fatal lookup/auth failures (500) differ.
func (h *handlers) challengeNotification(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON in request body"})
		return
	}

	if payload.Record == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no notification record in request"})
		return
	}

	record := payload.Record
	event := push.Event{
		ID:            record.ID,
		Title:         record.Title,
		Body:          record.Message,
		CreatedAt:     record.CreatedAt,
		TargetUserIDs: record.TargetUserIDs,
		Data: map[string]any{
			"challenge_id":     record.ChallengeID,
			"challenge_name":   record.ChallengeName,
			"challenge_points": record.ChallengePoints.String(),
			"league_id":        record.LeagueID,
			"user_id":          record.UserID,
		},
	}

	ctx := c.Request.Context()
	report, err := h.dispatch.DispatchEvent(ctx, event)
	if err != nil {
		h.fatal(c, "webhook", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent_to": report.Succeeded,
		"errors":  report.Failed,
	})
}

// dailyReminder triggers the scheduled path manually. The cron scheduler
// calls the same service.
func (h *handlers) dailyReminder(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.reminder.Run(ctx)
	if err != nil {
		h.fatal(c, "reminder", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent_to": report.Succeeded,
		"errors":  report.Failed,
	})
}

func (h *handlers) health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if h.db != nil {
		if err := pingDB(c.Request.Context(), h.db); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status})
}

// fatal maps a cycle-aborting error to a 500 response and reports it.
func (h *handlers) fatal(c *gin.Context, trigger string, err error) {
	telemetry.LogFromContext(c.Request.Context(), h.logger).
		WithField("trigger", trigger).
		WithError(err).
		Error("dispatch cycle failed")

	sentry.CaptureError(err, map[string]string{"trigger": trigger}, nil)
	h.alerter.Alert(c.Request.Context(), fmt.Sprintf("notifier: %s dispatch failed: %v", trigger, err))

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
