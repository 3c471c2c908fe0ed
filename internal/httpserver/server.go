// Package httpserver exposes the webhook and job trigger endpoints.
package httpserver

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/spideydev/fantavacanze-notifier/internal/alerting"
	"github.com/spideydev/fantavacanze-notifier/internal/monitoring"
	"github.com/spideydev/fantavacanze-notifier/internal/push"
	"github.com/spideydev/fantavacanze-notifier/internal/reminder"
	"github.com/spideydev/fantavacanze-notifier/internal/telemetry"
)

// serviceName identifies this service in traces.
const serviceName = "fantavacanze-notifier"

// Options wires handler dependencies.
type Options struct {
	Dispatch *push.Service
	Reminder *reminder.Service
	Metrics  *monitoring.Metrics
	Alerter  alerting.Alerter
	Logger   *logrus.Logger
	DB       *sql.DB
}

// New builds the gin engine with all routes and middleware registered.
func New(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(opts.Logger))

	h := &handlers{
		dispatch: opts.Dispatch,
		reminder: opts.Reminder,
		alerter:  opts.Alerter,
		logger:   opts.Logger,
		db:       opts.DB,
	}
	if h.alerter == nil {
		h.alerter = alerting.NopAlerter{}
	}

	router.GET("/health", h.health)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	router.POST("/hooks/challenge-notification", h.challengeNotification)
	router.POST("/jobs/daily-reminder", h.dailyReminder)

	return router
}

// corsMiddleware emits the headers the database webhook trigger expects and
// short-circuits preflight requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if c.Request.Method == "OPTIONS" {
			c.String(200, "ok")
			c.Abort()
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs each request and propagates a correlation ID.
func loggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = telemetry.NewCorrelationID()
		}
		c.Header("X-Correlation-ID", correlationID)
		c.Request = c.Request.WithContext(telemetry.WithCorrelationID(c.Request.Context(), correlationID))

		c.Next()

		logger.WithFields(logrus.Fields{
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"duration_ms":    time.Since(start).Milliseconds(),
			"correlation_id": correlationID,
		}).Info("request completed")
	}
}

func pingDB(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(pingCtx)
}
