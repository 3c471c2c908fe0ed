// Package config loads runtime settings for the notifier service from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings loaded from env vars.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string
	Environment string
	LogLevel    string

	// Push gateway settings.
	FCMProjectID  string
	FCMEndpoint   string
	TokenEndpoint string

	// Service account used for the OAuth token exchange.
	ServiceAccountEmail   string
	ServiceAccountKey     string
	ServiceAccountKeyFile string

	// Fallback strings for events with missing title/body.
	DefaultTitle string
	DefaultBody  string

	// Daily reminder settings.
	ReminderTimezone   string
	ReminderCron       string
	ReminderTitle      string
	ReminderBodyFormat string

	// Dispatch tuning.
	SendTimeout     time.Duration
	SendConcurrency int

	// Error tracking.
	EnableSentry      bool
	SentryDSN         string
	SentryEnvironment string

	// Telemetry.
	OTelEnabled  bool
	OTLPEndpoint string

	// Optional operator alerts.
	TelegramBotToken  string
	TelegramOpsChatID string
}

// Load loads configuration from environment variables.
// Required variables: DATABASE_URL, FCM_PROJECT_ID, FCM_CLIENT_EMAIL and one
// of FCM_PRIVATE_KEY / FCM_PRIVATE_KEY_FILE.
func Load() Config {
	return Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DatabaseURL: envRequired("DATABASE_URL"),
		RedisURL:    envOr("REDIS_URL", "redis://localhost:6379/0"),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		FCMProjectID:  envRequired("FCM_PROJECT_ID"),
		FCMEndpoint:   envOr("FCM_ENDPOINT", "https://fcm.googleapis.com"),
		TokenEndpoint: envOr("OAUTH_TOKEN_ENDPOINT", "https://oauth2.googleapis.com/token"),

		ServiceAccountEmail:   envRequired("FCM_CLIENT_EMAIL"),
		ServiceAccountKey:     os.Getenv("FCM_PRIVATE_KEY"),
		ServiceAccountKeyFile: os.Getenv("FCM_PRIVATE_KEY_FILE"),

		DefaultTitle: envOr("DEFAULT_NOTIFICATION_TITLE", "Nuova sfida completata"),
		DefaultBody:  envOr("DEFAULT_NOTIFICATION_BODY", "Un utente ha completato una sfida giornaliera"),

		ReminderTimezone:   envOr("REMINDER_TIMEZONE", "Europe/Rome"),
		ReminderCron:       envOr("REMINDER_CRON", "0 10 * * *"),
		ReminderTitle:      envOr("REMINDER_TITLE", "Obiettivi Giornalieri"),
		ReminderBodyFormat: envOr("REMINDER_BODY_FORMAT", "Hey %s, i tuoi obiettivi giornalieri ti aspettano!!"),

		SendTimeout:     envDurationOr("SEND_TIMEOUT_SECONDS", 30*time.Second),
		SendConcurrency: envIntOr("SEND_CONCURRENCY", 8),

		EnableSentry:      envOr("ENABLE_SENTRY", "false") == "true",
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: envOr("SENTRY_ENVIRONMENT", envOr("ENVIRONMENT", "development")),

		OTelEnabled:  envOr("OTEL_ENABLED", "false") == "true",
		OTLPEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),

		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramOpsChatID: os.Getenv("TELEGRAM_OPS_CHAT_ID"),
	}
}

// Validate checks that all required configuration is present and valid.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.FCMProjectID == "" {
		return fmt.Errorf("FCM_PROJECT_ID is required")
	}
	if c.ServiceAccountEmail == "" {
		return fmt.Errorf("FCM_CLIENT_EMAIL is required")
	}
	if c.ServiceAccountKey == "" && c.ServiceAccountKeyFile == "" {
		return fmt.Errorf("one of FCM_PRIVATE_KEY or FCM_PRIVATE_KEY_FILE is required")
	}
	if c.SendConcurrency < 1 {
		return fmt.Errorf("SEND_CONCURRENCY must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// PrivateKeyPEM returns the service account private key, reading it from
// FCM_PRIVATE_KEY_FILE when the inline value is not set.
func (c Config) PrivateKeyPEM() ([]byte, error) {
	if c.ServiceAccountKey != "" {
		return []byte(c.ServiceAccountKey), nil
	}
	if c.ServiceAccountKeyFile == "" {
		return nil, fmt.Errorf("no service account key configured")
	}
	pem, err := os.ReadFile(c.ServiceAccountKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return pem, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		// In development, allow empty but warn
		fmt.Printf("WARNING: %s is not set. This is required in production.\n", key)
	}
	return value
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
