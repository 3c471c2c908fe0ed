package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/spideydev/fantavacanze-notifier/internal/alerting"
	"github.com/spideydev/fantavacanze-notifier/internal/config"
	"github.com/spideydev/fantavacanze-notifier/internal/httpserver"
	"github.com/spideydev/fantavacanze-notifier/internal/monitoring"
	"github.com/spideydev/fantavacanze-notifier/internal/push"
	"github.com/spideydev/fantavacanze-notifier/internal/reminder"
	"github.com/spideydev/fantavacanze-notifier/internal/scheduler"
	sentrypkg "github.com/spideydev/fantavacanze-notifier/internal/sentry"
	"github.com/spideydev/fantavacanze-notifier/internal/store"
	"github.com/spideydev/fantavacanze-notifier/internal/telemetry"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logFormat := "json"
	if cfg.IsDevelopment() {
		logFormat = "text"
	}
	logger, err := telemetry.NewLogger(&telemetry.LogConfig{
		Level:  cfg.LogLevel,
		Format: logFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	// Initialize Sentry (graceful degradation if disabled or DSN not set)
	if err := sentrypkg.Init(cfg); err != nil {
		logger.WithError(err).Warn("sentry initialization failed")
	} else if cfg.EnableSentry {
		logger.WithField("environment", cfg.SentryEnvironment).Info("sentry initialized")
	}
	defer sentrypkg.Flush(2 * time.Second)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	otelProvider, err := telemetry.NewProvider(&telemetry.OTelConfig{
		ServiceName:    "fantavacanze-notifier",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		logger.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("telemetry shutdown failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := telemetry.InstrumentDatabase("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to open db: %v", err)
	}

	// Configure connection pool for production use
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("failed to close db")
		}
	}()

	// Wait for DB with retry
	maxRetries := 30
	for i := 0; i < maxRetries; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("database connection established")
			break
		}
		if i == maxRetries-1 {
			logger.Fatalf("failed to connect to database after %d retries", maxRetries)
		}
		logger.Infof("waiting for database... (%d/%d)", i+1, maxRetries)
		time.Sleep(1 * time.Second)
	}

	metrics, err := monitoring.NewMetrics(nil)
	if err != nil {
		logger.Fatalf("failed to create metrics: %v", err)
	}

	privateKey, err := cfg.PrivateKeyPEM()
	if err != nil {
		logger.Fatalf("failed to load service account key: %v", err)
	}

	tokens, err := push.NewGoogleTokenSource(push.GoogleTokenSourceConfig{
		ClientEmail:   cfg.ServiceAccountEmail,
		PrivateKeyPEM: privateKey,
		TokenURL:      cfg.TokenEndpoint,
	})
	if err != nil {
		logger.Fatalf("failed to create token source: %v", err)
	}

	sender := push.NewFCMSender(push.FCMSenderConfig{
		ProjectID: cfg.FCMProjectID,
		Timeout:   cfg.SendTimeout,
		BaseURL:   cfg.FCMEndpoint,
	})
	dispatcher := push.NewDispatcher(sender, cfg.SendConcurrency, cfg.SendTimeout, logger, metrics)

	profiles := store.New(db)
	builder := push.NewBuilder(cfg.DefaultTitle, cfg.DefaultBody)
	dispatchSvc := push.NewService(profiles, tokens, builder, dispatcher, logger, metrics)

	loc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		logger.Fatalf("invalid reminder timezone %q: %v", cfg.ReminderTimezone, err)
	}
	reminderSvc := reminder.NewService(profiles, tokens, dispatcher, reminder.Config{
		Location:   loc,
		Title:      cfg.ReminderTitle,
		BodyFormat: cfg.ReminderBodyFormat,
	}, logger, metrics)

	// Redis is optional: without it the dedup guard and the cron trigger are
	// disabled, but webhook dispatch keeps working.
	var sched *scheduler.Scheduler
	if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logger.WithError(err).Warn("invalid redis url, dedup guard and scheduler disabled")
	} else {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, dedup guard and scheduler disabled")
		} else {
			logger.Info("redis connection established")
			dispatchSvc.SetDedupeGuard(push.NewRedisGuard(client, 24*time.Hour))

			sched, err = scheduler.New(cfg.RedisURL, cfg.ReminderCron, reminderSvc, logger)
			if err != nil {
				logger.WithError(err).Warn("failed to create reminder scheduler")
				sched = nil
			}
		}
	}

	var alerter alerting.Alerter = alerting.NopAlerter{}
	if cfg.TelegramBotToken != "" && cfg.TelegramOpsChatID != "" {
		tg, err := alerting.NewTelegramAlerter(cfg.TelegramBotToken, cfg.TelegramOpsChatID, logger)
		if err != nil {
			logger.WithError(err).Warn("telegram alerter disabled")
		} else {
			alerter = tg
			logger.Info("telegram operator alerts enabled")
		}
	}

	router := httpserver.New(httpserver.Options{
		Dispatch: dispatchSvc,
		Reminder: reminderSvc,
		Metrics:  metrics,
		Alerter:  alerter,
		Logger:   logger,
		DB:       db,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("http listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		if err := sched.Start(); err != nil {
			logger.WithError(err).Warn("reminder scheduler failed to start")
		} else {
			group.Go(func() error {
				<-groupCtx.Done()
				sched.Shutdown()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("service exited with error")
	}
	logger.Info("shutdown complete")
}
