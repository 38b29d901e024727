package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/vitacare-orchestrator/internal/config"
	"github.com/hackgods/vitacare-orchestrator/internal/db"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	redisclient "github.com/hackgods/vitacare-orchestrator/internal/redis"
	"github.com/hackgods/vitacare-orchestrator/internal/reminder"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

// appointmentWindow is how far ahead appointment reminders look.
const appointmentWindow = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("reminder-worker starting up", "env", cfg.Env, "interval", cfg.ReminderInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		PingTimeout: cfg.StoreTimeout,
		AppName:     "vitacare-reminder-worker",
	})
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	gateway, err := notify.NewHTTPNotifier(notify.HTTPConfig{
		BaseURL: cfg.NotificationAPIURL,
		Timeout: cfg.NotifyTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("notifier setup error", "error", err)
		os.Exit(1)
	}
	notifier := notify.Router{Default: gateway}
	if email := notify.NewEmailNotifier(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); email != nil {
		notifier.Email = email
	}

	loc := cfg.Location()
	source := reminder.NewPgSource(pgPool)
	cycle := reminder.NewCycle(source, redisclient.NewReminderMarkers(rdb, cfg.ReminderMarkerTTL), notifier, reminder.Config{
		Location:      loc,
		StoreTimeout:  cfg.StoreTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
		Logger:        logger,
		Lock:          redisclient.NewRedisLocker(rdb, cfg.ReminderLockTTL),
	})

	w := &worker{cycle: cycle, source: source, loc: loc, logger: logger}
	w.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			w.runOnce(rootCtx)
		}
	}
}

type worker struct {
	cycle  *reminder.Cycle
	source reminder.AppointmentSource
	loc    *time.Location
	logger *logging.Logger
	day    string
}

func (w *worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// Markers are keyed by date, so yesterday's can go once the day rolls.
	today := time.Now().In(w.loc).Format("2006-01-02")
	if w.day != "" && w.day != today {
		if n, err := w.cycle.ClearCache(runCtx); err != nil {
			w.logger.Warn("daily marker reset failed", "error", err)
		} else {
			w.logger.Info("daily marker reset", "cleared", n)
		}
	}
	w.day = today

	start := time.Now()
	sum, err := w.cycle.RunCycle(runCtx)
	switch {
	case errors.Is(err, reminder.ErrCycleRunning):
		w.logger.Warn("medication cycle skipped, another run still active")
	case err != nil:
		w.logger.Error("medication cycle error", "error", err)
	default:
		w.logger.Info("medication cycle complete",
			"slot", sum.Bucket, "sent", sum.Sent, "failed", sum.Failed, "skipped", sum.Skipped,
			"duration", time.Since(start))
	}

	appt, err := w.cycle.RemindAppointments(runCtx, w.source, appointmentWindow)
	switch {
	case errors.Is(err, reminder.ErrCycleRunning):
		w.logger.Warn("appointment reminders skipped, another run still active")
		return
	case err != nil:
		w.logger.Error("appointment reminders error", "error", err)
		return
	}
	w.logger.Info("appointment reminders complete", "sent", appt.Sent, "failed", appt.Failed, "skipped", appt.Skipped)
}
