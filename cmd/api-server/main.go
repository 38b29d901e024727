package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/vitacare-orchestrator/internal/agent"
	"github.com/hackgods/vitacare-orchestrator/internal/api"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/config"
	"github.com/hackgods/vitacare-orchestrator/internal/db"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	"github.com/hackgods/vitacare-orchestrator/internal/observability/metrics"
	redisclient "github.com/hackgods/vitacare-orchestrator/internal/redis"
	"github.com/hackgods/vitacare-orchestrator/internal/reminder"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		PingTimeout: cfg.StoreTimeout,
		AppName:     "vitacare-api",
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		logger.Error("notifier setup error", "error", err)
		os.Exit(1)
	}

	loc := cfg.Location()
	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, redisclient.NewRedisLocker(rdb, cfg.LockTTL), notifier, logger,
		appointment.WithMetrics(m),
		appointment.WithNotifyTimeout(cfg.NotifyTimeout),
		appointment.WithStoreTimeout(cfg.StoreTimeout),
	)
	resolver := scheduling.NewResolver(repo, scheduling.ResolverConfig{
		Location:     loc,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})
	cycle := reminder.NewCycle(
		reminder.NewPgSource(pgPool),
		redisclient.NewReminderMarkers(rdb, cfg.ReminderMarkerTTL),
		notifier,
		reminder.Config{
			Location:      loc,
			StoreTimeout:  cfg.StoreTimeout,
			NotifyTimeout: cfg.NotifyTimeout,
			Logger:        logger,
			Metrics:       m,
			Lock:          redisclient.NewRedisLocker(rdb, cfg.ReminderLockTTL),
		},
	)

	registry := tools.NewCareRegistry(tools.Backend{
		Bookings:     svc,
		Slots:        resolver,
		Location:     loc,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})
	dispatcher := tools.NewDispatcher(registry, tools.DispatcherConfig{
		Timeout: cfg.ToolTimeout,
		Logger:  logger,
		Metrics: m,
	})

	var planner agent.Planner = agent.EchoPlanner{}
	if cfg.GeminiAPIKey != "" {
		gp, err := agent.NewGeminiPlanner(rootCtx, cfg.GeminiAPIKey, cfg.GeminiModel, registry.Specs())
		if err != nil {
			logger.Error("gemini planner setup error", "error", err)
			os.Exit(1)
		}
		defer gp.Close()
		planner = gp
		logger.Info("gemini planner enabled", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat runs with the echo planner")
	}
	session := agent.NewSession(planner, dispatcher, agent.SessionConfig{
		MaxToolCalls:   cfg.MaxToolCalls,
		PlannerTimeout: cfg.PlannerTimeout,
		Logger:         logger,
		Metrics:        m,
	})

	router := api.NewRouter(api.RouterConfig{
		Bookings:   svc,
		Slots:      resolver,
		Reminders:  cycle,
		Chat:       session,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Postgres:   pgPool,
		Redis:      api.RedisPinger(rdb),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Location:   loc,
		Logger:     logger,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.PlannerTimeout*time.Duration(cfg.MaxToolCalls+1) + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Drain confirmations and audit writes still in flight.
	svc.Wait()
	registry.Wait()

	logger.Info("api-server stopped")
}

func buildNotifier(cfg config.Config, logger *logging.Logger) (notify.Notifier, error) {
	gateway, err := notify.NewHTTPNotifier(notify.HTTPConfig{
		BaseURL: cfg.NotificationAPIURL,
		Timeout: cfg.NotifyTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	router := notify.Router{Default: gateway}
	// A nil *EmailNotifier must not land in the interface.
	if email := notify.NewEmailNotifier(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); email != nil {
		router.Email = email
		logger.Info("sendgrid email notifications enabled")
	}
	return router, nil
}
