package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/vitacare-orchestrator/internal/agent"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	"github.com/hackgods/vitacare-orchestrator/internal/reminder"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

// BookingService is the booking core as seen by HTTP handlers.
type BookingService interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*appointment.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*appointment.Booking, error)
	ListBookingsByPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Booking, error)
}

type SlotSuggester interface {
	SuggestSlots(ctx context.Context, query string, patientID uuid.UUID) (scheduling.Suggestion, error)
}

type ReminderRunner interface {
	RunCycle(ctx context.Context) (reminder.Summary, error)
	ClearCache(ctx context.Context) (int, error)
}

type ChatSession interface {
	Run(ctx context.Context, patientID, message string, history []agent.Message) agent.Response
}

type ToolDispatcher interface {
	Dispatch(ctx context.Context, call tools.Call) tools.Result
}

type RouterConfig struct {
	Bookings   BookingService
	Slots      SlotSuggester
	Reminders  ReminderRunner
	Chat       ChatSession
	Dispatcher ToolDispatcher
	Notifier   notify.Notifier
	Postgres   Pinger
	Redis      Pinger
	Metrics    http.Handler
	Location   *time.Location
	Logger     *logging.Logger
	Env        string
	Version    string
}

// RedisPinger adapts a go-redis client to Pinger.
func RedisPinger(client *redis.Client) Pinger {
	if client == nil {
		return nil
	}
	return PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	h := &handlers{cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.chat)

		r.Route("/agents", func(r chi.Router) {
			r.Post("/schedule/suggest", h.suggestSlots)
			r.Post("/booking/create", h.createBooking)
			r.Post("/booking/cancel", h.cancelBooking)
			r.Post("/reminders/run", h.runReminders)
			r.Post("/reminders/clear-cache", h.clearReminderCache)
			r.Post("/notification/send", h.sendNotification)
		})

		r.Get("/bookings/{id}", h.getBooking)
		r.Get("/patients/{id}/bookings", h.listPatientBookings)
		r.Post("/tools/{name}", h.invokeTool)
	})

	return r
}
