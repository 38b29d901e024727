package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vitacare-orchestrator/internal/agent"
	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	redisclient "github.com/hackgods/vitacare-orchestrator/internal/redis"
	"github.com/hackgods/vitacare-orchestrator/internal/reminder"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

type fakeReminders struct {
	mu      sync.Mutex
	summary reminder.Summary
	err     error
	cleared int
}

func (f *fakeReminders) RunCycle(context.Context) (reminder.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, f.err
}

func (f *fakeReminders) ClearCache(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return 2, nil
}

func (f *fakeReminders) set(summary reminder.Summary, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summary, f.err = summary, err
}

type fixture struct {
	server    *httptest.Server
	repo      *appointment.MemoryRepository
	reminders *fakeReminders

	mu   sync.Mutex
	sent []string
	patient   appointment.Patient
	doctor    appointment.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		repo:      appointment.NewMemoryRepository(),
		reminders: &fakeReminders{},
		patient:   appointment.Patient{ID: uuid.New(), Name: "Asha", Phone: "+15550100"},
	}
	f.doctor = appointment.Doctor{ID: uuid.New(), Name: "Mehta", PatientID: f.patient.ID}
	f.repo.AddPatient(f.patient)
	f.repo.AddDoctor(f.doctor)

	logger := logging.Discard()
	svc := appointment.NewService(f.repo, redisclient.NewRedisLocker(client, 5*time.Second), nil, logger)
	t.Cleanup(svc.Wait)
	resolver := scheduling.NewResolver(f.repo, scheduling.ResolverConfig{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC) },
		Logger:   logger,
	})
	dispatcher := tools.NewDispatcher(tools.NewCareRegistry(tools.Backend{
		Bookings: svc,
		Slots:    resolver,
		Location: time.UTC,
		Logger:   logger,
	}), tools.DispatcherConfig{Logger: logger})

	f.server = httptest.NewServer(NewRouter(RouterConfig{
		Bookings:   svc,
		Slots:      resolver,
		Reminders:  f.reminders,
		Chat:       agent.NewSession(agent.EchoPlanner{}, dispatcher, agent.SessionConfig{Logger: logger}),
		Dispatcher: dispatcher,
		Notifier: notify.NotifierFunc(func(_ context.Context, contact, message string) error {
			if contact == "down" {
				return apperr.New(apperr.Unavailable, "gateway down")
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, contact+"|"+message)
			return nil
		}),
		Postgres: PingerFunc(func(context.Context) error { return nil }),
		Redis:    RedisPinger(client),
		Location: time.UTC,
		Logger:   logger,
		Env:      "test",
		Version:  "v0.0.1",
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(f.server.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ready ReadinessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, ready.Dependencies)
}

func TestReadinessReportsPostgresDown(t *testing.T) {
	h := NewHealthHandler(PingerFunc(func(context.Context) error { return errors.New("refused") }), nil, "", "")
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)
}

func TestReadinessFailsWhenRedisDown(t *testing.T) {
	up := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })
	h := NewHealthHandler(up, down, "test", "v1")

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var ready ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ready))
	assert.Equal(t, "error", ready.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "down"}, ready.Dependencies)
}

func TestSuggestThenBookThenCancel(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/api/agents/schedule/suggest", SuggestRequest{UserInput: "tomorrow", PatientID: f.patient.ID.String()})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Found 3 available slots", body["message"])
	slots := body["slots"].([]any)
	first := slots[0].(map[string]any)
	assert.Equal(t, "2026-10-15T09:00:00", first["datetime"])

	status, body = f.post(t, "/api/agents/booking/create", CreateBookingRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentTime: "2026-10-15T09:00:00",
	})
	require.Equal(t, http.StatusCreated, status)
	booking := body["booking"].(map[string]any)
	assert.Equal(t, "confirmed", booking["status"])
	assert.Equal(t, "2026-10-15T09:00:00", booking["appointment_time"])

	status, body = f.post(t, "/api/agents/booking/create", CreateBookingRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentTime: "2026-10-15T09:00:00",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body["error"])

	status, body = f.post(t, "/api/agents/booking/cancel", CancelBookingRequest{ScheduleID: booking["schedule_id"].(string)})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Appointment cancelled successfully", body["message"])

	status, _ = f.post(t, "/api/agents/booking/cancel", CancelBookingRequest{ScheduleID: booking["schedule_id"].(string)})
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Get(f.server.URL + "/api/patients/" + f.patient.ID.String() + "/bookings")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []BookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/api/agents/booking/create", CreateBookingRequest{PatientID: "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_patient_id", body["error"])

	status, body = f.post(t, "/api/agents/booking/create", CreateBookingRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentTime: "next tuesday",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_appointment_time", body["error"])

	status, _ = f.post(t, "/api/agents/booking/create", CreateBookingRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        uuid.NewString(),
		AppointmentTime: "2026-10-15T09:00:00",
	})
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Post(f.server.URL+"/api/agents/booking/create", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestWithoutDoctors(t *testing.T) {
	f := newFixture(t)
	status, body := f.post(t, "/api/agents/schedule/suggest", SuggestRequest{UserInput: "tomorrow", PatientID: uuid.NewString()})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, scheduling.NoDoctorsMessage, body["message"])
	assert.Empty(t, body["slots"])
}

func TestReminderEndpoints(t *testing.T) {
	f := newFixture(t)
	f.reminders.set(reminder.Summary{Bucket: reminder.Morning, Sent: 2, Total: 2, Message: "Reminder cycle completed for morning slot"}, nil)

	status, body := f.post(t, "/api/agents/reminders/run", struct{}{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "morning", body["slot"])
	assert.EqualValues(t, 2, body["sent"])

	f.reminders.set(reminder.Summary{}, reminder.ErrCycleRunning)
	status, _ = f.post(t, "/api/agents/reminders/run", struct{}{})
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.post(t, "/api/agents/reminders/clear-cache", struct{}{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Reminder cache cleared", body["message"])
	f.reminders.mu.Lock()
	assert.Equal(t, 1, f.reminders.cleared)
	f.reminders.mu.Unlock()
}

func TestSendNotification(t *testing.T) {
	f := newFixture(t)

	status, _ := f.post(t, "/api/agents/notification/send", NotificationRequest{Contact: "+1555", Message: "hi"})
	require.Equal(t, http.StatusOK, status)
	f.mu.Lock()
	assert.Equal(t, []string{"+1555|hi"}, f.sent)
	f.mu.Unlock()

	status, _ = f.post(t, "/api/agents/notification/send", NotificationRequest{Contact: "down", Message: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = f.post(t, "/api/agents/notification/send", NotificationRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInvokeToolAndChat(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/api/tools/get_patient_record", map[string]any{"patient_id": f.patient.ID.String()})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, tools.StatusSuccess, body["status"])
	assert.Equal(t, "Asha", body["name"])

	status, body = f.post(t, "/api/tools/teleport", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, tools.StatusFailed, body["status"])
	assert.Equal(t, "unsupported", body["reason"])

	status, body = f.post(t, "/api/chat", ChatRequest{
		Message:             "hello",
		ConversationHistory: []agent.Message{{Role: "assistant", Content: "Hi there"}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["response"], "hello")
	assert.Equal(t, false, body["should_escalate"])

	status, _ = f.post(t, "/api/chat", ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}
