package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/agent"
	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
	"github.com/hackgods/vitacare-orchestrator/internal/tools"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

type handlers struct {
	cfg RouterConfig
	log *logging.Logger
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat_disabled", "")
		return
	}
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_message", "message is required")
		return
	}

	history := make([]agent.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		if m.Role != agent.RoleUser {
			m.Role = agent.RoleModel
		}
		history = append(history, m)
	}

	resp := h.cfg.Chat.Run(r.Context(), strings.TrimSpace(req.PatientID), req.Message, history)
	logs := resp.Logs
	if logs == nil {
		logs = []agent.ToolLog{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: resp.Reply, Logs: logs})
}

func (h *handlers) suggestSlots(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patientID, ok := parseUUID(w, req.PatientID, "patient_id")
	if !ok {
		return
	}

	s, err := h.cfg.Slots.SuggestSlots(r.Context(), req.UserInput, patientID)
	if err != nil {
		h.log.Error("suggest slots failed", "patient_id", patientID, "error", err, "request_id", GetRequestID(r.Context()))
		writeAppError(w, err)
		return
	}

	slots := s.Slots
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	msg := fmt.Sprintf("Found %d available slots", len(slots))
	if s.NoDoctors {
		msg = s.Message
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Success: !s.NoDoctors, Slots: slots, Message: msg})
}

func (h *handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patientID, ok := parseUUID(w, req.PatientID, "patient_id")
	if !ok {
		return
	}
	doctorID, ok := parseUUID(w, req.DoctorID, "doctor_id")
	if !ok {
		return
	}
	at, err := scheduling.ParseDateTime(req.AppointmentTime, h.cfg.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_time", "appointment_time must be ISO-8601")
		return
	}
	bookReq := appointment.BookRequest{PatientID: patientID, DoctorID: doctorID, Time: at}
	if strings.TrimSpace(req.UploadID) != "" {
		uploadID, ok := parseUUID(w, req.UploadID, "upload_id")
		if !ok {
			return
		}
		bookReq.UploadID = &uploadID
	}

	booking, err := h.cfg.Bookings.Book(r.Context(), bookReq)
	if err != nil {
		h.logFailure(r, "create booking failed", err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BookingResult{
		Success: true,
		Message: "Appointment booked successfully",
		Booking: bookingResponse(booking, h.cfg.Location),
	})
}

func (h *handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, ok := parseUUID(w, req.ScheduleID, "schedule_id")
	if !ok {
		return
	}

	booking, err := h.cfg.Bookings.Cancel(r.Context(), id)
	if err != nil {
		h.logFailure(r, "cancel booking failed", err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BookingResult{
		Success: true,
		Message: "Appointment cancelled successfully",
		Booking: bookingResponse(booking, h.cfg.Location),
	})
}

func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}
	booking, err := h.cfg.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse(booking, h.cfg.Location))
}

func (h *handlers) listPatientBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}
	bookings, err := h.cfg.Bookings.ListBookingsByPatient(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingResponse(&bookings[i], h.cfg.Location))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) runReminders(w http.ResponseWriter, r *http.Request) {
	sum, err := h.cfg.Reminders.RunCycle(r.Context())
	if err != nil {
		h.logFailure(r, "reminder cycle failed", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReminderResponse{
		Success: true,
		Slot:    string(sum.Bucket),
		Sent:    sum.Sent,
		Failed:  sum.Failed,
		Skipped: sum.Skipped,
		Total:   sum.Total,
		Message: sum.Message,
	})
}

func (h *handlers) clearReminderCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Reminders.ClearCache(r.Context())
	if err != nil {
		h.logFailure(r, "clear reminder cache failed", err)
		writeAppError(w, err)
		return
	}
	h.log.Info("reminder cache cleared", "markers", n)
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Reminder cache cleared"})
}

func (h *handlers) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Contact) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_notification", "contact and message are required")
		return
	}
	if err := h.cfg.Notifier.Notify(r.Context(), req.Contact, req.Message); err != nil {
		h.logFailure(r, "notification failed", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Notification sent"})
}

// invokeTool runs one tool directly. The body is the argument object.
// Failures come back in the result with a 200, as the planner sees them.
func (h *handlers) invokeTool(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{}
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &args) {
			return
		}
	}
	res := h.cfg.Dispatcher.Dispatch(r.Context(), tools.Call{Name: chi.URLParam(r, "name"), Args: args})
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) logFailure(r *http.Request, msg string, err error) {
	if apperr.KindOf(err) == apperr.Internal {
		h.log.Error(msg, "error", err, "request_id", GetRequestID(r.Context()))
		return
	}
	h.log.Warn(msg, "error", err, "request_id", GetRequestID(r.Context()))
}

func parseUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
