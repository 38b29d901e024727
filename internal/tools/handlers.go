package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

// Bookings is the booking surface the tools drive. *appointment.Service
// satisfies it.
type Bookings interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*appointment.Patient, error)
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*appointment.Booking, error)
	Reschedule(ctx context.Context, bookingID uuid.UUID, newTime time.Time) (*appointment.Booking, error)
	LogInteraction(ctx context.Context, entry appointment.InteractionLog) error
}

type SlotSuggester interface {
	SuggestSlots(ctx context.Context, query string, patientID uuid.UUID) (scheduling.Suggestion, error)
}

type Backend struct {
	Bookings     Bookings
	Slots        SlotSuggester
	Location     *time.Location
	StoreTimeout time.Duration
	Logger       *logging.Logger
}

// NewCareRegistry registers the six patient-care tools against b.
func NewCareRegistry(b Backend) *Registry {
	if b.Location == nil {
		b.Location = time.Local
	}
	if b.StoreTimeout <= 0 {
		b.StoreTimeout = 5 * time.Second
	}
	if b.Logger == nil {
		b.Logger = logging.Default()
	}

	r := NewRegistry()
	h := &careHandlers{b: b, registry: r}

	r.Register(Spec{
		Name:        GetPatientRecord,
		Description: "Fetches the patient's profile (name, phone, email, date of birth).",
		Params: []Param{
			{Name: "patient_id", Description: "The patient's UUID.", Required: true},
		},
		FailureMessage: "Unable to load patient record. Please try again.",
	}, h.getPatientRecord)

	r.Register(Spec{
		Name:        CheckAppointmentAvailability,
		Description: "Suggests up to three appointment slots with the patient's doctor from a natural language request such as \"next week\" or \"friday\".",
		Params: []Param{
			{Name: "user_query", Description: "The patient's request, e.g. \"I need to see a doctor next week\".", Required: true},
			{Name: "patient_id", Description: "The patient's UUID.", Required: true},
		},
		FailureMessage: "Unable to check availability. Please try again.",
	}, h.checkAvailability)

	r.Register(Spec{
		Name:        BookAppointment,
		Description: "Books a confirmed appointment in a slot returned by check_appointment_availability.",
		Params: []Param{
			{Name: "patient_id", Description: "The patient's UUID.", Required: true},
			{Name: "doctor_id", Description: "The doctor's UUID from the availability check.", Required: true},
			{Name: "datetime_iso", Description: "Slot time in ISO format, e.g. 2026-10-15T09:00:00.", Required: true},
			{Name: "upload_id", Description: "Optional prescription upload UUID."},
		},
		FailureMessage: "Booking failed. Please try again.",
	}, h.book)

	r.Register(Spec{
		Name:        RescheduleAppointment,
		Description: "Reschedules an existing appointment. Not currently supported.",
		Params: []Param{
			{Name: "appointment_id", Description: "The schedule UUID of the appointment.", Required: true},
			{Name: "new_datetime_str", Description: "Requested new time in ISO format.", Required: true},
		},
		FailureMessage: appointment.ErrRescheduleUnsupported.Msg,
	}, h.reschedule)

	r.Register(Spec{
		Name:        CancelAppointment,
		Description: "Cancels an existing appointment.",
		Params: []Param{
			{Name: "schedule_id", Description: "The schedule UUID of the appointment.", Required: true},
		},
		FailureMessage: "Cancellation failed. Please try again.",
	}, h.cancel)

	r.Register(Spec{
		Name:        LogInteraction,
		Description: "Records an audit entry. Call after every state-changing tool.",
		Params: []Param{
			{Name: "patient_id", Description: "The patient's UUID, if known."},
			{Name: "action", Description: "What was attempted, e.g. appointment_booked.", Required: true},
			{Name: "tool_used", Description: "Name of the tool that performed the action.", Required: true},
			{Name: "outcome", Description: "success or failure.", Required: true},
			{Name: "details", Description: "Free-form details."},
		},
		FailureMessage: "Unable to log interaction.",
	}, h.logInteraction)

	return r
}

type careHandlers struct {
	b        Backend
	registry *Registry
}

func (h *careHandlers) getPatientRecord(ctx context.Context, args map[string]any) (Result, error) {
	pid, err := uuidArg(args, "patient_id")
	if err != nil {
		return nil, err
	}
	p, err := h.b.Bookings.GetPatient(ctx, pid)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Wrap(apperr.NotFound, "Patient not found", err)
		}
		return nil, err
	}

	out := Result{
		"pid":        p.ID.String(),
		"username":   p.Username,
		"name":       p.Name,
		"phone":      p.Phone,
		"created_at": p.CreatedAt.Format(time.RFC3339),
		"status":     StatusSuccess,
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.DOB != nil {
		out["dob"] = p.DOB.Format("2006-01-02")
	}
	return out, nil
}

func (h *careHandlers) checkAvailability(ctx context.Context, args map[string]any) (Result, error) {
	query, err := stringArg(args, "user_query", false)
	if err != nil {
		return nil, err
	}
	pid, err := uuidArg(args, "patient_id")
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "Invalid patient ID format.")
	}

	suggestion, err := h.b.Slots.SuggestSlots(ctx, query, pid)
	if err != nil {
		return nil, err
	}
	if suggestion.NoDoctors {
		return Result{"slots": []any{}, "error": suggestion.Message, "reason": string(apperr.NotFound), "status": StatusFailed}, nil
	}

	slots := make([]any, 0, len(suggestion.Slots))
	for _, s := range suggestion.Slots {
		slots = append(slots, map[string]any{
			"datetime":    s.DateTime.In(h.b.Location).Format(scheduling.DateTimeLayout),
			"doctor_id":   s.DoctorID,
			"doctor_name": s.DoctorName,
		})
	}
	return Result{"slots": slots, "status": StatusSuccess}, nil
}

func (h *careHandlers) book(ctx context.Context, args map[string]any) (Result, error) {
	failed := Result{"success": false}

	pid, err := uuidArg(args, "patient_id")
	if err != nil {
		return failed, err
	}
	did, err := uuidArg(args, "doctor_id")
	if err != nil {
		return failed, err
	}
	at, err := timeArg(args, h.b.Location, "datetime_iso", "datetime_str")
	if err != nil {
		return failed, err
	}
	uploadID, err := optionalUUIDArg(args, "upload_id")
	if err != nil {
		return failed, err
	}

	booking, err := h.b.Bookings.Book(ctx, appointment.BookRequest{
		PatientID: pid,
		DoctorID:  did,
		Time:      at,
		UploadID:  uploadID,
	})
	if err != nil {
		return failed, err
	}

	return Result{
		"success": true,
		"booking": map[string]any{
			"schedule_id":      booking.ID.String(),
			"patient_id":       booking.PatientID.String(),
			"doctor_id":        booking.DoctorID.String(),
			"appointment_time": booking.AppointmentTime.In(h.b.Location).Format(scheduling.DateTimeLayout),
			"status":           string(booking.Status),
		},
		"message": "Appointment booked successfully",
		"status":  StatusSuccess,
	}, nil
}

func (h *careHandlers) reschedule(ctx context.Context, args map[string]any) (Result, error) {
	id, err := uuidArg(args, "appointment_id")
	if err != nil {
		return nil, err
	}
	_, err = h.b.Bookings.Reschedule(ctx, id, time.Time{})
	return nil, err
}

func (h *careHandlers) cancel(ctx context.Context, args map[string]any) (Result, error) {
	failed := Result{"success": false}

	id, err := uuidArg(args, "schedule_id")
	if err != nil {
		return failed, err
	}
	if _, err := h.b.Bookings.Cancel(ctx, id); err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return failed, apperr.Wrap(apperr.NotFound, "Appointment not found", err)
		}
		return failed, err
	}
	return Result{
		"success": true,
		"message": "Appointment cancelled successfully",
		"status":  StatusSuccess,
	}, nil
}

// logInteraction writes in the background and answers immediately. A planner
// that skips it does not block the action it was describing.
func (h *careHandlers) logInteraction(ctx context.Context, args map[string]any) (Result, error) {
	action, err := stringArg(args, "action", true)
	if err != nil {
		return nil, err
	}
	toolUsed, err := stringArg(args, "tool_used", true)
	if err != nil {
		return nil, err
	}
	outcome, err := stringArg(args, "outcome", true)
	if err != nil {
		return nil, err
	}
	details, err := stringArg(args, "details", false)
	if err != nil {
		return nil, err
	}
	pid, err := optionalUUIDArg(args, "patient_id")
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "Invalid patient ID format.")
	}

	entry := appointment.InteractionLog{
		LoggedAt:  time.Now().UTC(),
		PatientID: pid,
		Action:    action,
		ToolUsed:  toolUsed,
		Outcome:   outcome,
		Details:   details,
	}

	detached := context.WithoutCancel(ctx)
	h.registry.goBackground(func() {
		writeCtx, cancel := context.WithTimeout(detached, h.b.StoreTimeout)
		defer cancel()
		if err := h.b.Bookings.LogInteraction(writeCtx, entry); err != nil {
			h.b.Logger.Error("failed to write interaction log", "action", action, "tool_used", toolUsed, "error", err)
		}
	})

	h.b.Logger.Info("audit", "action", action, "tool_used", toolUsed, "outcome", outcome, "patient_id", pid)
	return Result{"status": StatusLogged}, nil
}
