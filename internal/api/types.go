package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/agent"
	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/internal/scheduling"
)

type ChatRequest struct {
	Message             string          `json:"message"`
	PatientID           string          `json:"patient_id"`
	ConversationHistory []agent.Message `json:"conversation_history"`
}

type ChatResponse struct {
	Response       string          `json:"response"`
	Logs           []agent.ToolLog `json:"logs"`
	ShouldEscalate bool            `json:"should_escalate"`
}

type SuggestRequest struct {
	UserInput string `json:"user_input"`
	PatientID string `json:"patient_id"`
}

type SuggestResponse struct {
	Success bool              `json:"success"`
	Slots   []scheduling.Slot `json:"slots"`
	Message string            `json:"message"`
}

type CreateBookingRequest struct {
	PatientID       string `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	AppointmentTime string `json:"appointment_time"`
	UploadID        string `json:"upload_id,omitempty"`
}

type CancelBookingRequest struct {
	ScheduleID string `json:"schedule_id"`
}

type NotificationRequest struct {
	Contact string `json:"contact"`
	Message string `json:"message"`
}

type BookingResponse struct {
	ScheduleID      uuid.UUID  `json:"schedule_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	UploadID        *uuid.UUID `json:"upload_id,omitempty"`
	AppointmentTime string     `json:"appointment_time"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

type BookingResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
}

type ReminderResponse struct {
	Success bool   `json:"success"`
	Slot    string `json:"slot,omitempty"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func bookingResponse(b *appointment.Booking, loc *time.Location) BookingResponse {
	return BookingResponse{
		ScheduleID:      b.ID,
		PatientID:       b.PatientID,
		DoctorID:        b.DoctorID,
		UploadID:        b.UploadID,
		AppointmentTime: b.AppointmentTime.In(loc).Format(scheduling.DateTimeLayout),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
	}
}
