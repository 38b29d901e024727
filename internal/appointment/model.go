package appointment

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type Patient struct {
	ID           uuid.UUID  `json:"pid"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        *string    `json:"email,omitempty"`
	DOB          *time.Time `json:"dob,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Doctor is scoped to the patient whose prescription introduced it.
type Doctor struct {
	ID         uuid.UUID  `json:"did"`
	Name       string     `json:"doctor_name"`
	ExternalID *string    `json:"doctor_id_external,omitempty"`
	PatientID  uuid.UUID  `json:"pid"`
	UploadID   *uuid.UUID `json:"upload_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Booking struct {
	ID              uuid.UUID     `json:"schedule_id"`
	PatientID       uuid.UUID     `json:"patient_id"`
	DoctorID        uuid.UUID     `json:"doctor_id"`
	UploadID        *uuid.UUID    `json:"upload_id,omitempty"`
	AppointmentTime time.Time     `json:"appointment_time"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// InteractionLog is an append-only audit row.
type InteractionLog struct {
	ID        int64
	LoggedAt  time.Time
	PatientID *uuid.UUID
	Action    string
	ToolUsed  string
	Outcome   string
	Details   string
}

type BookRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Time      time.Time
	UploadID  *uuid.UUID
}
