package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
)

var (
	ErrPatientNotFound = apperr.New(apperr.NotFound, "patient not found")
	ErrDoctorNotFound  = apperr.New(apperr.NotFound, "doctor not found")
	ErrBookingNotFound = apperr.New(apperr.NotFound, "booking not found")
	ErrUploadNotFound  = apperr.New(apperr.NotFound, "upload not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctorsByPatient(ctx context.Context, patientID uuid.UUID) ([]Doctor, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListActiveBookingsByPatient(ctx context.Context, patientID uuid.UUID) ([]Booking, error)
	ListActiveBookingsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Booking, error)

	// For conflict checks
	GetActiveBookingForDoctorAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Booking, error)
	GetActiveBookingForPatientAt(ctx context.Context, patientID uuid.UUID, at time.Time) (*Booking, error)

	LatestUploadForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)

	// InsertBooking returns ErrDoctorSlotTaken or ErrPatientSlotTaken when a
	// live booking already holds the instant.
	InsertBooking(ctx context.Context, b Booking) (*Booking, error)
	// CancelBooking moves a confirmed booking to cancelled. Missing or
	// already cancelled bookings yield ErrBookingNotFound.
	CancelBooking(ctx context.Context, id uuid.UUID) (*Booking, error)

	InsertInteraction(ctx context.Context, entry InteractionLog) error
}
