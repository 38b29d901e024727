// Package reminder runs the periodic medication reminder sweep.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Bucket string

const (
	Morning   Bucket = "morning"
	Afternoon Bucket = "afternoon"
	Night     Bucket = "night"
)

// BucketAt maps a wall-clock hour to its intake bucket:
// [06,12) morning, [12,18) afternoon, everything else night.
func BucketAt(t time.Time) Bucket {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 18:
		return Afternoon
	default:
		return Night
	}
}

// DueMedication is one drug intake a patient has in a bucket.
type DueMedication struct {
	DrugSlotID   uuid.UUID
	DrugID       uuid.UUID
	DrugName     string
	PatientID    uuid.UUID
	PatientName  string
	PatientPhone string
	Bucket       Bucket
}

// UpcomingAppointment is a confirmed booking close enough to remind about.
type UpcomingAppointment struct {
	BookingID       uuid.UUID
	PatientID       uuid.UUID
	PatientPhone    string
	DoctorName      string
	AppointmentTime time.Time
}

type MedicationSource interface {
	DueMedications(ctx context.Context, bucket Bucket) ([]DueMedication, error)
}

// AppointmentSource lists confirmed bookings in [from, to).
type AppointmentSource interface {
	UpcomingAppointments(ctx context.Context, from, to time.Time) ([]UpcomingAppointment, error)
}

// MarkerKey identifies one reminder on one calendar day.
func MarkerKey(patientID, drugID uuid.UUID, bucket Bucket, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", patientID, drugID, bucket, day.Format("2006-01-02"))
}

func appointmentMarkerKey(bookingID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("appointment:%s:%s", bookingID, day.Format("2006-01-02"))
}

type Summary struct {
	Bucket  Bucket `json:"slot"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}
