package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vitacare-orchestrator/internal/appointment"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

const NoDoctorsMessage = "No doctors found. Please upload a prescription first."

// Store is the read side of the appointment repository the resolver needs.
type Store interface {
	ListDoctorsByPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Doctor, error)
	ListActiveBookingsByPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Booking, error)
	ListActiveBookingsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]appointment.Booking, error)
}

// Suggestion is the resolver's answer. NoDoctors is a soft failure: the
// patient has no prescription on file yet.
type Suggestion struct {
	Slots     []Slot
	NoDoctors bool
	Message   string
}

type ResolverConfig struct {
	Location     *time.Location
	StoreTimeout time.Duration
	Now          func() time.Time
	Logger       *logging.Logger
}

type Resolver struct {
	store        Store
	loc          *time.Location
	storeTimeout time.Duration
	now          func() time.Time
	logger       *logging.Logger
}

func NewResolver(store Store, cfg ResolverConfig) *Resolver {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Resolver{
		store:        store,
		loc:          cfg.Location,
		storeTimeout: cfg.StoreTimeout,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// SuggestSlots proposes up to three slots with the patient's first doctor.
// Times already held by the patient, or by that doctor for anyone, are skipped.
func (r *Resolver) SuggestSlots(ctx context.Context, query string, patientID uuid.UUID) (Suggestion, error) {
	target := ParseTimeIntent(query, r.now().In(r.loc))

	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	doctors, err := r.store.ListDoctorsByPatient(ctx, patientID)
	if err != nil {
		return Suggestion{}, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return Suggestion{Slots: []Slot{}, NoDoctors: true, Message: NoDoctorsMessage}, nil
	}
	primary := doctors[0]
	if len(doctors) > 1 {
		r.logger.Debug("suggesting slots for first doctor only", "patient_id", patientID, "doctors", len(doctors))
	}

	patientBookings, err := r.store.ListActiveBookingsByPatient(ctx, patientID)
	if err != nil {
		return Suggestion{}, fmt.Errorf("list patient bookings: %w", err)
	}
	doctorBookings, err := r.store.ListActiveBookingsByDoctor(ctx, primary.ID)
	if err != nil {
		return Suggestion{}, fmt.Errorf("list doctor bookings: %w", err)
	}

	taken := make([]time.Time, 0, len(patientBookings)+len(doctorBookings))
	for _, b := range patientBookings {
		taken = append(taken, b.AppointmentTime)
	}
	for _, b := range doctorBookings {
		taken = append(taken, b.AppointmentTime)
	}

	slots := GenerateSlots(target, primary.Name, primary.ID.String(), taken, DefaultSlotCount)
	return Suggestion{Slots: slots}, nil
}
