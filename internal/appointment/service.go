package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/notify"
	"github.com/hackgods/vitacare-orchestrator/internal/observability/metrics"
	redisclient "github.com/hackgods/vitacare-orchestrator/internal/redis"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

const (
	ActionBookingCreated   = "booking_created"
	ActionBookingCancelled = "booking_cancelled"
)

var (
	ErrDoctorSlotTaken       = apperr.New(apperr.Conflict, "doctor already has an appointment at this time")
	ErrPatientSlotTaken      = apperr.New(apperr.Conflict, "patient already has an appointment at this time")
	ErrSlotBeingBooked       = apperr.New(apperr.Conflict, "slot is currently being booked, please retry")
	ErrRescheduleUnsupported = apperr.New(apperr.Unsupported, "Rescheduling is not currently supported. Please cancel the existing appointment and book a new one.")
	ErrInvalidBooking        = apperr.New(apperr.InvalidInput, "patient, doctor and appointment time are required")
)

var tracer = otel.Tracer("vitacare.internal.appointment")

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	logger   *logging.Logger
	metrics  *metrics.Metrics

	notifyTimeout time.Duration
	storeTimeout  time.Duration
	wg            sync.WaitGroup
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStoreTimeout bounds each repository call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithNotifyTimeout bounds the booking confirmation send.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, logger *logging.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:          repo,
		locker:        locker,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: 10 * time.Second,
		storeTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book creates a confirmed booking for (patient, doctor, time).
// The conflict checks and the insert run while holding both the doctor-side
// and the patient-side lock, so two concurrent attempts for the same instant
// cannot both pass the checks. The partial unique indexes on schedule back
// this up if a lock expires mid-flight.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "appointment.book", trace.WithAttributes(
		attribute.String("patient_id", req.PatientID.String()),
		attribute.String("doctor_id", req.DoctorID.String()),
	))
	defer span.End()

	booking, doctor, patient, err := s.book(ctx, req)
	s.metrics.ObserveBooking("book", outcomeOf(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logInteraction(ctx, InteractionLog{
		PatientID: &booking.PatientID,
		Action:    ActionBookingCreated,
		ToolUsed:  "book_appointment",
		Outcome:   "success",
		Details:   fmt.Sprintf("schedule_id=%s doctor_id=%s time=%s", booking.ID, booking.DoctorID, booking.AppointmentTime.Format(time.RFC3339)),
	})
	s.sendConfirmation(ctx, patient, doctor, booking)

	return booking, nil
}

func (s *Service) book(ctx context.Context, req BookRequest) (*Booking, *Doctor, *Patient, error) {
	if req.PatientID == uuid.Nil || req.DoctorID == uuid.Nil || req.Time.IsZero() {
		return nil, nil, nil, ErrInvalidBooking
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	doctor, err := s.repo.GetDoctorByID(storeCtx, req.DoctorID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, nil, nil, err
		}
		return nil, nil, nil, fmt.Errorf("load doctor: %w", err)
	}

	storeCtx, cancel = context.WithTimeout(ctx, s.storeTimeout)
	patient, err := s.repo.GetPatientByID(storeCtx, req.PatientID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, nil, nil, err
		}
		return nil, nil, nil, fmt.Errorf("load patient: %w", err)
	}

	uploadID := req.UploadID
	if uploadID == nil {
		storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		latest, err := s.repo.LatestUploadForPatient(storeCtx, req.PatientID)
		cancel()
		switch {
		case err == nil:
			uploadID = &latest
		case errors.Is(err, ErrUploadNotFound):
			s.logger.Debug("booking without prescription reference", "patient_id", req.PatientID)
		default:
			s.logger.Warn("latest upload lookup failed", "patient_id", req.PatientID, "error", err)
		}
	}

	keys := []string{
		redisclient.DoctorSlotKey(req.DoctorID, req.Time),
		redisclient.PatientSlotKey(req.PatientID, req.Time),
	}

	var created *Booking
	err = s.locker.WithLocks(ctx, keys, func(lockCtx context.Context) error {
		// Checks and insert share one store deadline inside the lock
		lockCtx, cancel := context.WithTimeout(lockCtx, s.storeTimeout)
		defer cancel()

		existing, err := s.repo.GetActiveBookingForDoctorAt(lockCtx, req.DoctorID, req.Time)
		if err != nil {
			return fmt.Errorf("check doctor bookings: %w", err)
		}
		if existing != nil {
			return ErrDoctorSlotTaken
		}

		existing, err = s.repo.GetActiveBookingForPatientAt(lockCtx, req.PatientID, req.Time)
		if err != nil {
			return fmt.Errorf("check patient bookings: %w", err)
		}
		if existing != nil {
			return ErrPatientSlotTaken
		}

		created, err = s.repo.InsertBooking(lockCtx, Booking{
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			UploadID:        uploadID,
			AppointmentTime: req.Time,
			Status:          StatusConfirmed,
		})
		if err != nil {
			if errors.Is(err, ErrDoctorSlotTaken) || errors.Is(err, ErrPatientSlotTaken) {
				return err
			}
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, nil, ErrSlotBeingBooked
		}
		return nil, nil, nil, err
	}

	return created, doctor, patient, nil
}

// Cancel moves a confirmed booking to cancelled, freeing the slot on both sides.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel", trace.WithAttributes(
		attribute.String("schedule_id", bookingID.String()),
	))
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	cancelled, err := s.repo.CancelBooking(storeCtx, bookingID)
	cancel()
	if err != nil && !errors.Is(err, ErrBookingNotFound) {
		err = fmt.Errorf("cancel booking: %w", err)
	}
	s.metrics.ObserveBooking("cancel", outcomeOf(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logInteraction(ctx, InteractionLog{
		PatientID: &cancelled.PatientID,
		Action:    ActionBookingCancelled,
		ToolUsed:  "cancel_appointment",
		Outcome:   "success",
		Details:   fmt.Sprintf("schedule_id=%s", cancelled.ID),
	})

	return cancelled, nil
}

// Reschedule is not offered. Callers cancel and book again.
func (s *Service) Reschedule(ctx context.Context, bookingID uuid.UUID, newTime time.Time) (*Booking, error) {
	s.metrics.ObserveBooking("reschedule", outcomeOf(ErrRescheduleUnsupported))
	return nil, ErrRescheduleUnsupported
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookingsByPatient returns the patient's live bookings ordered by time.
func (s *Service) ListBookingsByPatient(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	bookings, err := s.repo.ListActiveBookingsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by patient: %w", err)
	}
	return bookings, nil
}

// LogInteraction appends an audit row. Failures are returned so the caller
// can decide whether to surface them.
func (s *Service) LogInteraction(ctx context.Context, entry InteractionLog) error {
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.InsertInteraction(ctx, entry)
}

// Wait blocks until in-flight audit writes and confirmation sends have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// logInteraction records a committed state change in the background. The
// booking result never waits on it.
func (s *Service) logInteraction(ctx context.Context, entry InteractionLog) {
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}
	writeCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.LogInteraction(writeCtx, entry); err != nil {
			s.logger.Error("failed to insert interaction log", "action", entry.Action, "error", err)
		}
	}()
}

func (s *Service) sendConfirmation(ctx context.Context, patient *Patient, doctor *Doctor, booking *Booking) {
	if patient == nil || patient.Phone == "" {
		return
	}
	message := notify.BookingConfirmation(doctor.Name, booking.AppointmentTime)
	sendCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, patient.Phone, message); err != nil {
			s.logger.Warn("booking confirmation not delivered",
				"schedule_id", booking.ID,
				"kind", apperr.KindOf(err),
				"error", err,
			)
		}
	}()
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(apperr.KindOf(err))
}
