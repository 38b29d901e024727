package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation       = "23505"
	doctorTimeConstraint  = "ux_schedule_doctor_time_live"
	patientTimeConstraint = "ux_schedule_patient_time_live"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func newPgRepositoryWithQuerier(q querier) *PgRepository {
	return &PgRepository{pool: q}
}

// Helpers

const bookingColumns = `schedule_id, pid, did, upload_id, appointment_time, status, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Name,
		&p.Phone,
		&p.Email,
		&p.DOB,
		&p.PasswordHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.ExternalID,
		&d.PatientID,
		&d.UploadID,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.PatientID,
		&b.DoctorID,
		&b.UploadID,
		&b.AppointmentTime,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

func (r *PgRepository) queryBookings(ctx context.Context, sql string, args ...any) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// optionalBooking turns ErrBookingNotFound into (nil, nil).
func optionalBooking(b *Booking, err error) (*Booking, error) {
	if errors.Is(err, ErrBookingNotFound) {
		return nil, nil
	}
	return b, err
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT pid, username, name, phone, email, dob, password_hash, created_at, updated_at
		FROM patients
		WHERE pid = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT did, doctor_name, doctor_id_external, pid, upload_id, created_at
		FROM doctors
		WHERE did = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctorsByPatient(ctx context.Context, patientID uuid.UUID) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT did, doctor_name, doctor_id_external, pid, upload_id, created_at
		FROM doctors
		WHERE pid = $1
		ORDER BY created_at, did
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM schedule
		WHERE schedule_id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListActiveBookingsByPatient(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM schedule
		WHERE pid = $1 AND status <> 'cancelled'
		ORDER BY appointment_time
	`, patientID)
}

func (r *PgRepository) ListActiveBookingsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Booking, error) {
	return r.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM schedule
		WHERE did = $1 AND status <> 'cancelled'
		ORDER BY appointment_time
	`, doctorID)
}

func (r *PgRepository) GetActiveBookingForDoctorAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM schedule
		WHERE did = $1 AND appointment_time = $2 AND status <> 'cancelled'
	`, doctorID, at)
	return optionalBooking(scanBooking(row))
}

func (r *PgRepository) GetActiveBookingForPatientAt(ctx context.Context, patientID uuid.UUID, at time.Time) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM schedule
		WHERE pid = $1 AND appointment_time = $2 AND status <> 'cancelled'
	`, patientID, at)
	return optionalBooking(scanBooking(row))
}

func (r *PgRepository) LatestUploadForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT upload_id
		FROM uploads
		WHERE pid = $1
		ORDER BY upload_timestamp DESC
		LIMIT 1
	`, patientID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUploadNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PgRepository) InsertBooking(ctx context.Context, b Booking) (*Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = StatusConfirmed
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedule (schedule_id, pid, did, upload_id, appointment_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+bookingColumns+`
	`, b.ID, b.PatientID, b.DoctorID, b.UploadID, b.AppointmentTime, b.Status)

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == patientTimeConstraint {
				return nil, ErrPatientSlotTaken
			}
			return nil, ErrDoctorSlotTaken
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

func (r *PgRepository) CancelBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE schedule
		SET status = 'cancelled',
		    updated_at = now()
		WHERE schedule_id = $1
		  AND status = 'confirmed'
		RETURNING `+bookingColumns+`
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) InsertInteraction(ctx context.Context, entry InteractionLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO interaction_logs (logged_at, pid, action, tool_used, outcome, details)
		VALUES (COALESCE($1, now()), $2, $3, $4, $5, $6)
	`, nullableTime(entry.LoggedAt), entry.PatientID, entry.Action, entry.ToolUsed, entry.Outcome, entry.Details)
	if err != nil {
		return fmt.Errorf("insert interaction log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
