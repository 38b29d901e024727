package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgSource reads due medications and upcoming bookings from Postgres.
type PgSource struct {
	pool querier
}

func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

func newPgSourceWithQuerier(q querier) *PgSource {
	return &PgSource{pool: q}
}

func (s *PgSource) DueMedications(ctx context.Context, bucket Bucket) ([]DueMedication, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ds.slot_id, d.drug_id, d.drug_name, p.pid, p.name, COALESCE(p.phone, ''), ds.slot
		FROM drug_slots ds
		JOIN drugs d ON d.drug_id = ds.drug_id
		JOIN patients p ON p.pid = d.pid
		WHERE ds.slot = $1
		ORDER BY p.pid, d.drug_name
	`, string(bucket))
	if err != nil {
		return nil, fmt.Errorf("query due medications: %w", err)
	}
	defer rows.Close()

	var out []DueMedication
	for rows.Next() {
		var m DueMedication
		var slot string
		if err := rows.Scan(&m.DrugSlotID, &m.DrugID, &m.DrugName, &m.PatientID, &m.PatientName, &m.PatientPhone, &slot); err != nil {
			return nil, fmt.Errorf("scan due medication: %w", err)
		}
		m.Bucket = Bucket(slot)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due medications: %w", err)
	}
	return out, nil
}

func (s *PgSource) UpcomingAppointments(ctx context.Context, from, to time.Time) ([]UpcomingAppointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.schedule_id, s.pid, COALESCE(p.phone, ''), d.doctor_name, s.appointment_time
		FROM schedule s
		JOIN patients p ON p.pid = s.pid
		JOIN doctors d ON d.did = s.did
		WHERE s.status = 'confirmed'
		  AND s.appointment_time >= $1
		  AND s.appointment_time < $2
		ORDER BY s.appointment_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query upcoming appointments: %w", err)
	}
	defer rows.Close()

	var out []UpcomingAppointment
	for rows.Next() {
		var a UpcomingAppointment
		if err := rows.Scan(&a.BookingID, &a.PatientID, &a.PatientPhone, &a.DoctorName, &a.AppointmentTime); err != nil {
			return nil, fmt.Errorf("scan upcoming appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upcoming appointments: %w", err)
	}
	return out, nil
}
