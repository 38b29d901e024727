package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{"schedule_id", "pid", "did", "upload_id", "appointment_time", "status", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, newPgRepositoryWithQuerier(mock)
}

func TestPgInsertBookingMapsUniqueViolations(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()
	b := Booking{ID: uuid.New(), PatientID: uuid.New(), DoctorID: uuid.New(), AppointmentTime: slotTime}

	mock.ExpectQuery("INSERT INTO schedule").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_schedule_doctor_time_live"})
	_, err := repo.InsertBooking(ctx, b)
	assert.ErrorIs(t, err, ErrDoctorSlotTaken)

	mock.ExpectQuery("INSERT INTO schedule").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_schedule_patient_time_live"})
	_, err = repo.InsertBooking(ctx, b)
	assert.ErrorIs(t, err, ErrPatientSlotTaken)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO schedule").
		WithArgs(b.ID, b.PatientID, b.DoctorID, b.UploadID, b.AppointmentTime, StatusConfirmed).
		WillReturnRows(pgxmock.NewRows(bookingCols).
			AddRow(b.ID, b.PatientID, b.DoctorID, (*uuid.UUID)(nil), slotTime, StatusConfirmed, now, now))
	created, err := repo.InsertBooking(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, b.ID, created.ID)
	assert.Equal(t, StatusConfirmed, created.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelBooking(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("UPDATE schedule").WithArgs(id).
		WillReturnRows(pgxmock.NewRows(bookingCols).
			AddRow(id, uuid.New(), uuid.New(), (*uuid.UUID)(nil), slotTime, StatusCancelled, now, now))
	b, err := repo.CancelBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)

	mock.ExpectQuery("UPDATE schedule").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.CancelBooking(ctx, id)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgActiveBookingLookupTreatsNoRowsAsFree(t *testing.T) {
	mock, repo := newMockRepo(t)
	doctorID := uuid.New()

	mock.ExpectQuery("FROM schedule").WithArgs(doctorID, slotTime).WillReturnError(pgx.ErrNoRows)
	b, err := repo.GetActiveBookingForDoctorAt(context.Background(), doctorID, slotTime)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListDoctorsByPatient(t *testing.T) {
	mock, repo := newMockRepo(t)
	pid := uuid.New()
	first, second := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM doctors").WithArgs(pid).
		WillReturnRows(pgxmock.NewRows([]string{"did", "doctor_name", "doctor_id_external", "pid", "upload_id", "created_at"}).
			AddRow(first, "Mehta", (*string)(nil), pid, (*uuid.UUID)(nil), now).
			AddRow(second, "Iyer", (*string)(nil), pid, (*uuid.UUID)(nil), now))

	doctors, err := repo.ListDoctorsByPatient(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Mehta", doctors[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgLatestUploadMissing(t *testing.T) {
	mock, repo := newMockRepo(t)
	pid := uuid.New()

	mock.ExpectQuery("FROM uploads").WithArgs(pid).WillReturnError(pgx.ErrNoRows)
	_, err := repo.LatestUploadForPatient(context.Background(), pid)
	assert.ErrorIs(t, err, ErrUploadNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertInteraction(t *testing.T) {
	mock, repo := newMockRepo(t)
	pid := uuid.New()

	mock.ExpectExec("INSERT INTO interaction_logs").
		WithArgs(pgxmock.AnyArg(), &pid, "booking_created", "book_appointment", "success", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertInteraction(context.Background(), InteractionLog{
		PatientID: &pid,
		Action:    "booking_created",
		ToolUsed:  "book_appointment",
		Outcome:   "success",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
