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

var apptColumnNames = []string{
	"id", "patient_id", "doctor_id", "start_at", "duration_minutes", "consultation_type",
	"status", "cancelled_at", "cancelled_by", "cancellation_reason", "rescheduled_from_id",
	"rescheduled_to_id", "notes", "doctor_notes", "video_call_link", "video_call_room_id",
	"consultation_fee", "currency", "is_paid", "payment_method", "paid_at",
	"confirmation_code", "confirmed_at", "created_at", "updated_at",
}

func apptRow(id uuid.UUID, startAt time.Time) *pgxmock.Rows {
	now := startAt.Add(-48 * time.Hour)
	return pgxmock.NewRows(apptColumnNames).AddRow(
		id, uuid.New(), uuid.New(), startAt, DefaultDurationMinutes, string(TypePresentiel),
		string(StatusPending), (*time.Time)(nil), (*string)(nil), (*string)(nil), (*uuid.UUID)(nil),
		(*uuid.UUID)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		"70.00", "TND", false, (*string)(nil), (*time.Time)(nil),
		"MC-7K2P9X", (*time.Time)(nil), now, now,
	)
}

func TestPgGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()
	startAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnRows(apptRow(id, startAt))

	appt, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, appt.ID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "70.00", appt.ConsultationFee.StringFixed(2))
	assert.True(t, appt.StartAt.Equal(startAt))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertMapsUniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"appointments_doctor_slot_active", ErrSlotTaken},
		{"appointments_confirmation_code_key", ErrConfirmationCodeTaken},
	}

	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewPgRepository(mock)

			mock.ExpectExec("INSERT INTO appointments").
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg()).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

			appt := &Appointment{
				ID:               uuid.New(),
				PatientID:        uuid.New(),
				DoctorID:         uuid.New(),
				StartAt:          time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				DurationMinutes:  DefaultDurationMinutes,
				ConsultationType: TypePresentiel,
				Status:           StatusPending,
				Currency:         "TND",
				ConfirmationCode: "MC-7K2P9X",
			}
			err = repo.Insert(context.Background(), appt)
			assert.ErrorIs(t, err, tc.want)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgUpdateStaleStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)

	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	appt := &Appointment{ID: uuid.New(), Status: StatusConfirmed}
	err = repo.Update(context.Background(), appt, StatusPending)
	assert.ErrorIs(t, err, ErrStaleStatus)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCountActiveOverlappingUsesBookingWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	doctorID := uuid.New()
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery(`SELECT count\(\*\)`).
		WithArgs(doctorID, start, end, BookingWindowMinutes, uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountActiveOverlapping(context.Background(), doctorID, start, end, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListByPatientAppliesFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	patientID := uuid.New()
	id := uuid.New()
	startAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(patientID, []string{"pending", "confirmed"}, 20).
		WillReturnRows(apptRow(id, startAt))

	got, err := repo.ListByPatient(context.Background(), patientID, ListFilter{
		Statuses: []Status{StatusPending, StatusConfirmed},
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}
