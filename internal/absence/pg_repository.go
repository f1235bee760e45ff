package absence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/scheduling-engine/internal/db"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const absenceColumns = `id, doctor_id, start_date, end_date, start_min, end_min, absence_type,
	title, reason, is_recurring, recurrence_pattern, recurrence_end_date, notify_patients,
	patients_notified_at, affected_appointments_count, is_active, cancelled_at,
	created_at, updated_at`

func scanAbsence(row pgx.Row) (*Absence, error) {
	var a Absence
	var start, end *int

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.StartDate,
		&a.EndDate,
		&start,
		&end,
		&a.Type,
		&a.Title,
		&a.Reason,
		&a.IsRecurring,
		&a.RecurrencePattern,
		&a.RecurrenceEndDate,
		&a.NotifyPatients,
		&a.PatientsNotifiedAt,
		&a.AffectedAppointmentsCount,
		&a.IsActive,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAbsenceNotFound
		}
		return nil, err
	}

	if start != nil {
		c := timeutil.Clock(*start)
		a.Start = &c
	}
	if end != nil {
		c := timeutil.Clock(*end)
		a.End = &c
	}
	return &a, nil
}

func minutesPtr(c *timeutil.Clock) *int {
	if c == nil {
		return nil
	}
	v := int(*c)
	return &v
}

func (r *PgRepository) GetByID(ctx context.Context, doctorID, absenceID uuid.UUID) (*Absence, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+absenceColumns+`
		FROM absences
		WHERE id = $1 AND doctor_id = $2
	`, absenceID, doctorID)
	return scanAbsence(row)
}

func (r *PgRepository) Insert(ctx context.Context, a *Absence) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO absences (id, doctor_id, start_date, end_date, start_min, end_min,
			absence_type, title, reason, is_recurring, recurrence_pattern,
			recurrence_end_date, notify_patients, patients_notified_at,
			affected_appointments_count, is_active, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19)
	`, a.ID, a.DoctorID, a.StartDate, a.EndDate, minutesPtr(a.Start), minutesPtr(a.End),
		a.Type, a.Title, a.Reason, a.IsRecurring, a.RecurrencePattern,
		a.RecurrenceEndDate, a.NotifyPatients, a.PatientsNotifiedAt,
		a.AffectedAppointmentsCount, a.IsActive, a.CancelledAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert absence: %w", err)
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, a *Absence) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE absences
		SET start_date = $3,
		    end_date = $4,
		    start_min = $5,
		    end_min = $6,
		    absence_type = $7,
		    title = $8,
		    reason = $9,
		    is_recurring = $10,
		    recurrence_pattern = $11,
		    recurrence_end_date = $12,
		    notify_patients = $13,
		    patients_notified_at = $14,
		    affected_appointments_count = $15,
		    is_active = $16,
		    cancelled_at = $17,
		    updated_at = $18
		WHERE id = $1 AND doctor_id = $2
	`, a.ID, a.DoctorID, a.StartDate, a.EndDate, minutesPtr(a.Start), minutesPtr(a.End),
		a.Type, a.Title, a.Reason, a.IsRecurring, a.RecurrencePattern,
		a.RecurrenceEndDate, a.NotifyPatients, a.PatientsNotifiedAt,
		a.AffectedAppointmentsCount, a.IsActive, a.CancelledAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update absence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAbsenceNotFound
	}
	return nil
}

func (r *PgRepository) ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Absence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+absenceColumns+`
		FROM absences
		WHERE doctor_id = $1
		  AND is_active = true
		  AND start_date <= $3
		  AND end_date >= $2
		ORDER BY start_date
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAbsences(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, includeCancelled bool) ([]Absence, error) {
	query := `
		SELECT ` + absenceColumns + `
		FROM absences
		WHERE doctor_id = $1`
	if !includeCancelled {
		query += " AND is_active = true"
	}
	query += " ORDER BY start_date DESC"

	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAbsences(rows)
}

func collectAbsences(rows pgx.Rows) ([]Absence, error) {
	var result []Absence
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
