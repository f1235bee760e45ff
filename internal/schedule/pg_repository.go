package schedule

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

// Helpers

func clockPtr(v *int) *timeutil.Clock {
	if v == nil {
		return nil
	}
	c := timeutil.Clock(*v)
	return &c
}

func minutesPtr(c *timeutil.Clock) *int {
	if c == nil {
		return nil
	}
	v := int(*c)
	return &v
}

func scanSlot(row pgx.Row) (*WeeklySlot, error) {
	var s WeeklySlot
	var start, end int
	var breakStart, breakEnd *int

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.DayOfWeek,
		&start,
		&end,
		&s.ConsultationType,
		&s.SlotDurationMinutes,
		&breakStart,
		&breakEnd,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Start = timeutil.Clock(start)
	s.End = timeutil.Clock(end)
	s.BreakStart = clockPtr(breakStart)
	s.BreakEnd = clockPtr(breakEnd)
	return &s, nil
}

func scanException(row pgx.Row) (*Exception, error) {
	var e Exception
	var start, end *int
	var ctype *string

	err := row.Scan(
		&e.ID,
		&e.DoctorID,
		&e.Date,
		&start,
		&end,
		&e.IsAvailable,
		&ctype,
		&e.Reason,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}

	e.Start = clockPtr(start)
	e.End = clockPtr(end)
	if ctype != nil {
		t := ConsultationType(*ctype)
		e.ConsultationType = &t
	}
	return &e, nil
}

const slotColumns = `id, doctor_id, day_of_week, start_min, end_min, consultation_type,
	slot_duration_minutes, break_start_min, break_end_min, is_active, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*WeeklySlot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM weekly_slots
		WHERE id = $1 AND doctor_id = $2
	`, slotID, doctorID)
	return scanSlot(row)
}

func (r *PgRepository) ListActiveSlots(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM weekly_slots
		WHERE doctor_id = $1 AND is_active = true
		ORDER BY day_of_week, start_min
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *PgRepository) ListActiveSlotsForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]WeeklySlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM weekly_slots
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active = true
		ORDER BY start_min
	`, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]WeeklySlot, error) {
	var result []WeeklySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertSlot(ctx context.Context, slot *WeeklySlot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO weekly_slots (id, doctor_id, day_of_week, start_min, end_min,
			consultation_type, slot_duration_minutes, break_start_min, break_end_min,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, slot.ID, slot.DoctorID, slot.DayOfWeek, int(slot.Start), int(slot.End),
		slot.ConsultationType, slot.SlotDurationMinutes,
		minutesPtr(slot.BreakStart), minutesPtr(slot.BreakEnd),
		slot.IsActive, slot.CreatedAt, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert weekly slot: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateSlot(ctx context.Context, slot *WeeklySlot) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE weekly_slots
		SET start_min = $3,
		    end_min = $4,
		    consultation_type = $5,
		    slot_duration_minutes = $6,
		    break_start_min = $7,
		    break_end_min = $8,
		    is_active = $9,
		    updated_at = $10
		WHERE id = $1 AND doctor_id = $2
	`, slot.ID, slot.DoctorID, int(slot.Start), int(slot.End),
		slot.ConsultationType, slot.SlotDurationMinutes,
		minutesPtr(slot.BreakStart), minutesPtr(slot.BreakEnd),
		slot.IsActive, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update weekly slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, doctorID, slotID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM weekly_slots
		WHERE id = $1 AND doctor_id = $2
	`, slotID, doctorID)
	if err != nil {
		return fmt.Errorf("delete weekly slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) ReplaceDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, slots []WeeklySlot) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM weekly_slots
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("clear day: %w", err)
	}
	for i := range slots {
		if err := r.InsertSlot(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

const exceptionColumns = `id, doctor_id, exception_date, start_min, end_min,
	is_available, consultation_type, reason, created_at`

func (r *PgRepository) GetException(ctx context.Context, doctorID, exceptionID uuid.UUID) (*Exception, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+exceptionColumns+`
		FROM availability_exceptions
		WHERE id = $1 AND doctor_id = $2
	`, exceptionID, doctorID)
	return scanException(row)
}

func (r *PgRepository) InsertException(ctx context.Context, exc *Exception) error {
	var ctype *string
	if exc.ConsultationType != nil {
		v := string(*exc.ConsultationType)
		ctype = &v
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO availability_exceptions (id, doctor_id, exception_date, start_min,
			end_min, is_available, consultation_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, exc.ID, exc.DoctorID, exc.Date, minutesPtr(exc.Start), minutesPtr(exc.End),
		exc.IsAvailable, ctype, exc.Reason, exc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	return nil
}

func (r *PgRepository) ListExceptions(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]Exception, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM availability_exceptions
		WHERE doctor_id = $1`
	args := []any{doctorID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND exception_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND exception_date <= $%d", len(args))
	}
	query += " ORDER BY exception_date"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) DeleteException(ctx context.Context, doctorID, exceptionID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM availability_exceptions
		WHERE id = $1 AND doctor_id = $2
	`, exceptionID, doctorID)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}
