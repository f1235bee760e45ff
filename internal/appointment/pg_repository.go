package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/mediconnect/scheduling-engine/internal/db"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const apptColumns = `id, patient_id, doctor_id, start_at, duration_minutes, consultation_type,
	status, cancelled_at, cancelled_by, cancellation_reason, rescheduled_from_id,
	rescheduled_to_id, notes, doctor_notes, video_call_link, video_call_room_id,
	consultation_fee::text, currency, is_paid, payment_method, paid_at,
	confirmation_code, confirmed_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cancelledBy *string
	var fee string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartAt,
		&a.DurationMinutes,
		&a.ConsultationType,
		&a.Status,
		&a.CancelledAt,
		&cancelledBy,
		&a.CancellationReason,
		&a.RescheduledFromID,
		&a.RescheduledToID,
		&a.Notes,
		&a.DoctorNotes,
		&a.VideoCallLink,
		&a.VideoCallRoomID,
		&fee,
		&a.Currency,
		&a.IsPaid,
		&a.PaymentMethod,
		&a.PaidAt,
		&a.ConfirmationCode,
		&a.ConfirmedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if cancelledBy != nil {
		r := Role(*cancelledBy)
		a.CancelledBy = &r
	}
	if a.ConsultationFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse consultation fee: %w", err)
	}
	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Insert(ctx context.Context, appt *Appointment) error {
	var cancelledBy *string
	if appt.CancelledBy != nil {
		v := string(*appt.CancelledBy)
		cancelledBy = &v
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, start_at, duration_minutes,
			consultation_type, status, cancelled_at, cancelled_by, cancellation_reason,
			rescheduled_from_id, rescheduled_to_id, notes, doctor_notes, video_call_link,
			video_call_room_id, consultation_fee, currency, is_paid, payment_method,
			paid_at, confirmation_code, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.StartAt, appt.DurationMinutes,
		appt.ConsultationType, appt.Status, appt.CancelledAt, cancelledBy,
		appt.CancellationReason, appt.RescheduledFromID, appt.RescheduledToID,
		appt.Notes, appt.DoctorNotes, appt.VideoCallLink, appt.VideoCallRoomID,
		appt.ConsultationFee, appt.Currency, appt.IsPaid, appt.PaymentMethod,
		appt.PaidAt, appt.ConfirmationCode, appt.ConfirmedAt, appt.CreatedAt,
		appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "appointments_confirmation_code_key":
				return ErrConfirmationCodeTaken
			case "appointments_doctor_slot_active":
				return ErrSlotTaken
			}
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, appt *Appointment, expect Status) error {
	var cancelledBy *string
	if appt.CancelledBy != nil {
		v := string(*appt.CancelledBy)
		cancelledBy = &v
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET start_at = $3,
		    duration_minutes = $4,
		    consultation_type = $5,
		    status = $6,
		    cancelled_at = $7,
		    cancelled_by = $8,
		    cancellation_reason = $9,
		    rescheduled_from_id = $10,
		    rescheduled_to_id = $11,
		    notes = $12,
		    doctor_notes = $13,
		    video_call_link = $14,
		    video_call_room_id = $15,
		    is_paid = $16,
		    payment_method = $17,
		    paid_at = $18,
		    confirmed_at = $19,
		    updated_at = $20
		WHERE id = $1 AND status = $2
	`, appt.ID, expect, appt.StartAt, appt.DurationMinutes, appt.ConsultationType,
		appt.Status, appt.CancelledAt, cancelledBy, appt.CancellationReason,
		appt.RescheduledFromID, appt.RescheduledToID, appt.Notes, appt.DoctorNotes,
		appt.VideoCallLink, appt.VideoCallRoomID, appt.IsPaid, appt.PaymentMethod,
		appt.PaidAt, appt.ConfirmedAt, appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_doctor_slot_active" {
			return ErrSlotTaken
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *PgRepository) CountActiveOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at < $3
		  AND start_at + make_interval(mins => $4) > $2
		  AND id <> $5
	`, doctorID, start, end, BookingWindowMinutes, excludeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping appointments: %w", err)
	}
	return count, nil
}

func (r *PgRepository) ListActiveForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.list(ctx, "patient_id", patientID, filter)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.list(ctx, "doctor_id", doctorID, filter)
}

func (r *PgRepository) list(ctx context.Context, ownerColumn string, ownerID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE ` + ownerColumn + ` = $1`
	args := []any{ownerID}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND start_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND start_at < $%d", len(args))
	}
	if filter.UpcomingOnly {
		query += " AND start_at >= now() AND status IN ('pending', 'confirmed')"
	}

	query += " ORDER BY start_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
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
