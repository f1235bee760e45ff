package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mediconnect/scheduling-engine/internal/db"
)

type PgDirectory struct {
	db db.Querier
}

func NewPgDirectory(q db.Querier) *PgDirectory {
	return &PgDirectory{db: q}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var feePresentiel, feeOnline string

	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Specialty,
		&feePresentiel,
		&feeOnline,
		&d.Currency,
		&d.OffersPresentiel,
		&d.OffersOnline,
		&d.IsAcceptingPatients,
		&d.TotalConsultations,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if d.FeePresentiel, err = decimal.NewFromString(feePresentiel); err != nil {
		return nil, fmt.Errorf("parse presentiel fee: %w", err)
	}
	if d.FeeOnline, err = decimal.NewFromString(feeOnline); err != nil {
		return nil, fmt.Errorf("parse online fee: %w", err)
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var phone *string

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Phone = phone
	return &p, nil
}

func (r *PgDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, specialty,
		       consultation_fee_presentiel::text, consultation_fee_online::text,
		       currency, offers_presentiel, offers_online, is_accepting_patients,
		       total_consultations, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgDirectory) IncrementConsultations(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET total_consultations = total_consultations + 1,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment consultations: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
