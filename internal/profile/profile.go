// Package profile provides read-through lookups for doctor and patient
// records. Identity and profile CRUD live elsewhere; the scheduling engine
// only consumes the fields it needs for booking decisions and conflict
// reports.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

type Doctor struct {
	ID                  uuid.UUID
	FirstName           string
	LastName            string
	Specialty           string
	FeePresentiel       decimal.Decimal
	FeeOnline           decimal.Decimal
	Currency            string
	OffersPresentiel    bool
	OffersOnline        bool
	IsAcceptingPatients bool
	TotalConsultations  int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// DoctorDirectory is the doctor-profile collaborator the booking engine
// consumes: pricing, accepted consultation types, the accepting flag, and
// the consultation counter bumped on completion.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	IncrementConsultations(ctx context.Context, id uuid.UUID) error
}

// PatientLookup resolves patient display data for conflict reports.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
}
