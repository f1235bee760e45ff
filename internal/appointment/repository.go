package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrConfirmationCodeTaken surfaces the unique constraint on
	// confirmation codes; the service retries with a fresh draw.
	ErrConfirmationCodeTaken = errors.New("confirmation code already in use")

	// ErrSlotTaken surfaces the storage-level uniqueness of
	// (doctor, start) for active appointments.
	ErrSlotTaken = errors.New("slot already has an active appointment")

	// ErrStaleStatus means a compare-and-set update lost against a
	// concurrent transition.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	Statuses     []Status
	From         *time.Time
	To           *time.Time
	UpcomingOnly bool
	Limit        int
	Offset       int
}

// Repository contains all DB interactions needed by the booking engine.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Insert(ctx context.Context, appt *Appointment) error

	// Update persists every mutable field, guarded by the status the
	// caller loaded (compare-and-set).
	Update(ctx context.Context, appt *Appointment, expect Status) error

	// CountActiveOverlapping counts pending/confirmed appointments for the
	// doctor whose fixed booking window intersects [start, end).
	CountActiveOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error)

	ListActiveForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, filter ListFilter) ([]Appointment, error)
}
