package absence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAbsenceNotFound = errors.New("absence not found")

// Repository contains all DB interactions for absences.
type Repository interface {
	GetByID(ctx context.Context, doctorID, absenceID uuid.UUID) (*Absence, error)
	Insert(ctx context.Context, a *Absence) error
	Update(ctx context.Context, a *Absence) error

	// ListActiveOverlapping returns active absences whose inclusive date
	// range intersects [from, to] (dates, times ignored).
	ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Absence, error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID, includeCancelled bool) ([]Absence, error)
}
