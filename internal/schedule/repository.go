package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound      = errors.New("availability slot not found")
	ErrExceptionNotFound = errors.New("availability exception not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*WeeklySlot, error)
	ListActiveSlots(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error)
	ListActiveSlotsForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]WeeklySlot, error)
	InsertSlot(ctx context.Context, slot *WeeklySlot) error
	UpdateSlot(ctx context.Context, slot *WeeklySlot) error
	DeleteSlot(ctx context.Context, doctorID, slotID uuid.UUID) error

	// ReplaceDay swaps out every slot on one weekday in a single shot,
	// used by the bulk working-hours operation.
	ReplaceDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, slots []WeeklySlot) error

	GetException(ctx context.Context, doctorID, exceptionID uuid.UUID) (*Exception, error)
	InsertException(ctx context.Context, exc *Exception) error
	ListExceptions(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]Exception, error)
	DeleteException(ctx context.Context, doctorID, exceptionID uuid.UUID) error
}
