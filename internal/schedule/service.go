package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

var (
	ErrInvalidTimeRange        = errors.New("end time must be after start time")
	ErrInvalidSlotDuration     = fmt.Errorf("slot duration must be between %d and %d minutes", MinSlotDurationMinutes, MaxSlotDurationMinutes)
	ErrInvalidDayOfWeek        = errors.New("day of week must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidBreak            = errors.New("break window must lie within the slot")
	ErrInvalidConsultationType = errors.New("invalid consultation type")
	ErrSlotOverlap             = errors.New("overlaps with an existing slot")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SlotInput carries the doctor-edited fields of a weekly slot.
type SlotInput struct {
	DayOfWeek           int
	Start               timeutil.Clock
	End                 timeutil.Clock
	ConsultationType    ConsultationType
	SlotDurationMinutes int
	BreakStart          *timeutil.Clock
	BreakEnd            *timeutil.Clock
}

func (in SlotInput) validate() error {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if in.End <= in.Start {
		return ErrInvalidTimeRange
	}
	if in.SlotDurationMinutes < MinSlotDurationMinutes || in.SlotDurationMinutes > MaxSlotDurationMinutes {
		return ErrInvalidSlotDuration
	}
	if !in.ConsultationType.Valid() {
		return ErrInvalidConsultationType
	}
	if (in.BreakStart == nil) != (in.BreakEnd == nil) {
		return ErrInvalidBreak
	}
	if in.BreakStart != nil {
		if *in.BreakEnd <= *in.BreakStart {
			return ErrInvalidBreak
		}
		if *in.BreakStart < in.Start || *in.BreakEnd > in.End {
			return ErrInvalidBreak
		}
	}
	return nil
}

// CreateSlot adds a recurring slot after checking the half-open overlap
// discipline against the doctor's other active slots on that day.
func (s *Service) CreateSlot(ctx context.Context, doctorID uuid.UUID, in SlotInput) (*WeeklySlot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, doctorID, in.DayOfWeek, in.Start, in.End, uuid.Nil); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	slot := &WeeklySlot{
		ID:                  uuid.New(),
		DoctorID:            doctorID,
		DayOfWeek:           in.DayOfWeek,
		Start:               in.Start,
		End:                 in.End,
		ConsultationType:    in.ConsultationType,
		SlotDurationMinutes: in.SlotDurationMinutes,
		BreakStart:          in.BreakStart,
		BreakEnd:            in.BreakEnd,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.InsertSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	return slot, nil
}

// SlotUpdate mutates only the provided fields.
type SlotUpdate struct {
	Start               *timeutil.Clock
	End                 *timeutil.Clock
	ConsultationType    *ConsultationType
	SlotDurationMinutes *int
	BreakStart          *timeutil.Clock
	BreakEnd            *timeutil.Clock
	ClearBreak          bool
	IsActive            *bool
}

// UpdateSlot applies a partial update, re-running validation and the
// overlap check whenever the time window changes.
func (s *Service) UpdateSlot(ctx context.Context, doctorID, slotID uuid.UUID, upd SlotUpdate) (*WeeklySlot, error) {
	slot, err := s.repo.GetSlot(ctx, doctorID, slotID)
	if err != nil {
		return nil, err
	}

	timesChanged := false
	if upd.Start != nil {
		slot.Start = *upd.Start
		timesChanged = true
	}
	if upd.End != nil {
		slot.End = *upd.End
		timesChanged = true
	}
	if upd.ConsultationType != nil {
		slot.ConsultationType = *upd.ConsultationType
	}
	if upd.SlotDurationMinutes != nil {
		slot.SlotDurationMinutes = *upd.SlotDurationMinutes
	}
	if upd.ClearBreak {
		slot.BreakStart = nil
		slot.BreakEnd = nil
	}
	if upd.BreakStart != nil {
		slot.BreakStart = upd.BreakStart
	}
	if upd.BreakEnd != nil {
		slot.BreakEnd = upd.BreakEnd
	}
	if upd.IsActive != nil {
		slot.IsActive = *upd.IsActive
	}

	in := SlotInput{
		DayOfWeek:           slot.DayOfWeek,
		Start:               slot.Start,
		End:                 slot.End,
		ConsultationType:    slot.ConsultationType,
		SlotDurationMinutes: slot.SlotDurationMinutes,
		BreakStart:          slot.BreakStart,
		BreakEnd:            slot.BreakEnd,
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if timesChanged && slot.IsActive {
		if err := s.checkOverlap(ctx, doctorID, slot.DayOfWeek, slot.Start, slot.End, slot.ID); err != nil {
			return nil, err
		}
	}

	slot.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, doctorID, slotID uuid.UUID) error {
	return s.repo.DeleteSlot(ctx, doctorID, slotID)
}

func (s *Service) checkOverlap(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, start, end timeutil.Clock, excludeID uuid.UUID) error {
	existing, err := s.repo.ListActiveSlotsForDay(ctx, doctorID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("list slots for day: %w", err)
	}
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		if timeutil.Overlaps(start, end, existing[i].Start, existing[i].End) {
			return fmt.Errorf("%w: %s-%s", ErrSlotOverlap, existing[i].Start, existing[i].End)
		}
	}
	return nil
}

// WeeklySchedule returns all seven days annotated with available minutes
// and slot capacity, including non-working days.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) (*WeeklySchedule, error) {
	slots, err := s.repo.ListActiveSlots(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}

	sched := &WeeklySchedule{DoctorID: doctorID}
	for day := 0; day < 7; day++ {
		sched.Days[day] = DaySchedule{
			DayOfWeek: day,
			DayName:   timeutil.DayName(day),
			Slots:     []WeeklySlot{},
		}
	}
	for _, slot := range slots {
		ds := &sched.Days[slot.DayOfWeek]
		ds.Slots = append(ds.Slots, slot)
		ds.TotalMinutes += slot.TotalMinutes()
		ds.SlotCapacity += slot.SlotCapacity()
		ds.IsWorkingDay = true
	}
	return sched, nil
}

// DayInput describes one weekday for the bulk working-hours operation.
type DayInput struct {
	DayOfWeek    int
	IsWorkingDay bool
	Slots        []SlotInput
}

// SetWorkingHours replaces each named day's slots wholesale. Days absent
// from the request are left untouched.
func (s *Service) SetWorkingHours(ctx context.Context, doctorID uuid.UUID, days []DayInput) (*WeeklySchedule, error) {
	now := time.Now().UTC()
	for _, day := range days {
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return nil, ErrInvalidDayOfWeek
		}

		var slots []WeeklySlot
		if day.IsWorkingDay {
			for _, in := range day.Slots {
				in.DayOfWeek = day.DayOfWeek
				if err := in.validate(); err != nil {
					return nil, err
				}
				for _, prev := range slots {
					if timeutil.Overlaps(in.Start, in.End, prev.Start, prev.End) {
						return nil, fmt.Errorf("%w: %s-%s", ErrSlotOverlap, prev.Start, prev.End)
					}
				}
				slots = append(slots, WeeklySlot{
					ID:                  uuid.New(),
					DoctorID:            doctorID,
					DayOfWeek:           day.DayOfWeek,
					Start:               in.Start,
					End:                 in.End,
					ConsultationType:    in.ConsultationType,
					SlotDurationMinutes: in.SlotDurationMinutes,
					BreakStart:          in.BreakStart,
					BreakEnd:            in.BreakEnd,
					IsActive:            true,
					CreatedAt:           now,
					UpdatedAt:           now,
				})
			}
		}

		if err := s.repo.ReplaceDay(ctx, doctorID, day.DayOfWeek, slots); err != nil {
			return nil, fmt.Errorf("replace day %d: %w", day.DayOfWeek, err)
		}
	}

	return s.WeeklySchedule(ctx, doctorID)
}

// ExceptionInput carries a single date override. Exceptions are pure data:
// no reconciliation against weekly slots happens at write time, the
// compositor resolves them at read time.
type ExceptionInput struct {
	Date             time.Time
	Start            *timeutil.Clock
	End              *timeutil.Clock
	IsAvailable      bool
	ConsultationType *ConsultationType
	Reason           string
}

func (s *Service) CreateException(ctx context.Context, doctorID uuid.UUID, in ExceptionInput) (*Exception, error) {
	if (in.Start == nil) != (in.End == nil) {
		return nil, ErrInvalidTimeRange
	}
	if in.Start != nil && *in.End <= *in.Start {
		return nil, ErrInvalidTimeRange
	}
	if in.ConsultationType != nil && !in.ConsultationType.Valid() {
		return nil, ErrInvalidConsultationType
	}

	exc := &Exception{
		ID:               uuid.New(),
		DoctorID:         doctorID,
		Date:             timeutil.MidnightUTC(in.Date),
		Start:            in.Start,
		End:              in.End,
		IsAvailable:      in.IsAvailable,
		ConsultationType: in.ConsultationType,
		Reason:           in.Reason,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.repo.InsertException(ctx, exc); err != nil {
		return nil, fmt.Errorf("insert exception: %w", err)
	}
	return exc, nil
}

func (s *Service) Exceptions(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]Exception, error) {
	return s.repo.ListExceptions(ctx, doctorID, from, to)
}

func (s *Service) DeleteException(ctx context.Context, doctorID, exceptionID uuid.UUID) error {
	return s.repo.DeleteException(ctx, doctorID, exceptionID)
}
