package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

// ConsultationType describes which consultation kinds a slot can host.
type ConsultationType string

const (
	TypePresentiel ConsultationType = "presentiel"
	TypeOnline     ConsultationType = "online"
	TypeBoth       ConsultationType = "both"
)

func (t ConsultationType) Valid() bool {
	switch t {
	case TypePresentiel, TypeOnline, TypeBoth:
		return true
	}
	return false
}

const (
	MinSlotDurationMinutes = 10
	MaxSlotDurationMinutes = 120
)

// WeeklySlot is one recurring availability window on a day of week
// (0=Monday..6=Sunday). Soft-disabled via IsActive.
type WeeklySlot struct {
	ID                  uuid.UUID
	DoctorID            uuid.UUID
	DayOfWeek           int
	Start               timeutil.Clock
	End                 timeutil.Clock
	ConsultationType    ConsultationType
	SlotDurationMinutes int
	BreakStart          *timeutil.Clock
	BreakEnd            *timeutil.Clock
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (s *WeeklySlot) HasBreak() bool {
	return s.BreakStart != nil && s.BreakEnd != nil
}

// TotalMinutes is the slot span minus the break span.
func (s *WeeklySlot) TotalMinutes() int {
	total := int(s.End - s.Start)
	if s.HasBreak() {
		total -= int(*s.BreakEnd - *s.BreakStart)
	}
	if total < 0 {
		return 0
	}
	return total
}

// SlotCapacity is how many appointments of the configured duration fit.
func (s *WeeklySlot) SlotCapacity() int {
	return timeutil.SlotCapacity(s.TotalMinutes(), s.SlotDurationMinutes)
}

// Exception overrides the weekly schedule on a single date. A nil time
// window means the whole day. IsAvailable=false blocks, true adds extra
// availability outside normal hours.
type Exception struct {
	ID               uuid.UUID
	DoctorID         uuid.UUID
	Date             time.Time
	Start            *timeutil.Clock
	End              *timeutil.Clock
	IsAvailable      bool
	ConsultationType *ConsultationType
	Reason           string
	CreatedAt        time.Time
}

func (e *Exception) IsFullDay() bool {
	return e.Start == nil && e.End == nil
}

// DaySchedule annotates one day of the weekly schedule.
type DaySchedule struct {
	DayOfWeek    int
	DayName      string
	IsWorkingDay bool
	Slots        []WeeklySlot
	TotalMinutes int
	SlotCapacity int
}

// WeeklySchedule always carries all seven days, working or not.
type WeeklySchedule struct {
	DoctorID uuid.UUID
	Days     [7]DaySchedule
}
