package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/scheduling-engine/internal/schedule"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

// memoryRepo is an in-memory schedule.Repository for service tests.
type memoryRepo struct {
	slots      map[uuid.UUID]*schedule.WeeklySlot
	exceptions map[uuid.UUID]*schedule.Exception
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		slots:      make(map[uuid.UUID]*schedule.WeeklySlot),
		exceptions: make(map[uuid.UUID]*schedule.Exception),
	}
}

func (m *memoryRepo) GetSlot(_ context.Context, doctorID, slotID uuid.UUID) (*schedule.WeeklySlot, error) {
	s, ok := m.slots[slotID]
	if !ok || s.DoctorID != doctorID {
		return nil, schedule.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryRepo) ListActiveSlots(_ context.Context, doctorID uuid.UUID) ([]schedule.WeeklySlot, error) {
	var out []schedule.WeeklySlot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListActiveSlotsForDay(_ context.Context, doctorID uuid.UUID, day int) ([]schedule.WeeklySlot, error) {
	var out []schedule.WeeklySlot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.DayOfWeek == day && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertSlot(_ context.Context, slot *schedule.WeeklySlot) error {
	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *memoryRepo) UpdateSlot(_ context.Context, slot *schedule.WeeklySlot) error {
	if _, ok := m.slots[slot.ID]; !ok {
		return schedule.ErrSlotNotFound
	}
	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *memoryRepo) DeleteSlot(_ context.Context, doctorID, slotID uuid.UUID) error {
	s, ok := m.slots[slotID]
	if !ok || s.DoctorID != doctorID {
		return schedule.ErrSlotNotFound
	}
	delete(m.slots, slotID)
	return nil
}

func (m *memoryRepo) ReplaceDay(_ context.Context, doctorID uuid.UUID, day int, slots []schedule.WeeklySlot) error {
	for id, s := range m.slots {
		if s.DoctorID == doctorID && s.DayOfWeek == day {
			delete(m.slots, id)
		}
	}
	for i := range slots {
		cp := slots[i]
		m.slots[cp.ID] = &cp
	}
	return nil
}

func (m *memoryRepo) GetException(_ context.Context, doctorID, id uuid.UUID) (*schedule.Exception, error) {
	e, ok := m.exceptions[id]
	if !ok || e.DoctorID != doctorID {
		return nil, schedule.ErrExceptionNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memoryRepo) InsertException(_ context.Context, exc *schedule.Exception) error {
	cp := *exc
	m.exceptions[exc.ID] = &cp
	return nil
}

func (m *memoryRepo) ListExceptions(_ context.Context, doctorID uuid.UUID, from, to *time.Time) ([]schedule.Exception, error) {
	var out []schedule.Exception
	for _, e := range m.exceptions {
		if e.DoctorID != doctorID {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepo) DeleteException(_ context.Context, doctorID, id uuid.UUID) error {
	e, ok := m.exceptions[id]
	if !ok || e.DoctorID != doctorID {
		return schedule.ErrExceptionNotFound
	}
	delete(m.exceptions, id)
	return nil
}

func clock(s string) timeutil.Clock { return timeutil.MustClock(s) }

func clockp(s string) *timeutil.Clock {
	c := timeutil.MustClock(s)
	return &c
}

func baseSlot() schedule.SlotInput {
	return schedule.SlotInput{
		DayOfWeek:           0,
		Start:               clock("09:00"),
		End:                 clock("17:00"),
		ConsultationType:    schedule.TypeBoth,
		SlotDurationMinutes: 30,
	}
}

func TestCreateSlot_RejectsOverlap(t *testing.T) {
	svc := schedule.NewService(newMemoryRepo())
	ctx := context.Background()
	doctorID := uuid.New()

	_, err := svc.CreateSlot(ctx, doctorID, baseSlot())
	require.NoError(t, err)

	// [16:00, 18:00) overlaps [09:00, 17:00).
	in := baseSlot()
	in.Start = clock("16:00")
	in.End = clock("18:00")
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrSlotOverlap)

	// Touching interval [17:00, 19:00) is allowed.
	in.Start = clock("17:00")
	in.End = clock("19:00")
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.NoError(t, err)

	// Same window on another day is independent.
	in = baseSlot()
	in.DayOfWeek = 1
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.NoError(t, err)

	// And other doctors are unaffected.
	_, err = svc.CreateSlot(ctx, uuid.New(), baseSlot())
	assert.NoError(t, err)
}

func TestCreateSlot_Validation(t *testing.T) {
	svc := schedule.NewService(newMemoryRepo())
	ctx := context.Background()
	doctorID := uuid.New()

	in := baseSlot()
	in.End = in.Start
	_, err := svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidTimeRange)

	in = baseSlot()
	in.SlotDurationMinutes = 5
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidSlotDuration)

	in = baseSlot()
	in.SlotDurationMinutes = 121
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidSlotDuration)

	in = baseSlot()
	in.DayOfWeek = 7
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidDayOfWeek)

	in = baseSlot()
	in.BreakStart = clockp("12:00")
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidBreak, "break start without break end")

	in = baseSlot()
	in.BreakStart = clockp("08:00")
	in.BreakEnd = clockp("10:00")
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidBreak, "break outside slot")

	in = baseSlot()
	in.ConsultationType = "walk-in"
	_, err = svc.CreateSlot(ctx, doctorID, in)
	assert.ErrorIs(t, err, schedule.ErrInvalidConsultationType)
}

func TestUpdateSlot_OverlapDisciplineOnTimeChange(t *testing.T) {
	svc := schedule.NewService(newMemoryRepo())
	ctx := context.Background()
	doctorID := uuid.New()

	morning := baseSlot()
	morning.End = clock("12:00")
	first, err := svc.CreateSlot(ctx, doctorID, morning)
	require.NoError(t, err)

	afternoon := baseSlot()
	afternoon.Start = clock("14:00")
	afternoon.End = clock("18:00")
	second, err := svc.CreateSlot(ctx, doctorID, afternoon)
	require.NoError(t, err)

	// Stretching the morning slot into the afternoon one is rejected.
	_, err = svc.UpdateSlot(ctx, doctorID, first.ID, schedule.SlotUpdate{End: clockp("15:00")})
	assert.ErrorIs(t, err, schedule.ErrSlotOverlap)

	// Moving it to the free middle window is fine.
	updated, err := svc.UpdateSlot(ctx, doctorID, first.ID, schedule.SlotUpdate{End: clockp("14:00")})
	require.NoError(t, err)
	assert.Equal(t, clock("14:00"), updated.End)

	// Deactivated slots do not participate in overlap checks.
	inactive := false
	_, err = svc.UpdateSlot(ctx, doctorID, second.ID, schedule.SlotUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.UpdateSlot(ctx, doctorID, first.ID, schedule.SlotUpdate{End: clockp("15:00")})
	assert.NoError(t, err)
}

func TestWeeklySchedule_AnnotatesAllSevenDays(t *testing.T) {
	svc := schedule.NewService(newMemoryRepo())
	ctx := context.Background()
	doctorID := uuid.New()

	// Monday 09:00-17:00, 30 min slots, break 12:00-13:00.
	in := baseSlot()
	in.BreakStart = clockp("12:00")
	in.BreakEnd = clockp("13:00")
	_, err := svc.CreateSlot(ctx, doctorID, in)
	require.NoError(t, err)

	sched, err := svc.WeeklySchedule(ctx, doctorID)
	require.NoError(t, err)

	monday := sched.Days[0]
	assert.True(t, monday.IsWorkingDay)
	assert.Equal(t, "Monday", monday.DayName)
	assert.Equal(t, 420, monday.TotalMinutes)
	assert.Equal(t, 14, monday.SlotCapacity)

	for day := 1; day < 7; day++ {
		assert.Falsef(t, sched.Days[day].IsWorkingDay, "day %d should not be a working day", day)
		assert.Zero(t, sched.Days[day].SlotCapacity)
		assert.NotEmpty(t, sched.Days[day].DayName)
	}
}

func TestSetWorkingHours_ReplacesDays(t *testing.T) {
	svc := schedule.NewService(newMemoryRepo())
	ctx := context.Background()
	doctorID := uuid.New()

	_, err := svc.CreateSlot(ctx, doctorID, baseSlot())
	require.NoError(t, err)

	short := baseSlot()
	short.End = clock("12:00")
	sched, err := svc.SetWorkingHours(ctx, doctorID, []schedule.DayInput{
		{DayOfWeek: 0, IsWorkingDay: true, Slots: []schedule.SlotInput{short}},
		{DayOfWeek: 1, IsWorkingDay: false},
	})
	require.NoError(t, err)

	require.Len(t, sched.Days[0].Slots, 1)
	assert.Equal(t, clock("12:00"), sched.Days[0].Slots[0].End)
	assert.False(t, sched.Days[1].IsWorkingDay)

	// Overlapping slots within one submitted day are rejected.
	_, err = svc.SetWorkingHours(ctx, doctorID, []schedule.DayInput{
		{DayOfWeek: 2, IsWorkingDay: true, Slots: []schedule.SlotInput{baseSlot(), baseSlot()}},
	})
	assert.ErrorIs(t, err, schedule.ErrSlotOverlap)
}

func TestCreateException_NoWriteTimeReconciliation(t *testing.T) {
	repo := newMemoryRepo()
	svc := schedule.NewService(repo)
	ctx := context.Background()
	doctorID := uuid.New()

	date := timeutil.Date(2025, time.June, 2)

	// A block right on top of normal working hours is accepted as-is.
	_, err := svc.CreateSlot(ctx, doctorID, baseSlot())
	require.NoError(t, err)

	exc, err := svc.CreateException(ctx, doctorID, schedule.ExceptionInput{
		Date:        date,
		IsAvailable: false,
		Reason:      "conference",
	})
	require.NoError(t, err)
	assert.True(t, exc.IsFullDay())

	// Several exceptions may pile up on one date.
	_, err = svc.CreateException(ctx, doctorID, schedule.ExceptionInput{
		Date:        date,
		Start:       clockp("18:00"),
		End:         clockp("20:00"),
		IsAvailable: true,
	})
	require.NoError(t, err)

	got, err := svc.Exceptions(ctx, doctorID, &date, &date)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Half-open window validation still applies.
	_, err = svc.CreateException(ctx, doctorID, schedule.ExceptionInput{
		Date:  date,
		Start: clockp("10:00"),
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidTimeRange)
}
