// Package availability merges the weekly schedule, exceptions, absences,
// and booked appointments into a computed day-by-day slot list. All
// reconciliation between the layers happens here, at read time.
package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/absence"
	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/schedule"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

var ErrInvalidDateRange = errors.New("end date must not be before start date")

// MaxRangeDays bounds a single computation request.
const MaxRangeDays = 92

var ErrRangeTooLarge = errors.New("date range too large")

type ScheduleSource interface {
	ListActiveSlots(ctx context.Context, doctorID uuid.UUID) ([]schedule.WeeklySlot, error)
	ListExceptions(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]schedule.Exception, error)
}

type AbsenceSource interface {
	ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]absence.Absence, error)
}

type AppointmentSource interface {
	ListActiveForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

// SubSlot is one bookable unit on a specific day.
type SubSlot struct {
	Start            timeutil.Clock           `json:"start_time"`
	End              timeutil.Clock           `json:"end_time"`
	ConsultationType schedule.ConsultationType `json:"consultation_type"`
	IsBooked         bool                     `json:"is_booked"`
	IsAvailable      bool                     `json:"is_available"`
}

// Day is the computed availability for one calendar date. Past days are
// still computed so history remains inspectable.
type Day struct {
	Date        time.Time `json:"date"`
	DayOfWeek   int       `json:"day_of_week"`
	DayName     string    `json:"day_name"`
	IsBlocked   bool      `json:"is_blocked"`
	BlockReason *string   `json:"block_reason,omitempty"`
	Slots       []SubSlot `json:"slots"`
}

// Service is the compositor. It only reads; every layer stays authoritative
// for its own writes.
type Service struct {
	schedules    ScheduleSource
	absences     AbsenceSource
	appointments AppointmentSource

	now func() time.Time
}

func NewService(schedules ScheduleSource, absences AbsenceSource, appointments AppointmentSource) *Service {
	return &Service{
		schedules:    schedules,
		absences:     absences,
		appointments: appointments,
		now:          time.Now,
	}
}

// Compute resolves the doctor's bookable calendar for every day in
// [startDate, endDate], inclusive.
func (s *Service) Compute(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]Day, error) {
	from := timeutil.MidnightUTC(startDate)
	to := timeutil.MidnightUTC(endDate)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	if int(to.Sub(from).Hours()/24) >= MaxRangeDays {
		return nil, ErrRangeTooLarge
	}

	slots, err := s.schedules.ListActiveSlots(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	exceptions, err := s.schedules.ListExceptions(ctx, doctorID, &from, &to)
	if err != nil {
		return nil, err
	}
	absences, err := s.absences.ListActiveOverlapping(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListActiveForDoctorBetween(ctx, doctorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	slotsByDay := make(map[int][]schedule.WeeklySlot)
	for _, slot := range slots {
		slotsByDay[slot.DayOfWeek] = append(slotsByDay[slot.DayOfWeek], slot)
	}
	exceptionsByDate := make(map[time.Time][]schedule.Exception)
	for _, exc := range exceptions {
		d := timeutil.MidnightUTC(exc.Date)
		exceptionsByDate[d] = append(exceptionsByDate[d], exc)
	}
	apptsByDate := make(map[time.Time][]appointment.Appointment)
	for _, a := range appts {
		d := timeutil.MidnightUTC(a.StartAt)
		apptsByDate[d] = append(apptsByDate[d], a)
	}

	var days []Day
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := s.computeDay(d, slotsByDay[timeutil.WeekdayIndex(d)], exceptionsByDate[d], absences, apptsByDate[d])
		days = append(days, day)
	}
	return days, nil
}

func (s *Service) computeDay(date time.Time, slots []schedule.WeeklySlot, exceptions []schedule.Exception, absences []absence.Absence, appts []appointment.Appointment) Day {
	day := Day{
		Date:      date,
		DayOfWeek: timeutil.WeekdayIndex(date),
		DayName:   timeutil.DayName(timeutil.WeekdayIndex(date)),
	}

	// A full-day absence wins over a full-day blocking exception when both
	// cover the date.
	for i := range absences {
		a := &absences[i]
		if a.Covers(date) && a.IsFullDay() {
			day.IsBlocked = true
			day.BlockReason = absenceReason(a)
			return day
		}
	}
	for i := range exceptions {
		e := &exceptions[i]
		if !e.IsAvailable && e.IsFullDay() {
			day.IsBlocked = true
			if e.Reason != "" {
				reason := e.Reason
				day.BlockReason = &reason
			}
			return day
		}
	}

	for _, slot := range slots {
		day.Slots = append(day.Slots, s.expandSlot(date, slot, exceptions, absences, appts)...)
	}

	// Additive exceptions open extra windows outside the weekly schedule,
	// carved into default-length units.
	for i := range exceptions {
		e := &exceptions[i]
		if e.IsAvailable && !e.IsFullDay() {
			day.Slots = append(day.Slots, s.expandWindow(date, *e.Start, *e.End,
				appointment.DefaultDurationMinutes, exceptionType(e), exceptions, absences, appts)...)
		}
	}

	sort.Slice(day.Slots, func(i, j int) bool { return day.Slots[i].Start < day.Slots[j].Start })
	return day
}

func (s *Service) expandSlot(date time.Time, slot schedule.WeeklySlot, exceptions []schedule.Exception, absences []absence.Absence, appts []appointment.Appointment) []SubSlot {
	units := s.expandWindow(date, slot.Start, slot.End, slot.SlotDurationMinutes, slot.ConsultationType, exceptions, absences, appts)
	if !slot.HasBreak() {
		return units
	}
	kept := units[:0]
	for _, u := range units {
		if timeutil.Overlaps(u.Start, u.End, *slot.BreakStart, *slot.BreakEnd) {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

func (s *Service) expandWindow(date time.Time, start, end timeutil.Clock, durationMinutes int, ctype schedule.ConsultationType, exceptions []schedule.Exception, absences []absence.Absence, appts []appointment.Appointment) []SubSlot {
	var units []SubSlot
	duration := timeutil.Clock(durationMinutes)
	nowAt := s.now()

	for t := start; t+duration <= end; t += duration {
		unitStart, unitEnd := t, t+duration
		if suppressed(date, unitStart, unitEnd, exceptions, absences) {
			continue
		}

		unit := SubSlot{
			Start:            unitStart,
			End:              unitEnd,
			ConsultationType: ctype,
		}

		// Booked against the appointment's real duration: the calendar
		// shows what actually occupies the doctor, not the booking
		// policy's fixed window.
		for i := range appts {
			a := &appts[i]
			if timeutil.OverlapsAt(a.StartAt, a.End(), unitStart.On(date), unitEnd.On(date)) {
				unit.IsBooked = true
				break
			}
		}

		unit.IsAvailable = !unit.IsBooked && unitStart.On(date).After(nowAt)
		units = append(units, unit)
	}
	return units
}

// suppressed drops a sub-slot covered by a partial-day blocking exception
// or a partial-day absence window.
func suppressed(date time.Time, start, end timeutil.Clock, exceptions []schedule.Exception, absences []absence.Absence) bool {
	for i := range exceptions {
		e := &exceptions[i]
		if !e.IsAvailable && !e.IsFullDay() && e.Start != nil && e.End != nil &&
			timeutil.Overlaps(start, end, *e.Start, *e.End) {
			return true
		}
	}
	for i := range absences {
		a := &absences[i]
		if a.Covers(date) && !a.IsFullDay() && timeutil.Overlaps(start, end, *a.Start, *a.End) {
			return true
		}
	}
	return false
}

func absenceReason(a *absence.Absence) *string {
	switch {
	case a.Title != nil && *a.Title != "":
		return a.Title
	case a.Reason != nil && *a.Reason != "":
		return a.Reason
	default:
		reason := string(a.Type)
		return &reason
	}
}

func exceptionType(e *schedule.Exception) schedule.ConsultationType {
	if e.ConsultationType != nil {
		return *e.ConsultationType
	}
	return schedule.TypeBoth
}

// IsBlockedAt reports whether an active absence or a blocking exception
// covers the instant. The booking engine runs this pre-flight so a slot
// the calendar shows as blocked cannot be booked.
func (s *Service) IsBlockedAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	t := at.UTC()
	day := timeutil.MidnightUTC(t)
	clock := timeutil.Clock(t.Hour()*60 + t.Minute())

	absences, err := s.absences.ListActiveOverlapping(ctx, doctorID, day, day)
	if err != nil {
		return false, err
	}
	for i := range absences {
		if absences[i].Blocks(day, &clock) {
			return true, nil
		}
	}

	exceptions, err := s.schedules.ListExceptions(ctx, doctorID, &day, &day)
	if err != nil {
		return false, err
	}
	for i := range exceptions {
		e := &exceptions[i]
		if e.IsAvailable {
			continue
		}
		if e.IsFullDay() {
			return true, nil
		}
		if e.Start != nil && e.End != nil && clock >= *e.Start && clock < *e.End {
			return true, nil
		}
	}
	return false, nil
}
