// Package absence stores doctor unavailability periods and detects which
// existing appointments they threaten. Absences are never hard-deleted:
// conflict counts stay auditable after cancellation.
package absence

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

type Type string

const (
	TypeVacation   Type = "vacation"
	TypeSick       Type = "sick"
	TypeTraining   Type = "training"
	TypeConference Type = "conference"
	TypePersonal   Type = "personal"
	TypeOther      Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeVacation, TypeSick, TypeTraining, TypeConference, TypePersonal, TypeOther:
		return true
	}
	return false
}

type RecurrencePattern string

const (
	RecurrenceNone     RecurrencePattern = "none"
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
)

func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Absence is an inclusive date-range unavailability period, optionally
// restricted to a time-of-day window. Absent times mean the whole day.
type Absence struct {
	ID       uuid.UUID
	DoctorID uuid.UUID

	StartDate time.Time
	EndDate   time.Time
	Start     *timeutil.Clock
	End       *timeutil.Clock

	Type   Type
	Title  *string
	Reason *string

	IsRecurring       bool
	RecurrencePattern RecurrencePattern
	RecurrenceEndDate *time.Time

	NotifyPatients     bool
	PatientsNotifiedAt *time.Time

	// AffectedAppointmentsCount is denormalized from the conflict scan at
	// create/update time and never retroactively cleared.
	AffectedAppointmentsCount int

	IsActive    bool
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Absence) IsFullDay() bool {
	return a.Start == nil || a.End == nil
}

// Covers reports whether the inclusive date range contains the given date.
func (a *Absence) Covers(date time.Time) bool {
	d := timeutil.MidnightUTC(date)
	return !d.Before(timeutil.MidnightUTC(a.StartDate)) && !d.After(timeutil.MidnightUTC(a.EndDate))
}

// Blocks reports whether the absence makes the doctor unavailable on the
// given date, optionally at a specific time of day. A full-day absence
// blocks regardless of the time; a partial one blocks only inside its
// half-open window, and never blocks a date-only query.
func (a *Absence) Blocks(date time.Time, at *timeutil.Clock) bool {
	if !a.IsActive || !a.Covers(date) {
		return false
	}
	if a.IsFullDay() {
		return true
	}
	if at == nil {
		return false
	}
	return *at >= *a.Start && *at < *a.End
}
