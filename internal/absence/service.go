package absence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/event"
	"github.com/mediconnect/scheduling-engine/internal/profile"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

var (
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
	ErrInvalidTimeWindow  = errors.New("end time must be after start time")
	ErrInvalidAbsenceType = errors.New("invalid absence type")
	ErrInvalidRecurrence  = errors.New("invalid recurrence settings")
	ErrAbsenceCancelled   = errors.New("absence is cancelled")
)

// AppointmentSource is the slice of the booking store conflict detection
// reads from.
type AppointmentSource interface {
	ListActiveForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

// ConflictedAppointment pairs an affected appointment with patient display
// data for the notification fan-out.
type ConflictedAppointment struct {
	Appointment  appointment.Appointment
	PatientName  string
	PatientPhone *string
}

// ConflictReport summarizes which active appointments an absence window
// would disrupt.
type ConflictReport struct {
	HasConflicts   bool
	AffectedCount  int
	ConfirmedCount int
	Appointments   []ConflictedAppointment
	Recommendation string
}

// Service owns absence records and the conflict scans around them.
type Service struct {
	repo         Repository
	appointments AppointmentSource
	patients     profile.PatientLookup
	publisher    event.Publisher

	now func() time.Time
}

func NewService(repo Repository, appointments AppointmentSource, patients profile.PatientLookup, publisher event.Publisher) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		patients:     patients,
		publisher:    publisher,
		now:          time.Now,
	}
}

// CheckConflicts scans active appointments inside the absence window. A
// partial-day window excludes appointments that do not intersect
// [startTime, endTime) on the half-open overlap rule. excludeID is part of
// the call surface for re-scans of an existing absence; conflicts are
// computed against appointments, so there is no absence to filter out and
// the report is the same with or without it.
func (s *Service) CheckConflicts(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time, startTime, endTime *timeutil.Clock, excludeID *uuid.UUID) (*ConflictReport, error) {
	if endDate.Before(startDate) {
		return nil, ErrInvalidDateRange
	}

	from := timeutil.MidnightUTC(startDate)
	to := timeutil.MidnightUTC(endDate).AddDate(0, 0, 1)

	appts, err := s.appointments.ListActiveForDoctorBetween(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	report := &ConflictReport{}
	for _, a := range appts {
		if startTime != nil && endTime != nil {
			day := timeutil.MidnightUTC(a.StartAt)
			if !timeutil.OverlapsAt(a.StartAt, a.End(), startTime.On(day), endTime.On(day)) {
				continue
			}
		}

		conflicted := ConflictedAppointment{Appointment: a}
		if s.patients != nil {
			patient, err := s.patients.GetPatient(ctx, a.PatientID)
			if err == nil {
				conflicted.PatientName = patient.FullName()
				conflicted.PatientPhone = patient.Phone
			}
		}
		report.Appointments = append(report.Appointments, conflicted)

		report.AffectedCount++
		if a.Status == appointment.StatusConfirmed {
			report.ConfirmedCount++
		}
	}

	report.HasConflicts = report.AffectedCount > 0
	report.Recommendation = recommendation(report.AffectedCount, report.ConfirmedCount)
	return report, nil
}

func recommendation(affected, confirmed int) string {
	switch affected {
	case 0:
		return "No conflicts. You can proceed with creating this absence."
	case 1:
		return "1 appointment needs attention. Consider rescheduling before confirming."
	default:
		return fmt.Sprintf("%d appointments affected (%d confirmed). Please reschedule or notify patients.", affected, confirmed)
	}
}

// AbsenceInput is everything a doctor supplies when declaring an absence.
type AbsenceInput struct {
	DoctorID          uuid.UUID
	StartDate         time.Time
	EndDate           time.Time
	Start             *timeutil.Clock
	End               *timeutil.Clock
	Type              Type
	Title             *string
	Reason            *string
	IsRecurring       bool
	RecurrencePattern RecurrencePattern
	RecurrenceEndDate *time.Time
	NotifyPatients    bool
}

func (in *AbsenceInput) validate() error {
	if in.EndDate.Before(in.StartDate) {
		return ErrInvalidDateRange
	}
	if (in.Start == nil) != (in.End == nil) {
		return ErrInvalidTimeWindow
	}
	if in.Start != nil && *in.End <= *in.Start {
		return ErrInvalidTimeWindow
	}
	if in.Type != "" && !in.Type.Valid() {
		return ErrInvalidAbsenceType
	}
	if in.IsRecurring {
		if in.RecurrencePattern == "" || in.RecurrencePattern == RecurrenceNone || !in.RecurrencePattern.Valid() {
			return ErrInvalidRecurrence
		}
		if in.RecurrenceEndDate != nil && in.RecurrenceEndDate.Before(in.EndDate) {
			return ErrInvalidRecurrence
		}
	}
	return nil
}

// Create scans for conflicts first, then persists the absence with the
// conflict count denormalized onto it. The notified timestamp is stamped
// only when notifications were requested and there is something to notify.
func (s *Service) Create(ctx context.Context, in AbsenceInput) (*Absence, *ConflictReport, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	report, err := s.CheckConflicts(ctx, in.DoctorID, in.StartDate, in.EndDate, in.Start, in.End, nil)
	if err != nil {
		return nil, nil, err
	}

	nowAt := s.now().UTC()
	a := &Absence{
		ID:                        uuid.New(),
		DoctorID:                  in.DoctorID,
		StartDate:                 timeutil.MidnightUTC(in.StartDate),
		EndDate:                   timeutil.MidnightUTC(in.EndDate),
		Start:                     in.Start,
		End:                       in.End,
		Type:                      in.Type,
		Title:                     in.Title,
		Reason:                    in.Reason,
		IsRecurring:               in.IsRecurring,
		RecurrencePattern:         in.RecurrencePattern,
		RecurrenceEndDate:         in.RecurrenceEndDate,
		NotifyPatients:            in.NotifyPatients,
		AffectedAppointmentsCount: report.AffectedCount,
		IsActive:                  true,
		CreatedAt:                 nowAt,
		UpdatedAt:                 nowAt,
	}
	if a.Type == "" {
		a.Type = TypeOther
	}
	if a.RecurrencePattern == "" {
		a.RecurrencePattern = RecurrenceNone
	}
	if a.NotifyPatients && report.HasConflicts {
		a.PatientsNotifiedAt = &nowAt
	}

	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AbsenceCreated, a.DoctorID, a.ID, nil, map[string]any{
		"start_date":     a.StartDate.Format("2006-01-02"),
		"end_date":       a.EndDate.Format("2006-01-02"),
		"affected_count": report.AffectedCount,
	}))
	return a, report, nil
}

// AbsenceUpdate carries partial changes. Nil fields keep current values.
type AbsenceUpdate struct {
	StartDate      *time.Time
	EndDate        *time.Time
	Start          *timeutil.Clock
	End            *timeutil.Clock
	ClearWindow    bool
	Type           *Type
	Title          *string
	Reason         *string
	NotifyPatients *bool
}

// Update edits an absence. Any change to its dates or time window triggers
// a fresh conflict scan and refreshes the denormalized count.
func (s *Service) Update(ctx context.Context, doctorID, absenceID uuid.UUID, in AbsenceUpdate) (*Absence, *ConflictReport, error) {
	a, err := s.repo.GetByID(ctx, doctorID, absenceID)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsActive {
		return nil, nil, ErrAbsenceCancelled
	}

	windowChanged := false
	if in.StartDate != nil {
		a.StartDate = timeutil.MidnightUTC(*in.StartDate)
		windowChanged = true
	}
	if in.EndDate != nil {
		a.EndDate = timeutil.MidnightUTC(*in.EndDate)
		windowChanged = true
	}
	if in.ClearWindow {
		a.Start, a.End = nil, nil
		windowChanged = true
	}
	if in.Start != nil {
		a.Start = in.Start
		windowChanged = true
	}
	if in.End != nil {
		a.End = in.End
		windowChanged = true
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, nil, ErrInvalidAbsenceType
		}
		a.Type = *in.Type
	}
	if in.Title != nil {
		a.Title = in.Title
	}
	if in.Reason != nil {
		a.Reason = in.Reason
	}
	if in.NotifyPatients != nil {
		a.NotifyPatients = *in.NotifyPatients
	}

	if a.EndDate.Before(a.StartDate) {
		return nil, nil, ErrInvalidDateRange
	}
	if (a.Start == nil) != (a.End == nil) {
		return nil, nil, ErrInvalidTimeWindow
	}
	if a.Start != nil && *a.End <= *a.Start {
		return nil, nil, ErrInvalidTimeWindow
	}

	// An update only refreshes the conflict count; the notification stamp
	// belongs to creation.
	var report *ConflictReport
	if windowChanged {
		report, err = s.CheckConflicts(ctx, doctorID, a.StartDate, a.EndDate, a.Start, a.End, &a.ID)
		if err != nil {
			return nil, nil, err
		}
		a.AffectedAppointmentsCount = report.AffectedCount
	}

	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AbsenceUpdated, a.DoctorID, a.ID, nil, nil))
	return a, report, nil
}

// Cancel soft-deletes an absence. No re-scan: a cancelled absence no
// longer threatens anything, and its historical count stays as recorded.
func (s *Service) Cancel(ctx context.Context, doctorID, absenceID uuid.UUID) (*Absence, error) {
	a, err := s.repo.GetByID(ctx, doctorID, absenceID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrAbsenceCancelled
	}

	nowAt := s.now().UTC()
	a.IsActive = false
	a.CancelledAt = &nowAt
	a.UpdatedAt = nowAt

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AbsenceCancelled, a.DoctorID, a.ID, nil, nil))
	return a, nil
}

func (s *Service) Get(ctx context.Context, doctorID, absenceID uuid.UUID) (*Absence, error) {
	return s.repo.GetByID(ctx, doctorID, absenceID)
}

// AbsenceList splits a doctor's absences around today. Ongoing absences
// count as upcoming until their last day has passed.
type AbsenceList struct {
	Upcoming []Absence
	Past     []Absence
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, includeCancelled bool) (*AbsenceList, error) {
	absences, err := s.repo.ListByDoctor(ctx, doctorID, includeCancelled)
	if err != nil {
		return nil, err
	}

	today := timeutil.MidnightUTC(s.now())
	list := &AbsenceList{Upcoming: []Absence{}, Past: []Absence{}}
	for i := range absences {
		if absences[i].EndDate.Before(today) {
			list.Past = append(list.Past, absences[i])
		} else {
			list.Upcoming = append(list.Upcoming, absences[i])
		}
	}
	return list, nil
}

// ActiveInRange returns active absences intersecting [from, to] by date.
func (s *Service) ActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Absence, error) {
	return s.repo.ListActiveOverlapping(ctx, doctorID, timeutil.MidnightUTC(from), timeutil.MidnightUTC(to))
}

// IsDateBlocked reports whether any active absence blocks the date, or the
// specific time of day when one is given.
func (s *Service) IsDateBlocked(ctx context.Context, doctorID uuid.UUID, date time.Time, at *timeutil.Clock) (bool, error) {
	day := timeutil.MidnightUTC(date)
	absences, err := s.repo.ListActiveOverlapping(ctx, doctorID, day, day)
	if err != nil {
		return false, err
	}
	for i := range absences {
		if absences[i].Blocks(day, at) {
			return true, nil
		}
	}
	return false, nil
}

// IsBlockedAt adapts IsDateBlocked to a single instant.
func (s *Service) IsBlockedAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	t := at.UTC()
	clock := timeutil.Clock(t.Hour()*60 + t.Minute())
	return s.IsDateBlocked(ctx, doctorID, t, &clock)
}
