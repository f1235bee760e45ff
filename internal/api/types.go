package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/absence"
	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/availability"
	"github.com/mediconnect/scheduling-engine/internal/schedule"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

const dateLayout = "2006-01-02"

// Appointments

type BookAppointmentRequest struct {
	PatientID        string  `json:"patient_id"`
	DoctorID         string  `json:"doctor_id"`
	StartAt          string  `json:"start_at"`
	ConsultationType string  `json:"consultation_type"`
	Notes            *string `json:"notes,omitempty"`
}

type ActorRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

type CancelAppointmentRequest struct {
	ActorRequest
	Reason *string `json:"reason,omitempty"`
}

type RescheduleAppointmentRequest struct {
	ActorRequest
	NewStartAt string `json:"new_start_at"`
}

type CompleteAppointmentRequest struct {
	ActorRequest
	DoctorNotes *string `json:"doctor_notes,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              time.Time  `json:"end_at"`
	DurationMinutes    int        `json:"duration_minutes"`
	ConsultationType   string     `json:"consultation_type"`
	Status             string     `json:"status"`
	ConfirmationCode   string     `json:"confirmation_code"`
	ConsultationFee    string     `json:"consultation_fee"`
	Currency           string     `json:"currency"`
	IsPaid             bool       `json:"is_paid"`
	Notes              *string    `json:"notes,omitempty"`
	DoctorNotes        *string    `json:"doctor_notes,omitempty"`
	VideoCallLink      *string    `json:"video_call_link,omitempty"`
	VideoCallRoomID    *string    `json:"video_call_room_id,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *string    `json:"cancelled_by,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		StartAt:            a.StartAt,
		EndAt:              a.End(),
		DurationMinutes:    a.DurationMinutes,
		ConsultationType:   string(a.ConsultationType),
		Status:             string(a.Status),
		ConfirmationCode:   a.ConfirmationCode,
		ConsultationFee:    a.ConsultationFee.StringFixed(2),
		Currency:           a.Currency,
		IsPaid:             a.IsPaid,
		Notes:              a.Notes,
		DoctorNotes:        a.DoctorNotes,
		VideoCallLink:      a.VideoCallLink,
		VideoCallRoomID:    a.VideoCallRoomID,
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
		ConfirmedAt:        a.ConfirmedAt,
		CreatedAt:          a.CreatedAt,
	}
	if a.CancelledBy != nil {
		by := string(*a.CancelledBy)
		resp.CancelledBy = &by
	}
	return resp
}

type VideoAccessResponse struct {
	CanJoin       bool    `json:"can_join"`
	VideoCallLink *string `json:"video_call_link,omitempty"`
	StartAt       string  `json:"start_at"`
}

// Schedule

type SlotRequest struct {
	DayOfWeek           int     `json:"day_of_week"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	ConsultationType    string  `json:"consultation_type"`
	SlotDurationMinutes int     `json:"slot_duration_minutes"`
	BreakStart          *string `json:"break_start,omitempty"`
	BreakEnd            *string `json:"break_end,omitempty"`
}

type SlotUpdateRequest struct {
	StartTime           *string `json:"start_time,omitempty"`
	EndTime             *string `json:"end_time,omitempty"`
	ConsultationType    *string `json:"consultation_type,omitempty"`
	SlotDurationMinutes *int    `json:"slot_duration_minutes,omitempty"`
	BreakStart          *string `json:"break_start,omitempty"`
	BreakEnd            *string `json:"break_end,omitempty"`
	ClearBreak          bool    `json:"clear_break,omitempty"`
	IsActive            *bool   `json:"is_active,omitempty"`
}

type SlotResponse struct {
	ID                  uuid.UUID      `json:"id"`
	DayOfWeek           int            `json:"day_of_week"`
	DayName             string         `json:"day_name"`
	StartTime           timeutil.Clock `json:"start_time"`
	EndTime             timeutil.Clock `json:"end_time"`
	ConsultationType    string         `json:"consultation_type"`
	SlotDurationMinutes int            `json:"slot_duration_minutes"`
	BreakStart          *timeutil.Clock `json:"break_start,omitempty"`
	BreakEnd            *timeutil.Clock `json:"break_end,omitempty"`
	IsActive            bool           `json:"is_active"`
}

func toSlotResponse(s *schedule.WeeklySlot) SlotResponse {
	return SlotResponse{
		ID:                  s.ID,
		DayOfWeek:           s.DayOfWeek,
		DayName:             timeutil.DayName(s.DayOfWeek),
		StartTime:           s.Start,
		EndTime:             s.End,
		ConsultationType:    string(s.ConsultationType),
		SlotDurationMinutes: s.SlotDurationMinutes,
		BreakStart:          s.BreakStart,
		BreakEnd:            s.BreakEnd,
		IsActive:            s.IsActive,
	}
}

type DayScheduleResponse struct {
	DayOfWeek    int            `json:"day_of_week"`
	DayName      string         `json:"day_name"`
	IsWorkingDay bool           `json:"is_working_day"`
	Slots        []SlotResponse `json:"slots"`
	TotalMinutes int            `json:"total_minutes"`
	SlotCapacity int            `json:"slot_capacity"`
}

type WeeklyScheduleResponse struct {
	DoctorID uuid.UUID             `json:"doctor_id"`
	Days     []DayScheduleResponse `json:"days"`
}

func toWeeklyScheduleResponse(ws *schedule.WeeklySchedule) WeeklyScheduleResponse {
	resp := WeeklyScheduleResponse{DoctorID: ws.DoctorID}
	for _, d := range ws.Days {
		day := DayScheduleResponse{
			DayOfWeek:    d.DayOfWeek,
			DayName:      d.DayName,
			IsWorkingDay: d.IsWorkingDay,
			Slots:        []SlotResponse{},
			TotalMinutes: d.TotalMinutes,
			SlotCapacity: d.SlotCapacity,
		}
		for i := range d.Slots {
			day.Slots = append(day.Slots, toSlotResponse(&d.Slots[i]))
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

type WorkingHoursRequest struct {
	Days []WorkingDayRequest `json:"days"`
}

type WorkingDayRequest struct {
	DayOfWeek    int           `json:"day_of_week"`
	IsWorkingDay bool          `json:"is_working_day"`
	Slots        []SlotRequest `json:"slots"`
}

type ExceptionRequest struct {
	Date             string  `json:"date"`
	StartTime        *string `json:"start_time,omitempty"`
	EndTime          *string `json:"end_time,omitempty"`
	IsAvailable      bool    `json:"is_available"`
	ConsultationType *string `json:"consultation_type,omitempty"`
	Reason           string  `json:"reason,omitempty"`
}

type ExceptionResponse struct {
	ID               uuid.UUID       `json:"id"`
	Date             string          `json:"date"`
	StartTime        *timeutil.Clock `json:"start_time,omitempty"`
	EndTime          *timeutil.Clock `json:"end_time,omitempty"`
	IsAvailable      bool            `json:"is_available"`
	ConsultationType *string         `json:"consultation_type,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

func toExceptionResponse(e *schedule.Exception) ExceptionResponse {
	resp := ExceptionResponse{
		ID:          e.ID,
		Date:        e.Date.Format(dateLayout),
		StartTime:   e.Start,
		EndTime:     e.End,
		IsAvailable: e.IsAvailable,
		Reason:      e.Reason,
	}
	if e.ConsultationType != nil {
		t := string(*e.ConsultationType)
		resp.ConsultationType = &t
	}
	return resp
}

// Absences

type AbsenceRequest struct {
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	StartTime         *string `json:"start_time,omitempty"`
	EndTime           *string `json:"end_time,omitempty"`
	AbsenceType       string  `json:"absence_type,omitempty"`
	Title             *string `json:"title,omitempty"`
	Reason            *string `json:"reason,omitempty"`
	IsRecurring       bool    `json:"is_recurring,omitempty"`
	RecurrencePattern string  `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *string `json:"recurrence_end_date,omitempty"`
	NotifyPatients    *bool   `json:"notify_patients,omitempty"`
}

type AbsenceUpdateRequest struct {
	StartDate      *string `json:"start_date,omitempty"`
	EndDate        *string `json:"end_date,omitempty"`
	StartTime      *string `json:"start_time,omitempty"`
	EndTime        *string `json:"end_time,omitempty"`
	ClearWindow    bool    `json:"clear_time_window,omitempty"`
	AbsenceType    *string `json:"absence_type,omitempty"`
	Title          *string `json:"title,omitempty"`
	Reason         *string `json:"reason,omitempty"`
	NotifyPatients *bool   `json:"notify_patients,omitempty"`
}

type ConflictCheckRequest struct {
	StartDate        string     `json:"start_date"`
	EndDate          string     `json:"end_date"`
	StartTime        *string    `json:"start_time,omitempty"`
	EndTime          *string    `json:"end_time,omitempty"`
	ExcludeAbsenceID *uuid.UUID `json:"exclude_absence_id,omitempty"`
}

type AbsenceResponse struct {
	ID                        uuid.UUID       `json:"id"`
	DoctorID                  uuid.UUID       `json:"doctor_id"`
	StartDate                 string          `json:"start_date"`
	EndDate                   string          `json:"end_date"`
	StartTime                 *timeutil.Clock `json:"start_time,omitempty"`
	EndTime                   *timeutil.Clock `json:"end_time,omitempty"`
	AbsenceType               string          `json:"absence_type"`
	Title                     *string         `json:"title,omitempty"`
	Reason                    *string         `json:"reason,omitempty"`
	IsRecurring               bool            `json:"is_recurring"`
	RecurrencePattern         string          `json:"recurrence_pattern"`
	RecurrenceEndDate         *string         `json:"recurrence_end_date,omitempty"`
	NotifyPatients            bool            `json:"notify_patients"`
	PatientsNotifiedAt        *time.Time      `json:"patients_notified_at,omitempty"`
	AffectedAppointmentsCount int             `json:"affected_appointments_count"`
	IsActive                  bool            `json:"is_active"`
	CancelledAt               *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt                 time.Time       `json:"created_at"`
}

func toAbsenceResponse(a *absence.Absence) AbsenceResponse {
	resp := AbsenceResponse{
		ID:                        a.ID,
		DoctorID:                  a.DoctorID,
		StartDate:                 a.StartDate.Format(dateLayout),
		EndDate:                   a.EndDate.Format(dateLayout),
		StartTime:                 a.Start,
		EndTime:                   a.End,
		AbsenceType:               string(a.Type),
		Title:                     a.Title,
		Reason:                    a.Reason,
		IsRecurring:               a.IsRecurring,
		RecurrencePattern:         string(a.RecurrencePattern),
		NotifyPatients:            a.NotifyPatients,
		PatientsNotifiedAt:        a.PatientsNotifiedAt,
		AffectedAppointmentsCount: a.AffectedAppointmentsCount,
		IsActive:                  a.IsActive,
		CancelledAt:               a.CancelledAt,
		CreatedAt:                 a.CreatedAt,
	}
	if a.RecurrenceEndDate != nil {
		d := a.RecurrenceEndDate.Format(dateLayout)
		resp.RecurrenceEndDate = &d
	}
	return resp
}

type AbsenceListResponse struct {
	Upcoming []AbsenceResponse `json:"upcoming"`
	Past     []AbsenceResponse `json:"past"`
}

func toAbsenceList(absences []absence.Absence) []AbsenceResponse {
	result := make([]AbsenceResponse, 0, len(absences))
	for i := range absences {
		result = append(result, toAbsenceResponse(&absences[i]))
	}
	return result
}

type ConflictedAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	StartAt       time.Time `json:"start_at"`
	Status        string    `json:"status"`
	PatientName   string    `json:"patient_name,omitempty"`
	PatientPhone  *string   `json:"patient_phone,omitempty"`
}

type ConflictReportResponse struct {
	HasConflicts   bool                            `json:"has_conflicts"`
	AffectedCount  int                             `json:"affected_count"`
	ConfirmedCount int                             `json:"confirmed_count"`
	Appointments   []ConflictedAppointmentResponse `json:"appointments"`
	Recommendation string                          `json:"recommendation"`
}

func toConflictReportResponse(r *absence.ConflictReport) ConflictReportResponse {
	resp := ConflictReportResponse{
		HasConflicts:   r.HasConflicts,
		AffectedCount:  r.AffectedCount,
		ConfirmedCount: r.ConfirmedCount,
		Appointments:   []ConflictedAppointmentResponse{},
		Recommendation: r.Recommendation,
	}
	for _, c := range r.Appointments {
		resp.Appointments = append(resp.Appointments, ConflictedAppointmentResponse{
			AppointmentID: c.Appointment.ID,
			StartAt:       c.Appointment.StartAt,
			Status:        string(c.Appointment.Status),
			PatientName:   c.PatientName,
			PatientPhone:  c.PatientPhone,
		})
	}
	return resp
}

type AbsenceWithConflictsResponse struct {
	Absence   AbsenceResponse        `json:"absence"`
	Conflicts ConflictReportResponse `json:"conflicts"`
}

// Availability

type AvailableDayResponse struct {
	Date        string                 `json:"date"`
	DayOfWeek   int                    `json:"day_of_week"`
	DayName     string                 `json:"day_name"`
	IsBlocked   bool                   `json:"is_blocked"`
	BlockReason *string                `json:"block_reason,omitempty"`
	Slots       []availability.SubSlot `json:"slots"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID              `json:"doctor_id"`
	Days     []AvailableDayResponse `json:"days"`
}

func toAvailabilityResponse(doctorID uuid.UUID, days []availability.Day) AvailabilityResponse {
	resp := AvailabilityResponse{DoctorID: doctorID, Days: []AvailableDayResponse{}}
	for _, d := range days {
		slots := d.Slots
		if slots == nil {
			slots = []availability.SubSlot{}
		}
		resp.Days = append(resp.Days, AvailableDayResponse{
			Date:        d.Date.Format(dateLayout),
			DayOfWeek:   d.DayOfWeek,
			DayName:     d.DayName,
			IsBlocked:   d.IsBlocked,
			BlockReason: d.BlockReason,
			Slots:       slots,
		})
	}
	return resp
}
