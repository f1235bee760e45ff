package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Terminal states admit no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Active states occupy the doctor's calendar.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type ConsultationType string

const (
	TypePresentiel ConsultationType = "presentiel"
	TypeOnline     ConsultationType = "online"
)

func (t ConsultationType) Valid() bool {
	return t == TypePresentiel || t == TypeOnline
}

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

const (
	// DefaultDurationMinutes is the booked length of every new appointment.
	DefaultDurationMinutes = 30

	// BookingWindowMinutes is the fixed comparison window used by the
	// booking-time overlap check for every appointment, whatever its
	// stored duration. Kept as observed in production behavior.
	BookingWindowMinutes = 30
)

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	StartAt            time.Time
	DurationMinutes    int
	ConsultationType   ConsultationType
	Status             Status
	CancelledAt        *time.Time
	CancelledBy        *Role
	CancellationReason *string
	RescheduledFromID  *uuid.UUID
	RescheduledToID    *uuid.UUID
	Notes              *string
	DoctorNotes        *string
	VideoCallLink      *string
	VideoCallRoomID    *string
	ConsultationFee    decimal.Decimal
	Currency           string
	IsPaid             bool
	PaymentMethod      *string
	PaidAt             *time.Time
	ConfirmationCode   string
	ConfirmedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Appointment) End() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsCancellable reports whether the appointment can still be cancelled with
// the required notice. False exactly at the boundary: an appointment
// starting precisely notice from now is no longer cancellable.
func (a *Appointment) IsCancellable(now time.Time, notice time.Duration) bool {
	if a.Status.Terminal() {
		return false
	}
	return now.Add(notice).Before(a.StartAt)
}

// IsModifiable mirrors IsCancellable: the reschedule window.
func (a *Appointment) IsModifiable(now time.Time, notice time.Duration) bool {
	return a.IsCancellable(now, notice)
}

// CanJoinVideo reports whether the video room is joinable: online,
// confirmed, and now within [start-before, start+after].
func (a *Appointment) CanJoinVideo(now time.Time, before, after time.Duration) bool {
	if a.ConsultationType != TypeOnline || a.Status != StatusConfirmed {
		return false
	}
	open := a.StartAt.Add(-before)
	close := a.StartAt.Add(after)
	return !now.Before(open) && !now.After(close)
}
