package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediconnect/scheduling-engine/internal/event"
	"github.com/mediconnect/scheduling-engine/internal/profile"
	redisclient "github.com/mediconnect/scheduling-engine/internal/redis"
)

var (
	ErrDoctorNotAccepting         = errors.New("doctor is not accepting new patients")
	ErrConsultationTypeNotOffered = errors.New("doctor does not offer this consultation type")
	ErrInvalidConsultationType    = errors.New("invalid consultation type")
	ErrStartInPast                = errors.New("appointment start is in the past")

	// ErrSlotUnavailable means another active appointment already occupies
	// the requested window.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotBeingBooked means another booking attempt holds the lock for
	// this doctor and start time right now.
	ErrSlotBeingBooked = errors.New("slot is being booked by someone else")

	// ErrDoctorUnavailable means an absence or blocking exception covers
	// the requested time.
	ErrDoctorUnavailable = errors.New("doctor is unavailable at this time")

	ErrNotAllowed               = errors.New("actor is not allowed to perform this action")
	ErrInvalidStatusTransition  = errors.New("invalid status transition")
	ErrTooLateToCancel          = errors.New("too late to cancel: 24 hour notice required")
	ErrTooLateToReschedule      = errors.New("too late to reschedule: 24 hour notice required")
	ErrConfirmationCodeExceeded = errors.New("could not generate a unique confirmation code")
)

const maxCodeRetries = 5

// Blocker answers whether a doctor's calendar is blocked at a given moment,
// from absences and blocking exceptions.
type Blocker interface {
	IsBlockedAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)
}

// Policy carries the tunable windows of the booking lifecycle.
type Policy struct {
	CancellationWindow time.Duration
	VideoJoinBefore    time.Duration
	VideoJoinAfter     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		CancellationWindow: 24 * time.Hour,
		VideoJoinBefore:    15 * time.Minute,
		VideoJoinAfter:     time.Hour,
	}
}

// Service implements the booking lifecycle: creation behind a distributed
// lock, the status state machine, and the policy windows around it.
type Service struct {
	repo      Repository
	doctors   profile.DoctorDirectory
	locker    redisclient.Locker
	blocker   Blocker
	publisher event.Publisher
	policy    Policy

	now func() time.Time
}

func NewService(repo Repository, doctors profile.DoctorDirectory, locker redisclient.Locker, blocker Blocker, publisher event.Publisher, policy Policy) *Service {
	return &Service{
		repo:      repo,
		doctors:   doctors,
		locker:    locker,
		blocker:   blocker,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// BookingInput is everything a patient supplies when booking.
type BookingInput struct {
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	StartAt          time.Time
	ConsultationType ConsultationType
	Notes            *string
}

// Book creates a pending appointment. The overlap check and insert run
// under a per-doctor-per-slot lock so concurrent attempts on the same slot
// cannot both pass the check.
func (s *Service) Book(ctx context.Context, in BookingInput) (*Appointment, error) {
	if !in.ConsultationType.Valid() {
		return nil, ErrInvalidConsultationType
	}
	if !in.StartAt.After(s.now()) {
		return nil, ErrStartInPast
	}

	doctor, err := s.doctors.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsAcceptingPatients {
		return nil, ErrDoctorNotAccepting
	}
	if in.ConsultationType == TypeOnline && !doctor.OffersOnline {
		return nil, ErrConsultationTypeNotOffered
	}
	if in.ConsultationType == TypePresentiel && !doctor.OffersPresentiel {
		return nil, ErrConsultationTypeNotOffered
	}

	if s.blocker != nil {
		blocked, err := s.blocker.IsBlockedAt(ctx, in.DoctorID, in.StartAt)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrDoctorUnavailable
		}
	}

	var appt *Appointment
	err = s.locker.WithBookingLock(ctx, in.DoctorID, in.StartAt, func(ctx context.Context) error {
		end := in.StartAt.Add(BookingWindowMinutes * time.Minute)
		count, err := s.repo.CountActiveOverlapping(ctx, in.DoctorID, in.StartAt, end, uuid.Nil)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotUnavailable
		}

		appt, err = s.insertWithFreshCode(ctx, in, doctor)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentCreated, appt.DoctorID, appt.ID, &appt.PatientID, map[string]any{
		"start_at":          appt.StartAt.Format(time.RFC3339),
		"consultation_type": string(appt.ConsultationType),
		"confirmation_code": appt.ConfirmationCode,
	}))
	return appt, nil
}

func (s *Service) insertWithFreshCode(ctx context.Context, in BookingInput, doctor *profile.Doctor) (*Appointment, error) {
	nowAt := s.now().UTC()

	appt := &Appointment{
		ID:               uuid.New(),
		PatientID:        in.PatientID,
		DoctorID:         in.DoctorID,
		StartAt:          in.StartAt.UTC(),
		DurationMinutes:  DefaultDurationMinutes,
		ConsultationType: in.ConsultationType,
		Status:           StatusPending,
		Notes:            in.Notes,
		ConsultationFee:  feeFor(doctor, in.ConsultationType),
		Currency:         doctor.Currency,
		CreatedAt:        nowAt,
		UpdatedAt:        nowAt,
	}

	if in.ConsultationType == TypeOnline {
		room := "mc-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		link := "/consultation/video/" + room
		appt.VideoCallRoomID = &room
		appt.VideoCallLink = &link
	}

	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := NewConfirmationCode()
		if err != nil {
			return nil, err
		}
		appt.ConfirmationCode = code

		err = s.repo.Insert(ctx, appt)
		if err == nil {
			return appt, nil
		}
		if errors.Is(err, ErrConfirmationCodeTaken) {
			continue
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return nil, ErrConfirmationCodeExceeded
}

// Confirm moves a pending appointment to confirmed. Doctor only.
func (s *Service) Confirm(ctx context.Context, appointmentID, actorID uuid.UUID, role Role) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if role != RoleDoctor || appt.DoctorID != actorID {
		return nil, ErrNotAllowed
	}
	if appt.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot confirm from %s", ErrInvalidStatusTransition, appt.Status)
	}

	prev := appt.Status
	nowAt := s.now().UTC()
	appt.Status = StatusConfirmed
	appt.ConfirmedAt = &nowAt
	appt.UpdatedAt = nowAt

	if err := s.repo.Update(ctx, appt, prev); err != nil {
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentConfirmed, appt.DoctorID, appt.ID, &appt.PatientID, nil))
	return appt, nil
}

// Cancel moves an active appointment to cancelled. Patients need the full
// notice window; doctors can cancel at any time.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorID uuid.UUID, role Role, reason *string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(appt, actorID, role); err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidStatusTransition, appt.Status)
	}
	if role == RolePatient && !appt.IsCancellable(s.now(), s.policy.CancellationWindow) {
		return nil, ErrTooLateToCancel
	}

	prev := appt.Status
	nowAt := s.now().UTC()
	appt.Status = StatusCancelled
	appt.CancelledAt = &nowAt
	appt.CancelledBy = &role
	appt.CancellationReason = reason
	appt.UpdatedAt = nowAt

	if err := s.repo.Update(ctx, appt, prev); err != nil {
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentCancelled, appt.DoctorID, appt.ID, &appt.PatientID, map[string]any{
		"cancelled_by": string(role),
	}))
	return appt, nil
}

// Reschedule moves an active appointment to a new start time in place: the
// row keeps its identity, drops back to pending, and loses its
// confirmation timestamp. Patient only, within the notice window.
func (s *Service) Reschedule(ctx context.Context, appointmentID, actorID uuid.UUID, role Role, newStart time.Time) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if role != RolePatient || appt.PatientID != actorID {
		return nil, ErrNotAllowed
	}
	if !appt.Status.Active() {
		return nil, fmt.Errorf("%w: cannot reschedule from %s", ErrInvalidStatusTransition, appt.Status)
	}
	if !appt.IsModifiable(s.now(), s.policy.CancellationWindow) {
		return nil, ErrTooLateToReschedule
	}
	if !newStart.After(s.now()) {
		return nil, ErrStartInPast
	}

	if s.blocker != nil {
		blocked, err := s.blocker.IsBlockedAt(ctx, appt.DoctorID, newStart)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrDoctorUnavailable
		}
	}

	err = s.locker.WithBookingLock(ctx, appt.DoctorID, newStart, func(ctx context.Context) error {
		end := newStart.Add(BookingWindowMinutes * time.Minute)
		count, err := s.repo.CountActiveOverlapping(ctx, appt.DoctorID, newStart, end, appt.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotUnavailable
		}

		prev := appt.Status
		appt.StartAt = newStart.UTC()
		appt.Status = StatusPending
		appt.ConfirmedAt = nil
		appt.UpdatedAt = s.now().UTC()
		return s.repo.Update(ctx, appt, prev)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentRescheduled, appt.DoctorID, appt.ID, &appt.PatientID, map[string]any{
		"start_at": appt.StartAt.Format(time.RFC3339),
	}))
	return appt, nil
}

// Complete marks a confirmed appointment done and bumps the doctor's
// consultation counter. Doctor only.
func (s *Service) Complete(ctx context.Context, appointmentID, actorID uuid.UUID, role Role, doctorNotes *string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if role != RoleDoctor || appt.DoctorID != actorID {
		return nil, ErrNotAllowed
	}
	if appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot complete from %s", ErrInvalidStatusTransition, appt.Status)
	}

	prev := appt.Status
	appt.Status = StatusCompleted
	if doctorNotes != nil {
		appt.DoctorNotes = doctorNotes
	}
	appt.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, appt, prev); err != nil {
		return nil, err
	}
	if err := s.doctors.IncrementConsultations(ctx, appt.DoctorID); err != nil {
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentCompleted, appt.DoctorID, appt.ID, &appt.PatientID, nil))
	return appt, nil
}

// MarkNoShow records that the patient never arrived. Doctor only, from
// confirmed.
func (s *Service) MarkNoShow(ctx context.Context, appointmentID, actorID uuid.UUID, role Role) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if role != RoleDoctor || appt.DoctorID != actorID {
		return nil, ErrNotAllowed
	}
	if appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot mark no-show from %s", ErrInvalidStatusTransition, appt.Status)
	}

	prev := appt.Status
	appt.Status = StatusNoShow
	appt.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, appt, prev); err != nil {
		return nil, err
	}

	event.Emit(ctx, s.publisher, event.New(event.AppointmentNoShow, appt.DoctorID, appt.ID, &appt.PatientID, nil))
	return appt, nil
}

// Get returns the appointment if the actor is its patient or doctor.
func (s *Service) Get(ctx context.Context, appointmentID, actorID uuid.UUID, role Role) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(appt, actorID, role); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID, filter)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID, filter)
}

// CanJoinVideo reports whether the actor may enter the video room now.
func (s *Service) CanJoinVideo(ctx context.Context, appointmentID, actorID uuid.UUID, role Role) (bool, *Appointment, error) {
	appt, err := s.Get(ctx, appointmentID, actorID, role)
	if err != nil {
		return false, nil, err
	}
	return appt.CanJoinVideo(s.now(), s.policy.VideoJoinBefore, s.policy.VideoJoinAfter), appt, nil
}

func (s *Service) authorize(appt *Appointment, actorID uuid.UUID, role Role) error {
	switch role {
	case RolePatient:
		if appt.PatientID != actorID {
			return ErrNotAllowed
		}
	case RoleDoctor:
		if appt.DoctorID != actorID {
			return ErrNotAllowed
		}
	default:
		return ErrNotAllowed
	}
	return nil
}

// feeFor snapshots the doctor's current price for the booked type. The
// stored fee never changes afterwards, even if the doctor reprices.
func feeFor(doctor *profile.Doctor, t ConsultationType) decimal.Decimal {
	if t == TypeOnline {
		return doctor.FeeOnline
	}
	return doctor.FeePresentiel
}
