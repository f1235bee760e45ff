package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/scheduling-engine/internal/profile"
	redisclient "github.com/mediconnect/scheduling-engine/internal/redis"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

// memoryRepo is an in-memory Repository with the same overlap and
// uniqueness behavior as the SQL one.
type memoryRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepo) Insert(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.appts {
		if other.ConfirmationCode == appt.ConfirmationCode {
			return ErrConfirmationCodeTaken
		}
		if other.DoctorID == appt.DoctorID && other.Status.Active() &&
			other.StartAt.Equal(appt.StartAt) && appt.Status.Active() {
			return ErrSlotTaken
		}
	}
	copied := *appt
	r.appts[appt.ID] = &copied
	return nil
}

func (r *memoryRepo) Update(_ context.Context, appt *Appointment, expect Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.appts[appt.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if current.Status != expect {
		return ErrStaleStatus
	}
	copied := *appt
	r.appts[appt.ID] = &copied
	return nil
}

func (r *memoryRepo) CountActiveOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.appts {
		if a.DoctorID != doctorID || !a.Status.Active() || a.ID == excludeID {
			continue
		}
		window := a.StartAt.Add(BookingWindowMinutes * time.Minute)
		if timeutil.OverlapsAt(a.StartAt, window, start, end) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) ListActiveForDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Status.Active() &&
			!a.StartAt.Before(from) && a.StartAt.Before(to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *memoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _ ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *memoryRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, _ ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID {
			result = append(result, *a)
		}
	}
	return result, nil
}

type fakeDirectory struct {
	mu        sync.Mutex
	doctor    profile.Doctor
	completed int
}

func (d *fakeDirectory) GetDoctor(_ context.Context, id uuid.UUID) (*profile.Doctor, error) {
	if id != d.doctor.ID {
		return nil, profile.ErrDoctorNotFound
	}
	copied := d.doctor
	return &copied, nil
}

func (d *fakeDirectory) IncrementConsultations(_ context.Context, _ uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed++
	return nil
}

func testDoctor() profile.Doctor {
	return profile.Doctor{
		ID:                  uuid.New(),
		FirstName:           "Amira",
		LastName:            "Ben Salah",
		Specialty:           "cardiology",
		FeePresentiel:       decimal.RequireFromString("70.00"),
		FeeOnline:           decimal.RequireFromString("50.00"),
		Currency:            "TND",
		OffersPresentiel:    true,
		OffersOnline:        true,
		IsAcceptingPatients: true,
	}
}

func newTestService(t *testing.T, repo Repository, dir *fakeDirectory) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := redisclient.NewRedisBookingLocker(client, 2*time.Second)
	return NewService(repo, dir, locker, nil, nil, DefaultPolicy())
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)

	now := timeutil.Date(2025, 6, 1).Add(8 * time.Hour)
	svc.now = func() time.Time { return now }

	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID:        uuid.New(),
		DoctorID:         dir.doctor.ID,
		StartAt:          start,
		ConsultationType: TypeOnline,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, DefaultDurationMinutes, appt.DurationMinutes)
	assert.True(t, appt.ConsultationFee.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, "TND", appt.Currency)
	assert.Regexp(t, `^MC-[A-Z0-9]{6}$`, appt.ConfirmationCode)
	require.NotNil(t, appt.VideoCallRoomID)
	require.NotNil(t, appt.VideoCallLink)
	assert.Equal(t, "/consultation/video/"+*appt.VideoCallRoomID, *appt.VideoCallLink)
}

func TestBookPresentielHasNoVideoRoom(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID:        uuid.New(),
		DoctorID:         dir.doctor.ID,
		StartAt:          timeutil.Date(2025, 6, 2).Add(10 * time.Hour),
		ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	assert.Nil(t, appt.VideoCallRoomID)
	assert.True(t, appt.ConsultationFee.Equal(decimal.RequireFromString("70.00")))
}

func TestBookGuards(t *testing.T) {
	now := timeutil.Date(2025, 6, 1)
	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)

	t.Run("doctor not accepting", func(t *testing.T) {
		doc := testDoctor()
		doc.IsAcceptingPatients = false
		dir := &fakeDirectory{doctor: doc}
		svc := newTestService(t, newMemoryRepo(), dir)
		svc.now = func() time.Time { return now }

		_, err := svc.Book(context.Background(), BookingInput{
			PatientID: uuid.New(), DoctorID: doc.ID, StartAt: start, ConsultationType: TypeOnline,
		})
		assert.ErrorIs(t, err, ErrDoctorNotAccepting)
	})

	t.Run("type not offered", func(t *testing.T) {
		doc := testDoctor()
		doc.OffersOnline = false
		dir := &fakeDirectory{doctor: doc}
		svc := newTestService(t, newMemoryRepo(), dir)
		svc.now = func() time.Time { return now }

		_, err := svc.Book(context.Background(), BookingInput{
			PatientID: uuid.New(), DoctorID: doc.ID, StartAt: start, ConsultationType: TypeOnline,
		})
		assert.ErrorIs(t, err, ErrConsultationTypeNotOffered)
	})

	t.Run("start in past", func(t *testing.T) {
		dir := &fakeDirectory{doctor: testDoctor()}
		svc := newTestService(t, newMemoryRepo(), dir)
		svc.now = func() time.Time { return now }

		_, err := svc.Book(context.Background(), BookingInput{
			PatientID: uuid.New(), DoctorID: dir.doctor.ID,
			StartAt: now.Add(-time.Hour), ConsultationType: TypeOnline,
		})
		assert.ErrorIs(t, err, ErrStartInPast)
	})

	t.Run("unknown consultation type", func(t *testing.T) {
		dir := &fakeDirectory{doctor: testDoctor()}
		svc := newTestService(t, newMemoryRepo(), dir)

		_, err := svc.Book(context.Background(), BookingInput{
			PatientID: uuid.New(), DoctorID: dir.doctor.ID,
			StartAt: start, ConsultationType: "telepathy",
		})
		assert.ErrorIs(t, err, ErrInvalidConsultationType)
	})
}

func TestBookRejectsOverlappingSlot(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)
	_, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	// Same slot and a partially overlapping one are both rejected.
	_, err = svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: start.Add(15 * time.Minute), ConsultationType: TypePresentiel,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// A touching slot 30 minutes later is fine.
	_, err = svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: start.Add(30 * time.Minute), ConsultationType: TypePresentiel,
	})
	assert.NoError(t, err)
}

func TestConcurrentBookingOneWinner(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), BookingInput{
				PatientID: uuid.New(), DoctorID: dir.doctor.ID,
				StartAt: start, ConsultationType: TypePresentiel,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !assert.True(t, err == ErrSlotUnavailable || err == ErrSlotBeingBooked, "unexpected error: %v", err) {
			t.FailNow()
		}
	}
	assert.Equal(t, 1, wins)
}

func bookConfirmed(t *testing.T, svc *Service, dir *fakeDirectory, start time.Time, ctype ConsultationType) *Appointment {
	t.Helper()
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: ctype,
	})
	require.NoError(t, err)
	appt, err = svc.Confirm(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	require.NoError(t, err)
	return appt
}

func TestConfirmRequiresDoctor(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID,
		StartAt: timeutil.Date(2025, 6, 2).Add(10 * time.Hour), ConsultationType: TypeOnline,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), appt.ID, patientID, RolePatient)
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = svc.Confirm(context.Background(), appt.ID, uuid.New(), RoleDoctor)
	assert.ErrorIs(t, err, ErrNotAllowed)

	confirmed, err := svc.Confirm(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	_, err = svc.Confirm(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestPatientCancellationWindow(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)

	start := timeutil.Date(2025, 6, 10).Add(10 * time.Hour)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	// Exactly 24 hours before the start the window has already closed.
	svc.now = func() time.Time { return start.Add(-24 * time.Hour) }
	_, err = svc.Cancel(context.Background(), appt.ID, patientID, RolePatient, nil)
	assert.ErrorIs(t, err, ErrTooLateToCancel)

	// The doctor is not bound by the window.
	cancelled, err := svc.Cancel(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, RoleDoctor, *cancelled.CancelledBy)
}

func TestPatientCancelJustInsideWindow(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)

	start := timeutil.Date(2025, 6, 10).Add(10 * time.Hour)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	reason := "conflict at work"
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(-24*time.Hour - time.Second) }
	cancelled, err := svc.Cancel(context.Background(), appt.ID, patientID, RolePatient, &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)
}

func TestRescheduleResetsToPending(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	start := timeutil.Date(2025, 6, 10).Add(10 * time.Hour)
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	require.NoError(t, err)

	newStart := timeutil.Date(2025, 6, 11).Add(14 * time.Hour)
	moved, err := svc.Reschedule(context.Background(), appt.ID, patientID, RolePatient, newStart)
	require.NoError(t, err)

	assert.Equal(t, appt.ID, moved.ID)
	assert.Equal(t, StatusPending, moved.Status)
	assert.Nil(t, moved.ConfirmedAt)
	assert.True(t, moved.StartAt.Equal(newStart))

	// The old slot is free again for someone else.
	_, err = svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	assert.NoError(t, err)
}

func TestRescheduleExcludesOwnSlot(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	start := timeutil.Date(2025, 6, 10).Add(10 * time.Hour)
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	// Moving within the appointment's own window must not self-conflict.
	moved, err := svc.Reschedule(context.Background(), appt.ID, patientID, RolePatient, start.Add(15*time.Minute))
	require.NoError(t, err)
	assert.True(t, moved.StartAt.Equal(start.Add(15*time.Minute)))
}

func TestRescheduleGuards(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	patientID := uuid.New()
	start := timeutil.Date(2025, 6, 10).Add(10 * time.Hour)
	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: patientID, DoctorID: dir.doctor.ID, StartAt: start, ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotAllowed)

	svc.now = func() time.Time { return start.Add(-time.Hour) }
	_, err = svc.Reschedule(context.Background(), appt.ID, patientID, RolePatient, start.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrTooLateToReschedule)
}

func TestCompleteIncrementsDoctorCounter(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	appt := bookConfirmed(t, svc, dir, timeutil.Date(2025, 6, 2).Add(10*time.Hour), TypePresentiel)

	notes := "follow up in three months"
	done, err := svc.Complete(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 1, dir.completed)

	_, err = svc.Complete(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestNoShowRequiresConfirmed(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: timeutil.Date(2025, 6, 2).Add(10 * time.Hour), ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)

	_, err = svc.MarkNoShow(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.Confirm(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	require.NoError(t, err)

	marked, err := svc.MarkNoShow(context.Background(), appt.ID, dir.doctor.ID, RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, marked.Status)
}

func TestVideoJoinWindow(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)
	appt := bookConfirmed(t, svc, dir, start, TypeOnline)

	svc.now = func() time.Time { return timeutil.Date(2025, 6, 2).Add(9*time.Hour + 46*time.Minute) }
	ok, _, err := svc.CanJoinVideo(context.Background(), appt.ID, appt.PatientID, RolePatient)
	require.NoError(t, err)
	assert.True(t, ok)

	svc.now = func() time.Time { return timeutil.Date(2025, 6, 2).Add(11*time.Hour + time.Minute) }
	ok, _, err = svc.CanJoinVideo(context.Background(), appt.ID, appt.PatientID, RolePatient)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVideoJoinNeverForPresentiel(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	start := timeutil.Date(2025, 6, 2).Add(10 * time.Hour)
	appt := bookConfirmed(t, svc, dir, start, TypePresentiel)

	svc.now = func() time.Time { return start }
	ok, _, err := svc.CanJoinVideo(context.Background(), appt.ID, appt.PatientID, RolePatient)
	require.NoError(t, err)
	assert.False(t, ok)
}

// collisionRepo forces confirmation-code collisions for a while.
type collisionRepo struct {
	*memoryRepo
	remaining int
}

func (r *collisionRepo) Insert(ctx context.Context, appt *Appointment) error {
	if r.remaining > 0 {
		r.remaining--
		return ErrConfirmationCodeTaken
	}
	return r.memoryRepo.Insert(ctx, appt)
}

func TestConfirmationCodeCollisionRetried(t *testing.T) {
	repo := &collisionRepo{memoryRepo: newMemoryRepo(), remaining: 3}
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	appt, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: timeutil.Date(2025, 6, 2).Add(10 * time.Hour), ConsultationType: TypePresentiel,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^MC-[A-Z0-9]{6}$`, appt.ConfirmationCode)
}

func TestConfirmationCodeGivesUpEventually(t *testing.T) {
	repo := &collisionRepo{memoryRepo: newMemoryRepo(), remaining: 100}
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	_, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: timeutil.Date(2025, 6, 2).Add(10 * time.Hour), ConsultationType: TypePresentiel,
	})
	assert.ErrorIs(t, err, ErrConfirmationCodeExceeded)
}

type blockedCalendar struct{ blocked bool }

func (b blockedCalendar) IsBlockedAt(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
	return b.blocked, nil
}

func TestBookRejectedWhenDoctorBlocked(t *testing.T) {
	repo := newMemoryRepo()
	dir := &fakeDirectory{doctor: testDoctor()}
	svc := newTestService(t, repo, dir)
	svc.blocker = blockedCalendar{blocked: true}
	svc.now = func() time.Time { return timeutil.Date(2025, 6, 1) }

	_, err := svc.Book(context.Background(), BookingInput{
		PatientID: uuid.New(), DoctorID: dir.doctor.ID,
		StartAt: timeutil.Date(2025, 6, 2).Add(10 * time.Hour), ConsultationType: TypePresentiel,
	})
	assert.ErrorIs(t, err, ErrDoctorUnavailable)
}
