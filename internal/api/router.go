package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/scheduling-engine/internal/absence"
	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/availability"
	"github.com/mediconnect/scheduling-engine/internal/schedule"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Schedules    *schedule.Service
	Absences     *absence.Service
	Availability *availability.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/no-show", noShowAppointmentHandler(cfg.Appointments))
	r.Get("/appointments/{id}/video-access", videoAccessHandler(cfg.Appointments))
	r.Get("/patients/{patientID}/appointments", listPatientAppointmentsHandler(cfg.Appointments))
	r.Get("/doctors/{doctorID}/appointments", listDoctorAppointmentsHandler(cfg.Appointments))

	// Weekly schedule and exceptions
	r.Get("/doctors/{doctorID}/schedule", getWeeklyScheduleHandler(cfg.Schedules))
	r.Put("/doctors/{doctorID}/schedule", setWorkingHoursHandler(cfg.Schedules))
	r.Post("/doctors/{doctorID}/slots", createSlotHandler(cfg.Schedules))
	r.Patch("/doctors/{doctorID}/slots/{slotID}", updateSlotHandler(cfg.Schedules))
	r.Delete("/doctors/{doctorID}/slots/{slotID}", deleteSlotHandler(cfg.Schedules))
	r.Post("/doctors/{doctorID}/exceptions", createExceptionHandler(cfg.Schedules))
	r.Get("/doctors/{doctorID}/exceptions", listExceptionsHandler(cfg.Schedules))
	r.Delete("/doctors/{doctorID}/exceptions/{exceptionID}", deleteExceptionHandler(cfg.Schedules))

	// Absences and conflict detection
	r.Post("/doctors/{doctorID}/absences", createAbsenceHandler(cfg.Absences))
	r.Get("/doctors/{doctorID}/absences", listAbsencesHandler(cfg.Absences))
	r.Get("/doctors/{doctorID}/absences/{absenceID}", getAbsenceHandler(cfg.Absences))
	r.Patch("/doctors/{doctorID}/absences/{absenceID}", updateAbsenceHandler(cfg.Absences))
	r.Post("/doctors/{doctorID}/absences/{absenceID}/cancel", cancelAbsenceHandler(cfg.Absences))
	r.Post("/doctors/{doctorID}/absences/check-conflicts", checkConflictsHandler(cfg.Absences))

	// Computed availability
	r.Get("/doctors/{doctorID}/availability", computedAvailabilityHandler(cfg.Availability))

	return r
}
