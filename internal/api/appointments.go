package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediconnect/scheduling-engine/internal/appointment"
	"github.com/mediconnect/scheduling-engine/internal/profile"
	redisclient "github.com/mediconnect/scheduling-engine/internal/redis"
)

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		startAt, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_at", "start_at must be RFC 3339")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingInput{
			PatientID:        patientID,
			DoctorID:         doctorID,
			StartAt:          startAt,
			ConsultationType: appointment.ConsultationType(req.ConsultationType),
			Notes:            req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidConsultationType),
		errors.Is(err, appointment.ErrStartInPast):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotAccepting):
		writeError(w, http.StatusForbidden, "doctor_not_accepting", err.Error())
	case errors.Is(err, appointment.ErrConsultationTypeNotOffered):
		writeError(w, http.StatusForbidden, "consultation_type_not_offered", err.Error())
	case errors.Is(err, appointment.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		actorID, role, ok := actorQuery(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id, actorID, role)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req ActorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, role, ok := parseActor(w, req)
		if !ok {
			return
		}

		appt, err := svc.Confirm(r.Context(), id, actorID, role)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, role, ok := parseActor(w, req.ActorRequest)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), id, actorID, role, req.Reason)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, role, ok := parseActor(w, req.ActorRequest)
		if !ok {
			return
		}
		newStart, err := time.Parse(time.RFC3339, req.NewStartAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start_at", "new_start_at must be RFC 3339")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, actorID, role, newStart)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, role, ok := parseActor(w, req.ActorRequest)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), id, actorID, role, req.DoctorNotes)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func noShowAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req ActorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, role, ok := parseActor(w, req)
		if !ok {
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), id, actorID, role)
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func videoAccessHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		actorID, role, ok := actorQuery(w, r)
		if !ok {
			return
		}

		canJoin, appt, err := svc.CanJoinVideo(r.Context(), id, actorID, role)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		resp := VideoAccessResponse{
			CanJoin: canJoin,
			StartAt: appt.StartAt.Format(time.RFC3339),
		}
		if canJoin {
			resp.VideoCallLink = appt.VideoCallLink
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := uuidParam(w, r, "patientID")
		if !ok {
			return
		}
		filter, ok := listFilterQuery(w, r)
		if !ok {
			return
		}

		appts, err := svc.ListForPatient(r.Context(), patientID, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func listDoctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		filter, ok := listFilterQuery(w, r)
		if !ok {
			return
		}

		appts, err := svc.ListForDoctor(r.Context(), doctorID, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(appts))
	}
}

func toAppointmentList(appts []appointment.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		result = append(result, toAppointmentResponse(&appts[i]))
	}
	return result
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "not_allowed", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrStaleStatus):
		writeError(w, http.StatusConflict, "concurrent_update", err.Error())
	case errors.Is(err, appointment.ErrTooLateToCancel):
		writeError(w, http.StatusUnprocessableEntity, "too_late_to_cancel", err.Error())
	case errors.Is(err, appointment.ErrTooLateToReschedule):
		writeError(w, http.StatusUnprocessableEntity, "too_late_to_reschedule", err.Error())
	case errors.Is(err, appointment.ErrStartInPast):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	case errors.Is(err, appointment.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Shared request parsing

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseActor(w http.ResponseWriter, req ActorRequest) (uuid.UUID, appointment.Role, bool) {
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
		return uuid.Nil, "", false
	}
	role := appointment.Role(req.ActorRole)
	if role != appointment.RolePatient && role != appointment.RoleDoctor {
		writeError(w, http.StatusBadRequest, "invalid_actor_role", "actor_role must be patient or doctor")
		return uuid.Nil, "", false
	}
	return actorID, role, true
}

func actorQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, appointment.Role, bool) {
	return parseActor(w, ActorRequest{
		ActorID:   r.URL.Query().Get("actor_id"),
		ActorRole: r.URL.Query().Get("actor_role"),
	})
}

func listFilterQuery(w http.ResponseWriter, r *http.Request) (appointment.ListFilter, bool) {
	var filter appointment.ListFilter
	q := r.URL.Query()

	for _, s := range q["status"] {
		filter.Statuses = append(filter.Statuses, appointment.Status(s))
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC 3339")
			return filter, false
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC 3339")
			return filter, false
		}
		filter.To = &t
	}
	filter.UpcomingOnly = q.Get("upcoming") == "true"
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return filter, false
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return filter, false
		}
		filter.Offset = n
	}
	return filter, true
}
