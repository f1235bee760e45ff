package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mediconnect/scheduling-engine/internal/absence"
)

func createAbsenceHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req AbsenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := absence.AbsenceInput{
			DoctorID:          doctorID,
			Type:              absence.Type(req.AbsenceType),
			Title:             req.Title,
			Reason:            req.Reason,
			IsRecurring:       req.IsRecurring,
			RecurrencePattern: absence.RecurrencePattern(req.RecurrencePattern),
			NotifyPatients:    true,
		}
		if req.NotifyPatients != nil {
			in.NotifyPatients = *req.NotifyPatients
		}

		var err error
		if in.StartDate, err = time.Parse(dateLayout, req.StartDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		if in.EndDate, err = time.Parse(dateLayout, req.EndDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}
		var ok2 bool
		if in.Start, ok2 = optionalClock(w, req.StartTime, "start_time"); !ok2 {
			return
		}
		if in.End, ok2 = optionalClock(w, req.EndTime, "end_time"); !ok2 {
			return
		}
		if req.RecurrenceEndDate != nil {
			d, err := time.Parse(dateLayout, *req.RecurrenceEndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_recurrence_end_date", "recurrence_end_date must be YYYY-MM-DD")
				return
			}
			in.RecurrenceEndDate = &d
		}

		a, report, err := svc.Create(r.Context(), in)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, AbsenceWithConflictsResponse{
			Absence:   toAbsenceResponse(a),
			Conflicts: toConflictReportResponse(report),
		})
	}
}

func updateAbsenceHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		absenceID, ok := uuidParam(w, r, "absenceID")
		if !ok {
			return
		}
		var req AbsenceUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := absence.AbsenceUpdate{
			ClearWindow:    req.ClearWindow,
			Title:          req.Title,
			Reason:         req.Reason,
			NotifyPatients: req.NotifyPatients,
		}
		if req.StartDate != nil {
			d, err := time.Parse(dateLayout, *req.StartDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
				return
			}
			upd.StartDate = &d
		}
		if req.EndDate != nil {
			d, err := time.Parse(dateLayout, *req.EndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
				return
			}
			upd.EndDate = &d
		}
		var ok2 bool
		if upd.Start, ok2 = optionalClock(w, req.StartTime, "start_time"); !ok2 {
			return
		}
		if upd.End, ok2 = optionalClock(w, req.EndTime, "end_time"); !ok2 {
			return
		}
		if req.AbsenceType != nil {
			t := absence.Type(*req.AbsenceType)
			upd.Type = &t
		}

		a, report, err := svc.Update(r.Context(), doctorID, absenceID, upd)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}

		resp := AbsenceWithConflictsResponse{Absence: toAbsenceResponse(a)}
		if report != nil {
			resp.Conflicts = toConflictReportResponse(report)
		} else {
			resp.Conflicts.Appointments = []ConflictedAppointmentResponse{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAbsenceHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		absenceID, ok := uuidParam(w, r, "absenceID")
		if !ok {
			return
		}

		a, err := svc.Cancel(r.Context(), doctorID, absenceID)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAbsenceResponse(a))
	}
}

func getAbsenceHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		absenceID, ok := uuidParam(w, r, "absenceID")
		if !ok {
			return
		}

		a, err := svc.Get(r.Context(), doctorID, absenceID)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAbsenceResponse(a))
	}
}

func listAbsencesHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		includeCancelled := r.URL.Query().Get("include_cancelled") == "true"

		list, err := svc.List(r.Context(), doctorID, includeCancelled)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AbsenceListResponse{
			Upcoming: toAbsenceList(list.Upcoming),
			Past:     toAbsenceList(list.Past),
		})
	}
}

func checkConflictsHandler(svc *absence.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req ConflictCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		startDate, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}
		startTime, ok := optionalClock(w, req.StartTime, "start_time")
		if !ok {
			return
		}
		endTime, ok := optionalClock(w, req.EndTime, "end_time")
		if !ok {
			return
		}

		report, err := svc.CheckConflicts(r.Context(), doctorID, startDate, endDate, startTime, endTime, req.ExcludeAbsenceID)
		if err != nil {
			handleAbsenceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConflictReportResponse(report))
	}
}

func handleAbsenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, absence.ErrAbsenceNotFound):
		writeError(w, http.StatusNotFound, "absence_not_found", err.Error())
	case errors.Is(err, absence.ErrAbsenceCancelled):
		writeError(w, http.StatusConflict, "absence_cancelled", err.Error())
	case errors.Is(err, absence.ErrInvalidDateRange),
		errors.Is(err, absence.ErrInvalidTimeWindow),
		errors.Is(err, absence.ErrInvalidAbsenceType),
		errors.Is(err, absence.ErrInvalidRecurrence):
		writeError(w, http.StatusBadRequest, "invalid_absence", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
