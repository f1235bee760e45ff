package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mediconnect/scheduling-engine/internal/schedule"
	"github.com/mediconnect/scheduling-engine/internal/timeutil"
)

func getWeeklyScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}

		ws, err := svc.WeeklySchedule(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWeeklyScheduleResponse(ws))
	}
}

func setWorkingHoursHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req WorkingHoursRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		days := make([]schedule.DayInput, 0, len(req.Days))
		for _, d := range req.Days {
			day := schedule.DayInput{DayOfWeek: d.DayOfWeek, IsWorkingDay: d.IsWorkingDay}
			for _, s := range d.Slots {
				in, ok := parseSlotRequest(w, s)
				if !ok {
					return
				}
				in.DayOfWeek = d.DayOfWeek
				day.Slots = append(day.Slots, in)
			}
			days = append(days, day)
		}

		ws, err := svc.SetWorkingHours(r.Context(), doctorID, days)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWeeklyScheduleResponse(ws))
	}
}

func createSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req SlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		in, ok := parseSlotRequest(w, req)
		if !ok {
			return
		}

		slot, err := svc.CreateSlot(r.Context(), doctorID, in)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func updateSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := uuidParam(w, r, "slotID")
		if !ok {
			return
		}
		var req SlotUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := schedule.SlotUpdate{
			SlotDurationMinutes: req.SlotDurationMinutes,
			ClearBreak:          req.ClearBreak,
			IsActive:            req.IsActive,
		}
		var ok2 bool
		if upd.Start, ok2 = optionalClock(w, req.StartTime, "start_time"); !ok2 {
			return
		}
		if upd.End, ok2 = optionalClock(w, req.EndTime, "end_time"); !ok2 {
			return
		}
		if upd.BreakStart, ok2 = optionalClock(w, req.BreakStart, "break_start"); !ok2 {
			return
		}
		if upd.BreakEnd, ok2 = optionalClock(w, req.BreakEnd, "break_end"); !ok2 {
			return
		}
		if req.ConsultationType != nil {
			t := schedule.ConsultationType(*req.ConsultationType)
			upd.ConsultationType = &t
		}

		slot, err := svc.UpdateSlot(r.Context(), doctorID, slotID, upd)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func deleteSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := uuidParam(w, r, "slotID")
		if !ok {
			return
		}

		if err := svc.DeleteSlot(r.Context(), doctorID, slotID); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createExceptionHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req ExceptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		in := schedule.ExceptionInput{
			Date:        date,
			IsAvailable: req.IsAvailable,
			Reason:      req.Reason,
		}
		var ok2 bool
		if in.Start, ok2 = optionalClock(w, req.StartTime, "start_time"); !ok2 {
			return
		}
		if in.End, ok2 = optionalClock(w, req.EndTime, "end_time"); !ok2 {
			return
		}
		if req.ConsultationType != nil {
			t := schedule.ConsultationType(*req.ConsultationType)
			in.ConsultationType = &t
		}

		exc, err := svc.CreateException(r.Context(), doctorID, in)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toExceptionResponse(exc))
	}
}

func listExceptionsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}

		var from, to *time.Time
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
			from = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
			to = &t
		}

		exceptions, err := svc.Exceptions(r.Context(), doctorID, from, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		result := make([]ExceptionResponse, 0, len(exceptions))
		for i := range exceptions {
			result = append(result, toExceptionResponse(&exceptions[i]))
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func deleteExceptionHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}
		exceptionID, ok := uuidParam(w, r, "exceptionID")
		if !ok {
			return
		}

		if err := svc.DeleteException(r.Context(), doctorID, exceptionID); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, schedule.ErrExceptionNotFound):
		writeError(w, http.StatusNotFound, "exception_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotOverlap):
		writeError(w, http.StatusConflict, "slot_overlap", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeRange),
		errors.Is(err, schedule.ErrInvalidSlotDuration),
		errors.Is(err, schedule.ErrInvalidDayOfWeek),
		errors.Is(err, schedule.ErrInvalidBreak),
		errors.Is(err, schedule.ErrInvalidConsultationType):
		writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseSlotRequest(w http.ResponseWriter, req SlotRequest) (schedule.SlotInput, bool) {
	var in schedule.SlotInput
	in.DayOfWeek = req.DayOfWeek
	in.ConsultationType = schedule.ConsultationType(req.ConsultationType)
	in.SlotDurationMinutes = req.SlotDurationMinutes

	start, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
		return in, false
	}
	end, err := timeutil.ParseClock(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
		return in, false
	}
	in.Start, in.End = start, end

	var ok bool
	if in.BreakStart, ok = optionalClock(w, req.BreakStart, "break_start"); !ok {
		return in, false
	}
	if in.BreakEnd, ok = optionalClock(w, req.BreakEnd, "break_end"); !ok {
		return in, false
	}
	return in, true
}

func optionalClock(w http.ResponseWriter, s *string, field string) (*timeutil.Clock, bool) {
	if s == nil {
		return nil, true
	}
	c, err := timeutil.ParseClock(*s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be HH:MM")
		return nil, false
	}
	return &c, true
}
