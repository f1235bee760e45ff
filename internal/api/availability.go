package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/mediconnect/scheduling-engine/internal/availability"
)

func computedAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidParam(w, r, "doctorID")
		if !ok {
			return
		}

		startDate, err := time.Parse(dateLayout, r.URL.Query().Get("start_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.Parse(dateLayout, r.URL.Query().Get("end_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}

		days, err := svc.Compute(r.Context(), doctorID, startDate, endDate)
		if err != nil {
			switch {
			case errors.Is(err, availability.ErrInvalidDateRange),
				errors.Is(err, availability.ErrRangeTooLarge):
				writeError(w, http.StatusBadRequest, "invalid_date_range", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(doctorID, days))
	}
}
