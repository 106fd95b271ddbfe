package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"faceclock/internal/store"
)

// defaultListLimit caps attendance history responses.
const defaultListLimit = 31

// AttendanceHandler serves attendance history queries.
type AttendanceHandler struct {
	ledger store.AttendanceLedger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(ledger store.AttendanceLedger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

type recordJSON struct {
	Date       string     `json:"date"`
	LoginTime  *time.Time `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time"`
	Location   string     `json:"location"`
}

// List returns the most recent attendance records for an identity,
// newest first.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.ledger.ListByIdentity(r.Context(), identityID, limit)
	if err != nil {
		log.Printf("list attendance for %s failed: %v", sanitizeForLog(identityID), err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	out := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON{
			Date:       rec.Date,
			LoginTime:  rec.LoginTime,
			LogoutTime: rec.LogoutTime,
			Location:   rec.Location,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identity_id": identityID,
		"records":     out,
	})
}

// MonthlyCount returns the number of days with a login in a month.
// Defaults to the current month when year/month are not given.
func (h *AttendanceHandler) MonthlyCount(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")

	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2000 || n > 9999 {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			respondError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = n
	}

	count, err := h.ledger.MonthlyLoginCount(r.Context(), identityID, year, month)
	if err != nil {
		log.Printf("monthly count for %s failed: %v", sanitizeForLog(identityID), err)
		respondError(w, http.StatusInternalServerError, "failed to count logins")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identity_id": identityID,
		"year":        year,
		"month":       month,
		"count":       count,
	})
}
