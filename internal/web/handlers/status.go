package handlers

import (
	"log"
	"net/http"

	"faceclock/internal/config"
	"faceclock/internal/store"
)

// StatusHandler reports runtime configuration and enrollment count.
type StatusHandler struct {
	config      *config.Config
	enrollments store.EnrollmentStore
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(cfg *config.Config, enrollments store.EnrollmentStore) *StatusHandler {
	return &StatusHandler{config: cfg, enrollments: enrollments}
}

// Get returns the active backend driver, matcher strategy, threshold
// and the current number of enrollments.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	all, err := h.enrollments.GetAll(r.Context())
	if err != nil {
		log.Printf("status query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query enrollments")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"driver":      h.config.Database.Driver,
		"matcher":     h.config.Matcher.Strategy,
		"model":       h.config.Extractor.Model,
		"threshold":   h.config.MatchThreshold(),
		"enrollments": len(all),
	})
}
