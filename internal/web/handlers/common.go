// Package handlers implements the HTTP handlers of the attendance API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"faceclock/internal/attendance"
	"faceclock/internal/recognize"
	"faceclock/internal/store"
)

// maxUploadSize bounds multipart request bodies (32 MB).
const maxUploadSize = 32 << 20

// Recognizer is the slice of the recognition service the handlers use.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte, mode attendance.Mode) (recognize.Recognition, error)
	Register(ctx context.Context, identityID, displayName string, images [][]byte) (store.Enrollment, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
