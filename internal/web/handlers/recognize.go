package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"faceclock/internal/attendance"
	"faceclock/internal/extractor"
	"faceclock/internal/recognize"
)

// RecognizeHandler handles the camera-facing recognition endpoint.
type RecognizeHandler struct {
	svc Recognizer
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(svc Recognizer) *RecognizeHandler {
	return &RecognizeHandler{svc: svc}
}

type employeeJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type recognizeResponse struct {
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	Mode     string        `json:"mode"`
	Employee *employeeJSON `json:"employee,omitempty"`
	Time     *time.Time    `json:"time,omitempty"`
	Distance float64       `json:"distance"`
}

// Recognize accepts a multipart form with an image and a mode
// (Login/Logout), identifies the person and marks attendance. An
// unrecognized face is 401, a rejected transition is 409.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	mode, err := attendance.ParseMode(r.FormValue("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := readFormImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.Recognize(r.Context(), image, mode)
	if err != nil {
		switch {
		case errors.Is(err, extractor.ErrNoFace):
			respondError(w, http.StatusBadRequest, "no face detected in image")
		case errors.Is(err, recognize.ErrInvalidImage):
			respondError(w, http.StatusBadRequest, "invalid image")
		default:
			log.Printf("recognize failed: %v", err)
			respondError(w, http.StatusInternalServerError, "recognition failed")
		}
		return
	}

	if !rec.Matched {
		respondJSON(w, http.StatusUnauthorized, recognizeResponse{
			Status:   "unrecognized",
			Message:  "face not recognized",
			Mode:     string(mode),
			Distance: rec.Distance,
		})
		return
	}

	employee := &employeeJSON{ID: rec.IdentityID, Name: rec.DisplayName}
	att := rec.Attendance

	if !att.Accepted {
		respondJSON(w, http.StatusConflict, recognizeResponse{
			Status:   "rejected",
			Message:  string(att.Reason),
			Mode:     string(mode),
			Employee: employee,
			Distance: rec.Distance,
		})
		return
	}

	respondJSON(w, http.StatusOK, recognizeResponse{
		Status:   "success",
		Message:  string(mode) + " marked",
		Mode:     string(mode),
		Employee: employee,
		Time:     &att.Time,
		Distance: rec.Distance,
	})
}

// readFormImage reads one uploaded file from the multipart form.
func readFormImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New(field + " file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, errors.New("failed to read " + field + " file")
	}
	return data, nil
}
