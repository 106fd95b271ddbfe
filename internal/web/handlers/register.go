package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"faceclock/internal/extractor"
	"faceclock/internal/recognize"
)

// RegisterHandler handles identity enrollment.
type RegisterHandler struct {
	svc Recognizer
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(svc Recognizer) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

type registerResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	Employee employeeJSON `json:"employee"`
}

// Register accepts a multipart form with identity_id, name and exactly
// three face images, and enrolls (or re-enrolls) the identity.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	identityID := r.FormValue("identity_id")
	if identityID == "" {
		respondError(w, http.StatusBadRequest, "identity_id is required")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no images provided")
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to open uploaded file")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		file.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		images = append(images, data)
	}

	enrolled, err := h.svc.Register(r.Context(), identityID, name, images)
	if err != nil {
		var noFace *recognize.NoFaceInSampleError
		switch {
		case errors.Is(err, recognize.ErrSampleCount):
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("exactly %d images are required", recognize.RequiredSamples))
		case errors.As(err, &noFace):
			respondError(w, http.StatusBadRequest, noFace.Error())
		case errors.Is(err, extractor.ErrNoFace):
			respondError(w, http.StatusBadRequest, "no face detected in image")
		case errors.Is(err, recognize.ErrInvalidImage):
			respondError(w, http.StatusBadRequest, "invalid image")
		default:
			log.Printf("register %s failed: %v", sanitizeForLog(identityID), err)
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	log.Printf("registered identity %s", sanitizeForLog(enrolled.IdentityID))
	respondJSON(w, http.StatusCreated, registerResponse{
		Status:   "success",
		Message:  "identity registered",
		Employee: employeeJSON{ID: enrolled.IdentityID, Name: enrolled.DisplayName},
	})
}
