package web

import (
	"github.com/go-chi/chi/v5"

	"faceclock/internal/store"
	"faceclock/internal/web/handlers"
)

func (s *Server) setupRoutes(recognizer handlers.Recognizer, backend store.Backend) {
	recognizeHandler := handlers.NewRecognizeHandler(recognizer)
	registerHandler := handlers.NewRegisterHandler(recognizer)
	attendanceHandler := handlers.NewAttendanceHandler(backend.Attendance())
	statusHandler := handlers.NewStatusHandler(s.config, backend.Enrollments())

	// Health check.
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/register", registerHandler.Register)

		r.Get("/attendance/{identityID}", attendanceHandler.List)
		r.Get("/attendance/{identityID}/monthly", attendanceHandler.MonthlyCount)

		r.Get("/status", statusHandler.Get)
	})
}
