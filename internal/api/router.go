package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Profile endpoints
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Get("/export", s.handleExportProfiles)
			r.Post("/import", s.handleImportProfiles)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Patch("/", s.handleUpdateProfile)
				r.Delete("/", s.handleDeleteProfile)
				r.Post("/run", s.handleRunProfile)
			})
		})

		// Playback control
		r.Route("/run", func(r chi.Router) {
			r.Get("/", s.handleRunStatus)
			r.Post("/", s.handleAdhocRun)
			r.Post("/stop", s.handleStopRun)
			r.Post("/pause", s.handlePauseRun)
			r.Post("/resume", s.handleResumeRun)
		})

		// Run history
		r.Get("/runs", s.handleListRuns)

		// WebSocket event stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
