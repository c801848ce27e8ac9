package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clickflow/clickflow-core/internal/macro"
)

// runProfileRequest is the optional request body for POST /profiles/{id}/run.
type runProfileRequest struct {
	// Cycles overrides the profile's cycle count when positive.
	Cycles int `json:"cycles"`
}

// handleRunProfile starts playback of a stored profile.
//
// This is an asynchronous operation. The response is 202 Accepted with the
// run ID; progress and state changes arrive via WebSocket.
func (s *Server) handleRunProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid profile ID")
		return
	}

	var req runProfileRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	profile, err := s.lookupProfile(r, id)
	if err != nil {
		if errors.Is(err, macro.ErrProfileNotFound) {
			writeNotFound(w, "profile not found")
			return
		}
		writeInternalError(w, "failed to get profile")
		return
	}

	if !profile.Enabled {
		writeError(w, http.StatusConflict, ErrCodeConflict, "profile is disabled")
		return
	}

	cfg := profile.Config
	if req.Cycles > 0 {
		cfg.Cycles = req.Cycles
	}

	runID, err := s.engine.StartRun(macro.RunRequest{
		ProfileID: profile.ID,
		Trigger:   "api",
		Sequence:  profile.Sequence,
		Config:    cfg,
		Observer:  s.observer,
	})
	if err != nil {
		s.writeStartError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":  runID,
		"status":  "accepted",
		"message": "playback started, events will follow via WebSocket",
	})
}

// adhocRunRequest is the request body for POST /run.
type adhocRunRequest struct {
	Sequence macro.Sequence   `json:"sequence"`
	Config   *macro.RunConfig `json:"config"`
}

// handleAdhocRun starts playback of an inline sequence without a stored
// profile. Omitted configuration falls back to the daemon defaults.
func (s *Server) handleAdhocRun(w http.ResponseWriter, r *http.Request) {
	var req adhocRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg := s.defaults
	if req.Config != nil {
		cfg = *req.Config
	}

	runID, err := s.engine.StartRun(macro.RunRequest{
		Trigger:  "api",
		Sequence: req.Sequence,
		Config:   cfg,
		Observer: s.observer,
	})
	if err != nil {
		s.writeStartError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":  runID,
		"status":  "accepted",
		"message": "playback started, events will follow via WebSocket",
	})
}

// handleRunStatus returns the engine state and live statistics.
func (s *Server) handleRunStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  s.engine.State(),
		"run_id": s.engine.RunID(),
		"stats":  s.engine.Stats(),
	})
}

// handleStopRun requests cancellation of the active run.
// Always 202: stop is an idempotent request, not a synchronous halt.
func (s *Server) handleStopRun(w http.ResponseWriter, _ *http.Request) {
	s.engine.RequestStop()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "stop requested",
		"state":  s.engine.State(),
	})
}

// handlePauseRun pauses the active run at the next action boundary.
func (s *Server) handlePauseRun(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Pause(s.observer); err != nil {
		if errors.Is(err, macro.ErrNotRunning) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "no active run")
			return
		}
		writeInternalError(w, "failed to pause run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.engine.State()})
}

// handleResumeRun resumes a paused run.
func (s *Server) handleResumeRun(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Resume(s.observer); err != nil {
		if errors.Is(err, macro.ErrNotPaused) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "run is not paused")
			return
		}
		writeInternalError(w, "failed to resume run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.engine.State()})
}

// handleListRuns returns run history, most recent first.
//
// Query parameters:
//   - profile_id: filter by profile
//   - limit: maximum records (default 50, bounded by the repository)
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []macro.RunRecord{}, "count": 0})
		return
	}

	profileID := r.URL.Query().Get("profile_id")
	if len(profileID) > maxQueryParamLen {
		writeBadRequest(w, "profile_id exceeds maximum length")
		return
	}

	const defaultRunLimit = 50
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRuns(r.Context(), profileID, limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// writeStartError maps engine start failures to HTTP responses.
func (s *Server) writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, macro.ErrRunInProgress):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a run is already in progress")
	case errors.Is(err, macro.ErrEmptySequence),
		errors.Is(err, macro.ErrInvalidAction),
		errors.Is(err, macro.ErrInvalidConfig):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "failed to start run")
	}
}
