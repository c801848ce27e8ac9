package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clickflow/clickflow-core/internal/macro"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListProfiles returns all profiles.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.registry.ListProfiles(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "count": len(profiles)})
}

// handleGetProfile returns a single profile by ID, falling back to slug lookup.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid profile ID")
		return
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

	writeJSON(w, http.StatusOK, profile)
}

// handleCreateProfile creates a new profile.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var profile macro.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.CreateProfile(r.Context(), &profile); err != nil {
		if isProfileValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, macro.ErrProfileExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// handleUpdateProfile partially updates a profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid profile ID")
		return
	}

	// Get existing profile
	existing, err := s.registry.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, macro.ErrProfileNotFound) {
			writeNotFound(w, "profile not found")
			return
		}
		writeInternalError(w, "failed to get profile")
		return
	}

	// Decode partial update onto existing profile
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.UpdateProfile(r.Context(), existing); err != nil {
		if isProfileValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, macro.ErrProfileExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteProfile removes a profile by ID.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid profile ID")
		return
	}

	if err := s.registry.DeleteProfile(r.Context(), id); err != nil {
		if errors.Is(err, macro.ErrProfileNotFound) {
			writeNotFound(w, "profile not found")
			return
		}
		writeInternalError(w, "failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExportProfiles returns all profiles as a portable JSON document.
// The output round-trips through handleImportProfiles on another instance.
func (s *Server) handleExportProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.registry.ListProfiles(r.Context())
	if err != nil {
		writeInternalError(w, "failed to export profiles")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="clickflow-profiles.json"`)
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// importRequest is the request body for POST /profiles/import.
type importRequest struct {
	Profiles []macro.Profile `json:"profiles"`
}

// importResult reports the outcome for one imported profile.
type importResult struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleImportProfiles creates profiles from an exported document.
// Each profile is imported independently; one failure does not abort
// the rest. Incoming IDs are discarded so imports never collide with
// existing profiles.
func (s *Server) handleImportProfiles(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Profiles) == 0 {
		writeBadRequest(w, "no profiles to import")
		return
	}

	results := make([]importResult, 0, len(req.Profiles))
	imported := 0
	for i := range req.Profiles {
		p := req.Profiles[i]
		p.ID = ""
		p.Slug = ""

		result := importResult{Name: p.Name}
		if err := s.registry.CreateProfile(r.Context(), &p); err != nil {
			result.Error = err.Error()
		} else {
			result.ID = p.ID
			imported++
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imported": imported,
		"failed":   len(results) - imported,
		"results":  results,
	})
}

// lookupProfile resolves an identifier as a profile ID first, then as a slug.
func (s *Server) lookupProfile(r *http.Request, id string) (*macro.Profile, error) {
	profile, err := s.registry.GetProfile(r.Context(), id)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, macro.ErrProfileNotFound) {
		return nil, err
	}
	return s.registry.GetProfileBySlug(r.Context(), id)
}

// isProfileValidationError reports whether the error is a client-side
// validation failure rather than a server fault.
func isProfileValidationError(err error) bool {
	return errors.Is(err, macro.ErrInvalidProfile) ||
		errors.Is(err, macro.ErrInvalidName) ||
		errors.Is(err, macro.ErrInvalidSlug) ||
		errors.Is(err, macro.ErrEmptySequence) ||
		errors.Is(err, macro.ErrInvalidAction) ||
		errors.Is(err, macro.ErrInvalidConfig)
}
