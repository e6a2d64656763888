package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ProfileSource resolves the profile bound to the request's session.
type ProfileSource interface {
	CurrentProfile(ctx context.Context) (UserProfile, error)
}

// Handler handles HTTP requests for nutrition targets.
type Handler struct {
	profiles ProfileSource
}

// NewHandler creates a new nutrition handler.
func NewHandler(profiles ProfileSource) *Handler {
	return &Handler{profiles: profiles}
}

// HandleGetTargets handles GET /v1/nutrition/targets
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.CurrentProfile(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session_required", "Create a session or send a profile")
		return
	}

	h.writeTargets(w, profile)
}

// HandleComputeTargets handles POST /v1/nutrition/targets
func (h *Handler) HandleComputeTargets(w http.ResponseWriter, r *http.Request) {
	var profile UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	profile = profile.Normalize()
	if err := profile.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}

	h.writeTargets(w, profile)
}

func (h *Handler) writeTargets(w http.ResponseWriter, profile UserProfile) {
	target, err := ComputeTarget(profile)
	if err != nil {
		if errors.Is(err, ErrUnsupportedProfile) {
			writeError(w, http.StatusUnprocessableEntity, "unsupported_profile", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to compute targets")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(TargetsResponse{
		Targets: target.Breakdown(),
		Days:    profile.Days,
	})
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
