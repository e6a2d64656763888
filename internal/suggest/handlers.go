package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/nutrition"
)

// Handler handles HTTP requests for suggestions.
type Handler struct {
	engine   *Engine
	profiles nutrition.ProfileSource
	timeout  time.Duration
}

// NewHandler creates a suggestion handler. timeout bounds one computation;
// zero disables it.
func NewHandler(engine *Engine, profiles nutrition.ProfileSource, timeout time.Duration) *Handler {
	return &Handler{engine: engine, profiles: profiles, timeout: timeout}
}

// ResolveProfile returns the request's profile, falling back to the session.
func ResolveProfile(ctx context.Context, explicit *nutrition.UserProfile, profiles nutrition.ProfileSource) (nutrition.UserProfile, error) {
	if explicit != nil {
		p := explicit.Normalize()
		if err := p.Validate(); err != nil {
			return nutrition.UserProfile{}, err
		}
		return p, nil
	}
	if profiles == nil {
		return nutrition.UserProfile{}, ErrNoProfile
	}
	p, err := profiles.CurrentProfile(ctx)
	if err != nil {
		return nutrition.UserProfile{}, ErrNoProfile
	}
	return p.Normalize(), nil
}

// ErrNoProfile: в запросе нет профиля и нет сессии
var ErrNoProfile = errors.New("no profile: send one or create a session")

// HandleSuggest handles POST /v1/suggestions
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	c, err := cart.Parse(req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cart", err.Error())
		return
	}

	profile, err := ResolveProfile(r.Context(), req.Profile, h.profiles)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			writeError(w, http.StatusUnauthorized, "session_required", "Create a session or send a profile")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	ev, err := h.engine.Evaluate(ctx, c, profile)
	if err != nil {
		switch {
		case errors.Is(err, nutrition.ErrUnsupportedProfile):
			writeError(w, http.StatusUnprocessableEntity, "unsupported_profile", err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			logging.Warn().Dur("timeout", h.timeout).Int("items", len(c)).Msg("suggestion timed out")
			writeError(w, http.StatusGatewayTimeout, "timeout", "Suggestion took too long")
		case errors.Is(err, ErrOptimizationInfeasible):
			logging.Error().Err(err).Int("items", len(c)).Msg("optimizer failed")
			writeError(w, http.StatusInternalServerError, "optimization_infeasible", "Could not optimize the cart")
		case errors.Is(err, context.Canceled):
			// клиент ушёл
			return
		default:
			logging.Error().Err(err).Msg("suggestion failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to compute suggestion")
		}
		return
	}

	writeJSON(w, http.StatusOK, NewResponse(ev))
}

// NewResponse converts an evaluation to its wire form.
func NewResponse(ev Evaluation) Response {
	unknown := ev.Aggregate.Unknown
	if unknown == nil {
		unknown = []int{}
	}
	return Response{
		Suggestion:   ev.Suggestion,
		State:        ev.State.String(),
		Target:       ev.Target.Breakdown(),
		Nutrients:    ev.Aggregate.Total.Breakdown(),
		UnknownCodes: unknown,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
