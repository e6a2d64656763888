package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fdg312/nutricart/internal/logging"
	"github.com/google/uuid"
)

// Middleware — middleware для проверки токена сессии
type Middleware struct {
	required bool
	service  *Service
}

// NewMiddleware creates the auth middleware. With required set every
// non-public request needs a valid token.
func NewMiddleware(required bool, service *Service) *Middleware {
	return &Middleware{
		required: required,
		service:  service,
	}
}

// Wrap picks RequireAuth or OptionalAuth depending on configuration.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m.required {
		return m.RequireAuth(next)
	}
	return m.OptionalAuth(next)
}

// RequireAuth — middleware для защиты эндпоинтов
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			m.OptionalAuth(next).ServeHTTP(w, r)
			return
		}

		sessionID, err := m.authenticateHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}

// OptionalAuth validates Bearer token only when it is provided.
// Without token, requests pass through unchanged.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			next.ServeHTTP(w, r)
			return
		}

		sessionID, err := m.authenticateHeader(authHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		logging.Debug().Str("session", sessionID.String()).Str("method", r.Method).Str("path", r.URL.Path).Msg("auth token accepted")
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (uuid.UUID, error) {
	if authHeader == "" {
		return uuid.Nil, ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return uuid.Nil, ErrInvalidToken
	}

	return m.service.VerifyJWT(strings.TrimSpace(parts[1]))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// isPublic — эндпоинты, доступные без сессии
func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/v1/session":
		return r.Method == http.MethodPost
	case "/v1/nutrition/targets":
		return r.Method == http.MethodPost
	}
	return false
}
