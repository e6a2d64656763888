package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fdg312/nutricart/internal/auth"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/google/uuid"
)

// TokenIssuer выдаёт токен для новой сессии
type TokenIssuer interface {
	IssueToken(sessionID uuid.UUID) (auth.Token, error)
}

// Handler содержит HTTP обработчики для сессий
type Handler struct {
	service *Service
	tokens  TokenIssuer
}

// NewHandler создаёт новый handler
func NewHandler(service *Service, tokens TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// HandleCreate обрабатывает POST /v1/session
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var profile nutrition.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	session, err := h.service.Create(r.Context(), profile)
	if err != nil {
		h.sendProfileError(w, err, "Failed to create session")
		return
	}

	token, err := h.tokens.IssueToken(session.ID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to issue token")
		return
	}

	h.sendJSON(w, http.StatusCreated, CreateSessionResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		SessionID:   session.ID,
		Targets:     session.Targets,
	})
}

// HandleGet обрабатывает GET /v1/session
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Current(r.Context())
	if err != nil {
		h.sendProfileError(w, err, "Failed to load session")
		return
	}

	h.sendJSON(w, http.StatusOK, session)
}

// HandleUpdate обрабатывает PUT /v1/session
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var profile nutrition.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	session, err := h.service.Update(r.Context(), profile)
	if err != nil {
		h.sendProfileError(w, err, "Failed to update session")
		return
	}

	h.sendJSON(w, http.StatusOK, session)
}

// HandleDelete обрабатывает DELETE /v1/session
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context()); err != nil {
		h.sendProfileError(w, err, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendProfileError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNoSession):
		h.sendError(w, http.StatusUnauthorized, "session_required", "Create a session first")
	case errors.Is(err, ErrNotFound):
		h.sendError(w, http.StatusNotFound, "session_not_found", "Session not found")
	case errors.Is(err, nutrition.ErrInvalidProfile):
		h.sendError(w, http.StatusBadRequest, "invalid_profile", err.Error())
	case errors.Is(err, nutrition.ErrUnsupportedProfile):
		h.sendError(w, http.StatusUnprocessableEntity, "unsupported_profile", err.Error())
	default:
		h.sendError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// sendJSON отправляет JSON ответ
func (h *Handler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError отправляет ошибку в формате ErrorResponse
func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
