package profiles

import (
	"time"

	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/google/uuid"
)

// SessionDTO — DTO сессии для API
type SessionDTO struct {
	ID        uuid.UUID             `json:"id"`
	Profile   nutrition.UserProfile `json:"profile"`
	Targets   nutrition.Breakdown   `json:"targets"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// CreateSessionResponse — ответ для POST /v1/session
type CreateSessionResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int64               `json:"expires_in"`
	SessionID   uuid.UUID           `json:"session_id"`
	Targets     nutrition.Breakdown `json:"targets"`
}

// ErrorResponse — формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
