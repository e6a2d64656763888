// Package userctx carries the authenticated session through a request context.
package userctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const sessionIDContextKey contextKey = "session_id"

func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

func SessionID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
