package auth

import (
	"context"

	"github.com/fdg312/nutricart/internal/userctx"
	"github.com/google/uuid"
)

func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return userctx.WithSessionID(ctx, id)
}

func GetSessionID(ctx context.Context) (uuid.UUID, bool) {
	return userctx.SessionID(ctx)
}
