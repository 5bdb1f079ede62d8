package auth

import (
	"context"

	"github.com/metyhq/mety-api/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey carries the identity resolved by the API key guard.
	authContextKey contextKey = "auth_context"
	// sessionUserKey carries the user id resolved from a session token.
	sessionUserKey contextKey = "session_user"
)

// ContextWithAuth adds a resolved API key identity to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves the API key identity from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// ContextWithSessionUser adds a session-authenticated user id to the context.
func ContextWithSessionUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, sessionUserKey, userID)
}

// SessionUserFromContext retrieves the session user id from the context.
// Returns false if no session middleware has run.
func SessionUserFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(sessionUserKey).(int64)
	return userID, ok
}
