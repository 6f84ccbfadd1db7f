package context

import (
	"context"

	"github.com/mkrupp/postboard/internal/domain"
)

const contextKeySession = contextKey("session")

// SessionFromContext returns the verified session claims of the current request.
// Only the session middleware stores claims, so presence implies authentication.
func SessionFromContext(ctx context.Context) (domain.Claims, bool) {
	claims, ok := ctx.Value(contextKeySession).(domain.Claims)

	return claims, ok
}

// UserIDFromContext returns the authenticated user's id.
func UserIDFromContext(ctx context.Context) (domain.UserID, bool) {
	claims, ok := SessionFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", false
	}

	return claims.UserID, true
}

// WithSession attaches verified session claims to ctx.
func WithSession(ctx context.Context, claims domain.Claims) context.Context {
	return context.WithValue(ctx, contextKeySession, claims)
}
