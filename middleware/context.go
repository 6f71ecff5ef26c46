package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/session"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for validated session claims
	ClaimsKey contextKey = "claims"

	// UserKey is the context key for the authorization user
	UserKey contextKey = "user"
)

// GetRequestIDFromContext retrieves the request ID from context, falling back
// to the ID assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok && requestID != "" {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves session claims from context
func GetClaimsFromContext(ctx context.Context) *session.ParsedClaims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*session.ParsedClaims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds session claims to the context
func WithClaims(ctx context.Context, claims *session.ParsedClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserFromContext retrieves the authenticated user, nil when anonymous
func GetUserFromContext(ctx context.Context) *rbac.User {
	if val := ctx.Value(UserKey); val != nil {
		if user, ok := val.(*rbac.User); ok {
			return user
		}
	}
	return nil
}

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *rbac.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
