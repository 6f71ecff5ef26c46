package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/session"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// DefaultCookieNames are the session cookies checked when no Authorization header is sent
var DefaultCookieNames = []string{"session_token", "__Secure-session_token"}

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns its claims
	ValidateToken(ctx context.Context, token string) (*session.ParsedClaims, error)
}

// UserLoader resolves the authorization user for validated claims, typically
// from the profile store so role changes apply before the token expires
type UserLoader interface {
	LoadUser(ctx context.Context, claims *session.ParsedClaims) (*rbac.User, error)
}

// AuthOption configures an AuthMiddleware
type AuthOption func(*AuthMiddleware)

// WithUserLoader sets the loader consulted after token validation
func WithUserLoader(loader UserLoader) AuthOption {
	return func(m *AuthMiddleware) {
		m.loader = loader
	}
}

// WithCookieNames overrides the session cookie names, checked in order
func WithCookieNames(names ...string) AuthOption {
	return func(m *AuthMiddleware) {
		if len(names) > 0 {
			m.cookieNames = names
		}
	}
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator   TokenValidator
	loader      UserLoader
	cookieNames []string
	logger      *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger, opts ...AuthOption) *AuthMiddleware {
	m := &AuthMiddleware{
		validator:   validator,
		cookieNames: DefaultCookieNames,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type authFailure string

const (
	failureNone         authFailure = ""
	failureMissingToken authFailure = "Missing or invalid authorization"
	failureInvalidToken authFailure = "Invalid or expired token"
)

// authenticate validates the request's token and attaches claims and user to
// the returned context
func (m *AuthMiddleware) authenticate(r *http.Request) (context.Context, authFailure) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	if GetUserFromContext(ctx) != nil {
		return ctx, failureNone
	}

	token := m.extractToken(r)
	if token == "" {
		return ctx, failureMissingToken
	}

	claims, err := m.validator.ValidateToken(ctx, token)
	if err != nil {
		m.logger.Warn("token validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		return ctx, failureInvalidToken
	}

	user := claims.ToUser()
	if m.loader != nil {
		loaded, err := m.loader.LoadUser(ctx, claims)
		switch {
		case err != nil:
			m.logger.Warn("failed to load user, using token claims",
				zap.String("request_id", requestID),
				zap.String("sub", claims.Sub.String()),
				zap.Error(err))
		case loaded != nil:
			user = loaded
		}
	}

	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Sub.String()),
		zap.String("role", user.Role))

	ctx = WithClaims(ctx, claims)
	ctx = WithUser(ctx, user)
	return ctx, failureNone
}

// Authenticate attaches the user when a valid token is present and otherwise
// lets the request through anonymously
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := m.authenticate(r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth is a middleware that requires a valid session token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, failure := m.authenticate(r)
		if failure != failureNone {
			m.logger.Warn("authentication required",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("path", r.URL.Path),
				zap.String("failure", string(failure)))
			_ = utils.WriteUnauthorized(w, string(failure))
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the Bearer token from the Authorization header, falling
// back to the session cookies. The header takes precedence.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range m.cookieNames {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
