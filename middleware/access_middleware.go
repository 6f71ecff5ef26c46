package middleware

import (
	"net/http"
	"strings"

	"github.com/upb/taskhub/internal/navigation"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/services/audit"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// Auditor records denied requests
type Auditor interface {
	RecordAccessDenied(user *rbac.User, resourceType, resource string, decision rbac.Decision, meta audit.RequestMeta) error
}

// PageResolver decides whether a page request may proceed
type PageResolver interface {
	Resolve(user *rbac.User, requestURI string) navigation.Resolution
}

// AccessMiddleware enforces access requirements on API and page routes. It
// expects AuthMiddleware to have run first.
type AccessMiddleware struct {
	auditor      Auditor
	redirectBase string
	logger       *zap.Logger
}

// NewAccessMiddleware creates a new AccessMiddleware. redirectBase prefixes
// page redirects when pages are served from another origin; it may be empty.
func NewAccessMiddleware(auditor Auditor, redirectBase string, logger *zap.Logger) *AccessMiddleware {
	return &AccessMiddleware{
		auditor:      auditor,
		redirectBase: strings.TrimSuffix(redirectBase, "/"),
		logger:       logger,
	}
}

func requestMeta(r *http.Request) audit.RequestMeta {
	return audit.RequestMeta{
		RequestID: GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

func (m *AccessMiddleware) recordDenial(r *http.Request, user *rbac.User, resourceType string, decision rbac.Decision) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.RecordAccessDenied(user, resourceType, r.URL.Path, decision, requestMeta(r)); err != nil {
		m.logger.Warn("failed to record access denial",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.Error(err))
	}
}

// Require rejects requests whose user does not satisfy req: 401 when there is
// no user, 403 otherwise
func (m *AccessMiddleware) Require(req rbac.AccessRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)
			user := GetUserFromContext(ctx)

			decision := rbac.Evaluate(user, req)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if decision.Reason == rbac.ReasonUnauthenticated {
				m.logger.Warn("unauthenticated request to protected route",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			m.logger.Warn("access denied",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.String("user_id", user.ID),
				zap.String("role", string(decision.Role)),
				zap.String("reason", string(decision.Reason)))
			m.recordDenial(r, user, "route", decision)
			_ = utils.WriteForbiddenReason(w, "Insufficient permissions", string(decision.Reason))
		})
	}
}

// RequireAnyPermission requires at least one of perms
func (m *AccessMiddleware) RequireAnyPermission(perms ...rbac.Permission) func(http.Handler) http.Handler {
	return m.Require(rbac.AccessRequirement{RequiredPermissions: perms, PermissionMatch: rbac.MatchAny})
}

// RequireAllPermissions requires every one of perms
func (m *AccessMiddleware) RequireAllPermissions(perms ...rbac.Permission) func(http.Handler) http.Handler {
	return m.Require(rbac.AccessRequirement{RequiredPermissions: perms, PermissionMatch: rbac.MatchAll})
}

// RequireMinimumRole requires a role ranked at least as high as role
func (m *AccessMiddleware) RequireMinimumRole(role rbac.Role) func(http.Handler) http.Handler {
	return m.Require(rbac.AccessRequirement{MinimumRole: role})
}

// RequireRoles admits the listed roles and every role ranked above one of them
func (m *AccessMiddleware) RequireRoles(roles ...rbac.Role) func(http.Handler) http.Handler {
	return m.Require(rbac.AccessRequirement{AllowedRoles: roles})
}

// PageGate protects server-rendered pages. Denied requests are redirected
// with 302: anonymous users to the login page carrying the original URL,
// signed-in users to the default route.
func (m *AccessMiddleware) PageGate(resolver PageResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())

			resolution := resolver.Resolve(user, r.URL.RequestURI())
			if resolution.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if resolution.Reason != rbac.ReasonUnauthenticated {
				m.recordDenial(r, user, "page", rbac.Decision{Reason: resolution.Reason, Role: user.NormalizedRole()})
			}

			m.logger.Debug("page redirect",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path),
				zap.String("redirect", resolution.Redirect))

			http.Redirect(w, r, m.redirectBase+resolution.Redirect, http.StatusFound)
		})
	}
}
