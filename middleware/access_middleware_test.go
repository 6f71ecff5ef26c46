package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/internal/navigation"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/services/audit"
	"go.uber.org/zap"
)

// MockAuditor is a mock implementation of Auditor
type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) RecordAccessDenied(user *rbac.User, resourceType, resource string, decision rbac.Decision, meta audit.RequestMeta) error {
	return m.Called(user, resourceType, resource, decision, meta).Error(0)
}

type staticResolver struct{}

func (staticResolver) Resolve(user *rbac.User, requestURI string) navigation.Resolution {
	return navigation.Resolve(navigation.PageRoutes(), user, requestURI, navigation.LoginPath, navigation.DefaultRoute)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAs(h http.Handler, user *rbac.User, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		req = req.WithContext(WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequire(t *testing.T) {
	logger := zap.NewNop()

	t.Run("no user returns 401 without auditing", func(t *testing.T) {
		auditor := new(MockAuditor)
		m := NewAccessMiddleware(auditor, "", logger)

		w := serveAs(m.RequireAllPermissions(rbac.PermViewTasks)(okHandler()), nil, "/api/v1/tasks")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		auditor.AssertNotCalled(t, "RecordAccessDenied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing permission returns 403 and audits", func(t *testing.T) {
		auditor := new(MockAuditor)
		m := NewAccessMiddleware(auditor, "", logger)
		user := &rbac.User{ID: "u1", Role: "member"}

		auditor.On("RecordAccessDenied", user, "route", "/api/v1/users",
			rbac.Decision{Reason: rbac.ReasonPermission, Role: rbac.RoleMember}, mock.Anything).Return(nil)

		w := serveAs(m.RequireAllPermissions(rbac.PermManageUsers)(okHandler()), user, "/api/v1/users")

		assert.Equal(t, http.StatusForbidden, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "forbidden", body["error"])
		details := body["details"].(map[string]interface{})
		assert.Equal(t, "permission", details["reason"])
		auditor.AssertExpectations(t)
	})

	t.Run("role failure is reported as role", func(t *testing.T) {
		auditor := new(MockAuditor)
		m := NewAccessMiddleware(auditor, "", logger)
		auditor.On("RecordAccessDenied", mock.Anything, "route", mock.Anything,
			mock.MatchedBy(func(d rbac.Decision) bool { return d.Reason == rbac.ReasonRole }), mock.Anything).Return(nil)

		w := serveAs(m.RequireMinimumRole(rbac.RoleOwner)(okHandler()), &rbac.User{Role: "LEADER"}, "/api/v1/billing")

		assert.Equal(t, http.StatusForbidden, w.Code)
		auditor.AssertExpectations(t)
	})

	t.Run("allowed requests reach the handler", func(t *testing.T) {
		m := NewAccessMiddleware(nil, "", logger)

		assert.Equal(t, http.StatusOK, serveAs(m.RequireAnyPermission(rbac.PermManageUsers, rbac.PermViewReports)(okHandler()), &rbac.User{Role: "LEADER"}, "/").Code)
		assert.Equal(t, http.StatusOK, serveAs(m.RequireRoles(rbac.RoleProjectManager)(okHandler()), &rbac.User{Role: "owner"}, "/").Code)
		assert.Equal(t, http.StatusOK, serveAs(m.Require(rbac.AccessRequirement{})(okHandler()), &rbac.User{Role: "nonsense"}, "/").Code)
	})

	t.Run("empty permission list places no restriction", func(t *testing.T) {
		m := NewAccessMiddleware(nil, "", logger)
		w := serveAs(m.RequireAnyPermission()(okHandler()), &rbac.User{Role: "SUPER_ADMIN"}, "/")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPageGate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("anonymous users go to login with callback", func(t *testing.T) {
		auditor := new(MockAuditor)
		m := NewAccessMiddleware(auditor, "", logger)

		w := serveAs(m.PageGate(staticResolver{})(okHandler()), nil, "/projects/42?tab=board")

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?callbackUrl=%2Fprojects%2F42%3Ftab%3Dboard", w.Header().Get("Location"))
		auditor.AssertNotCalled(t, "RecordAccessDenied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unauthorized users go to the default route", func(t *testing.T) {
		auditor := new(MockAuditor)
		m := NewAccessMiddleware(auditor, "https://app.example.com/", logger)
		auditor.On("RecordAccessDenied", mock.Anything, "page", "/admin/users", mock.Anything, mock.Anything).Return(nil)

		w := serveAs(m.PageGate(staticResolver{})(okHandler()), &rbac.User{ID: "u", Role: "MEMBER"}, "/admin/users")

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.example.com/dashboard", w.Header().Get("Location"))
		auditor.AssertExpectations(t)
	})

	t.Run("guest pages are open", func(t *testing.T) {
		m := NewAccessMiddleware(nil, "", logger)
		w := serveAs(m.PageGate(staticResolver{})(okHandler()), nil, "/login")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("authorized users pass", func(t *testing.T) {
		m := NewAccessMiddleware(nil, "", logger)
		w := serveAs(m.PageGate(staticResolver{})(okHandler()), &rbac.User{Role: "ADMIN"}, "/admin/billing")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
