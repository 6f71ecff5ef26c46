package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/internal/rbac"
	"go.uber.org/zap"
)

func TestHandleListRoles(t *testing.T) {
	handler := NewAccessHandler(zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleListRoles(w, newRequest(http.MethodGet, "/api/v1/rbac/roles", "", memberUser(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	roles := decodeData(t, w)["roles"].([]interface{})
	require.Len(t, roles, len(rbac.AllRoles()))

	first := roles[0].(map[string]interface{})
	last := roles[len(roles)-1].(map[string]interface{})
	assert.Equal(t, "GUEST", first["role"])
	assert.Equal(t, "SUPER_ADMIN", last["role"])
	assert.Greater(t, last["rank"].(float64), first["rank"].(float64))
	assert.Len(t, last["permissions"], len(rbac.AllPermissions()))
}

func TestHandleCheck(t *testing.T) {
	tests := []struct {
		name           string
		user           *rbac.User
		body           string
		expectedStatus int
		allowed        bool
		reason         string
		bodyContains   string
	}{
		{
			name:           "lower role listed admits higher role",
			user:           adminUser(),
			body:           `{"allowed_roles":["LEADER"]}`,
			expectedStatus: http.StatusOK,
			allowed:        true,
		},
		{
			name:           "role below every entry is denied",
			user:           memberUser(),
			body:           `{"allowed_roles":["ADMIN","OWNER"]}`,
			expectedStatus: http.StatusOK,
			reason:         "role",
		},
		{
			name:           "role aliases in the body are canonicalized",
			user:           memberUser(),
			body:           `{"minimum_role":"member"}`,
			expectedStatus: http.StatusOK,
			allowed:        true,
		},
		{
			name:           "missing permission",
			user:           memberUser(),
			body:           `{"required_permissions":["VIEW_TASKS","MANAGE_BILLING"]}`,
			expectedStatus: http.StatusOK,
			reason:         "permission",
		},
		{
			name:           "any match",
			user:           memberUser(),
			body:           `{"required_permissions":["VIEW_TASKS","MANAGE_BILLING"],"permission_match":"any"}`,
			expectedStatus: http.StatusOK,
			allowed:        true,
		},
		{
			name:           "no user",
			body:           `{}`,
			expectedStatus: http.StatusOK,
			reason:         "unauthenticated",
		},
		{
			name:           "unknown role",
			user:           memberUser(),
			body:           `{"allowed_roles":["EMPEROR"]}`,
			expectedStatus: http.StatusBadRequest,
			bodyContains:   "must be a known role",
		},
		{
			name:           "unknown permission",
			user:           memberUser(),
			body:           `{"required_permissions":["FLY"]}`,
			expectedStatus: http.StatusBadRequest,
			bodyContains:   "must be a known permission",
		},
		{
			name:           "bad match mode",
			user:           memberUser(),
			body:           `{"permission_match":"some"}`,
			expectedStatus: http.StatusBadRequest,
			bodyContains:   "must be one of",
		},
		{
			name:           "unknown field",
			user:           memberUser(),
			body:           `{"roles":["ADMIN"]}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccessHandler(zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleCheck(w, newRequest(http.MethodPost, "/api/v1/access/check", tt.body, tt.user, nil))

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.bodyContains != "" {
				assert.Contains(t, w.Body.String(), tt.bodyContains)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			data := decodeData(t, w)
			assert.Equal(t, tt.allowed, data["allowed"])
			if tt.reason != "" {
				assert.Equal(t, tt.reason, data["reason"])
			}
		})
	}
}
