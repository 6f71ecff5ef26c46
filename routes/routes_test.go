package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/taskhub/app"
	"github.com/upb/taskhub/config"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"github.com/upb/taskhub/services/audit"
	"github.com/upb/taskhub/services/navigation"
	"github.com/upb/taskhub/services/users"
	"github.com/upb/taskhub/session"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (m *memUsers) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUsers) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memUsers) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

func (m *memUsers) role(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Role
}

type memAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (m *memAudit) Insert(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memAudit) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, 0, len(m.logs))
	for _, l := range m.logs {
		if filter.Action == "" || l.Action == filter.Action {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memAudit) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return m
}

func (m *memAudit) count(action models.AuditAction) int {
	logs, _ := m.List(context.Background(), repositories.AuditFilter{Action: action})
	return len(logs)
}

type noTeams struct{}

func (noTeams) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Team, error) {
	return nil, nil
}

type noProjects struct{}

func (noProjects) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return nil, nil
}

type inlineTx struct{}

func (inlineTx) Begin(ctx context.Context) (repositories.Transaction, error) {
	return nil, nil
}

func (inlineTx) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, nil)
}

type testEnv struct {
	handler http.Handler
	users   *memUsers
	audit   *memAudit
	admin   *models.User
	member  *models.User
	signer  *session.Signer
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Session:     config.SessionConfig{Secret: testSecret, Issuer: "taskhub-web"},
		Access:      config.AccessConfig{LoginPath: "/login", DefaultRoute: "/dashboard"},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	if mutate != nil {
		mutate(cfg)
	}

	admin := models.NewUser("ada@example.com", "Ada", "admin")
	member := models.NewUser("max@example.com", "Max", "member")
	store := &memUsers{users: map[uuid.UUID]*models.User{admin.ID: admin, member.ID: member}}
	auditRepo := &memAudit{}

	auditSvc := audit.NewAuditService(auditRepo, logger, audit.Config{BufferSize: 50, WorkerCount: 1})
	require.NoError(t, auditSvc.Start())
	t.Cleanup(func() { _ = auditSvc.Stop(time.Second) })

	userSvc := users.NewService(store, inlineTx{}, auditSvc, logger)
	navSvc := navigation.NewService(noTeams{}, noProjects{}, navigation.Config{
		LoginPath:    cfg.Access.LoginPath,
		DefaultRoute: cfg.Access.DefaultRoute,
	}, logger)
	sessionCfg := session.Config{Secret: testSecret, Issuer: "taskhub-web"}

	deps := &app.Dependencies{
		Config:            cfg,
		Logger:            logger,
		Users:             store,
		AuditLogs:         auditRepo,
		AuditService:      auditSvc,
		UserService:       userSvc,
		NavigationService: navSvc,
		AuthMiddleware:    middleware.NewAuthMiddleware(session.NewValidator(sessionCfg), logger, middleware.WithUserLoader(userSvc)),
		AccessMiddleware:  middleware.NewAccessMiddleware(auditSvc, "", logger),
	}

	return &testEnv{
		handler: SetupRoutes(deps),
		users:   store,
		audit:   auditRepo,
		admin:   admin,
		member:  member,
		signer:  session.NewSigner(sessionCfg),
	}
}

func (e *testEnv) token(t *testing.T, u *models.User, role string) string {
	t.Helper()
	token, err := e.signer.Sign(session.Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = env.get("/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("missing token", func(t *testing.T) {
		w := env.get("/api/v1/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		w := env.get("/api/v1/me", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("stored role wins over token role", func(t *testing.T) {
		w := env.get("/api/v1/me", env.token(t, env.admin, "GUEST"))
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data users.Profile `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "ADMIN", string(response.Data.Role))
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/navigation", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: env.token(t, env.member, "member")})
		w := env.do(req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAPIPermissions(t *testing.T) {
	env := newTestEnv(t, nil)
	memberToken := env.token(t, env.member, "member")
	adminToken := env.token(t, env.admin, "admin")

	t.Run("member cannot list users", func(t *testing.T) {
		w := env.get("/api/v1/users", memberToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), `"reason":"permission"`)

		require.Eventually(t, func() bool {
			return env.audit.count(models.AuditActionAccessDenied) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("admin lists users", func(t *testing.T) {
		w := env.get("/api/v1/users", adminToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin reads audit logs", func(t *testing.T) {
		w := env.get("/api/v1/audit/logs?action=access_denied", adminToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin promotes member", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+env.member.ID.String()+"/role", strings.NewReader(`{"role":"leader"}`))
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := env.do(req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "LEADER", env.users.role(env.member.ID))
		require.Eventually(t, func() bool {
			return env.audit.count(models.AuditActionRoleChanged) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("admin cannot grant super admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+env.member.ID.String()+"/role", strings.NewReader(`{"role":"SUPER_ADMIN"}`))
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := env.do(req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "LEADER", env.users.role(env.member.ID))
	})
}

func TestPageGate(t *testing.T) {
	env := newTestEnv(t, nil)
	memberToken := env.token(t, env.member, "member")

	tests := []struct {
		name     string
		target   string
		token    string
		status   int
		location string
	}{
		{"anonymous is sent to login with callback", "/app/admin/users?tab=1", "", http.StatusFound, "/login?callbackUrl=%2Fadmin%2Fusers%3Ftab%3D1"},
		{"anonymous may open login", "/app/login", "", http.StatusOK, ""},
		{"member is sent to default route", "/app/admin", memberToken, http.StatusFound, "/dashboard"},
		{"member opens dashboard", "/app/dashboard", memberToken, http.StatusOK, ""},
		{"root route only needs a session", "/app/help", memberToken, http.StatusOK, ""},
		{"doubled slash still hits admin guard", "/app//admin/users", memberToken, http.StatusFound, "/dashboard"},
		{"dot segments still hit admin guard", "/app/dashboard/../admin/billing", memberToken, http.StatusFound, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(tt.target, tt.token)

			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestResolveWithoutSession(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/api/v1/navigation/resolve?path=%2Fprojects", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login?callbackUrl=%2Fprojects"`)

	w = env.get("/api/v1/navigation/resolve?path=admin%2Fusers", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":false`)
	assert.Contains(t, w.Body.String(), `"redirect":"/login?callbackUrl=%2Fadmin%2Fusers"`)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "endpoint not found")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.RequestsPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, env.get("/api/v1/me", "").Code)
	}

	w := env.get("/api/v1/me", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}
