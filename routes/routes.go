package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"github.com/upb/taskhub/app"
	"github.com/upb/taskhub/handlers"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout(cfg.Server.RequestTimeout)))
	r.Use(securityHeaders(cfg.IsDevelopment(), cfg.IsProduction(), logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(sqlDB(deps), deps.Cache, logger)
	users := handlers.NewUserHandler(deps.UserService, logger)
	nav := handlers.NewNavigationHandler(deps.NavigationService, logger)
	access := handlers.NewAccessHandler(logger)
	auditLogs := handlers.NewAuditHandler(deps.AuditService, logger)
	pages := handlers.NewPageHandler(deps.NavigationService, logger)

	auth := deps.AuthMiddleware
	gate := deps.AccessMiddleware

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)
		if limit := cfg.RateLimit.RequestsPerMinute; limit > 0 {
			r.Use(rateLimiter(limit))
		}

		// Usable without a session: anonymous callers get the login redirect
		r.Get("/navigation/resolve", nav.HandleResolve)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/me", users.HandleMe)
			r.Get("/navigation", nav.HandleGetNavigation)
			r.Get("/rbac/roles", access.HandleListRoles)
			r.Post("/access/check", access.HandleCheck)

			r.Route("/users", func(r chi.Router) {
				r.Use(gate.RequireAllPermissions(rbac.PermManageUsers))
				r.Get("/", users.HandleListUsers)
				r.Patch("/{userID}/role", users.HandleChangeRole)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(gate.RequireAllPermissions(rbac.PermViewAuditLog))
				r.Get("/logs", auditLogs.HandleListLogs)
			})
		})
	})

	// Pages see front-end paths, so /app is stripped before the gate
	page := http.StripPrefix("/app", auth.Authenticate(gate.PageGate(deps.NavigationService)(http.HandlerFunc(pages.HandlePage))))
	r.Method(http.MethodGet, "/app", page)
	r.Method(http.MethodGet, "/app/*", page)

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func sqlDB(deps *app.Dependencies) *sql.DB {
	if deps.DB == nil {
		return nil
	}
	return deps.DB.DB
}

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

// securityHeaders sets the standard hardening headers. HTTPS redirects only
// apply in production.
func securityHeaders(development, production bool, logger *zap.Logger) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		IsDevelopment:         development,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				logger.Warn("secure headers blocked request",
					zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
					zap.Error(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

// rateLimiter limits requests per minute, keyed by user when signed in and by
// client IP otherwise
func rateLimiter(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = utils.WriteTooManyRequests(w, "Rate limit exceeded", map[string]interface{}{
				"limit":  perMinute,
				"window": "1m",
			})
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := middleware.GetUserFromContext(r.Context()); user != nil && user.ID != "" {
		return "user:" + user.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
