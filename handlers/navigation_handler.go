package handlers

import (
	"context"
	"net/http"

	"github.com/upb/taskhub/internal/navigation"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// NavigationService defines the navigation operations the handler needs
type NavigationService interface {
	Build(ctx context.Context, user *rbac.User) ([]rbac.NavSection, error)
	Resolve(user *rbac.User, requestURI string) navigation.Resolution
}

// NavigationHandler serves the filtered navigation tree and page checks
type NavigationHandler struct {
	nav    NavigationService
	logger *zap.Logger
}

// NewNavigationHandler creates a new NavigationHandler
func NewNavigationHandler(nav NavigationService, logger *zap.Logger) *NavigationHandler {
	return &NavigationHandler{nav: nav, logger: logger}
}

// HandleGetNavigation handles GET /api/v1/navigation
func (h *NavigationHandler) HandleGetNavigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sections, err := h.nav.Build(ctx, middleware.GetUserFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{"sections": sections})
}

// HandleResolve handles GET /api/v1/navigation/resolve?path=
//
// Front ends that render pages themselves call this before navigating.
func (h *NavigationHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		_ = utils.WriteBadRequest(w, "path is required", nil)
		return
	}

	resolution := h.nav.Resolve(middleware.GetUserFromContext(r.Context()), path)
	_ = utils.WriteOK(w, resolution)
}
