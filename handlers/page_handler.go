package handlers

import (
	"net/http"

	"github.com/upb/taskhub/internal/navigation"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// PageResponse is the bootstrap payload for a page that passed the gate
type PageResponse struct {
	Path     string      `json:"path"`
	Route    string      `json:"route,omitempty"`
	Sections interface{} `json:"sections"`
}

// PageHandler serves page bootstrap data. It runs behind PageGate, so any
// request reaching it is allowed.
type PageHandler struct {
	nav    NavigationService
	routes []navigation.PageRoute
	logger *zap.Logger
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(nav NavigationService, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		nav:    nav,
		routes: navigation.PageRoutes(),
		logger: logger,
	}
}

// HandlePage handles GET /app/*
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path, _ := navigation.CleanPath(r.URL.RequestURI())

	response := PageResponse{Path: path, Sections: []interface{}{}}
	if route, ok := navigation.Match(h.routes, path); ok {
		response.Route = route.Prefix
	}

	// public pages carry no navigation
	if user := middleware.GetUserFromContext(ctx); user != nil {
		sections, err := h.nav.Build(ctx, user)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		response.Sections = sections
	}

	_ = utils.WriteOK(w, response)
}
