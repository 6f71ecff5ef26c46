package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/services/audit"
	"github.com/upb/taskhub/services/users"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// ChangeRoleRequest represents a request to change a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,rbac_role"`
}

// UserService defines the user operations the handler needs
type UserService interface {
	Profile(ctx context.Context, principal *rbac.User) (*users.Profile, error)
	List(ctx context.Context, limit, offset int) (*users.Page, error)
	ChangeRole(ctx context.Context, actor *rbac.User, targetID uuid.UUID, rawRole string, meta audit.RequestMeta) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleMe handles GET /api/v1/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.users.Profile(ctx, middleware.GetUserFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, profile)
}

// HandleListUsers handles GET /api/v1/users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	page, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, page)
}

// HandleChangeRole handles PATCH /api/v1/users/{userID}/role
func (h *UserHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	targetID, err := utils.ParseUUID(chi.URLParam(r, "userID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req ChangeRoleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	h.logger.Debug("changing user role",
		zap.String("request_id", requestID),
		zap.String("target_id", targetID.String()),
		zap.String("role", req.Role))

	meta := audit.RequestMeta{
		RequestID: requestID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	updated, err := h.users.ChangeRole(ctx, middleware.GetUserFromContext(ctx), targetID, req.Role, meta)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, users.Summary{User: updated, NormalizedRole: updated.NormalizedRole()})
}

// queryInt reads an optional integer query parameter; missing means zero
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
