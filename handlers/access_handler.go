package handlers

import (
	"net/http"

	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// AccessCheckRequest is an access requirement submitted for evaluation.
// Role and permission strings are validated before they reach the evaluator.
type AccessCheckRequest struct {
	AllowedRoles        []string `json:"allowed_roles" validate:"omitempty,dive,rbac_role"`
	MinimumRole         string   `json:"minimum_role" validate:"omitempty,rbac_role"`
	RequiredPermissions []string `json:"required_permissions" validate:"omitempty,dive,rbac_permission"`
	PermissionMatch     string   `json:"permission_match" validate:"omitempty,oneof=all any"`
}

// requirement converts the request to its canonical form. Call it only after
// validation succeeded.
func (r AccessCheckRequest) requirement() rbac.AccessRequirement {
	req := rbac.AccessRequirement{PermissionMatch: rbac.PermissionMatch(r.PermissionMatch)}
	for _, raw := range r.AllowedRoles {
		role, _ := rbac.ParseRole(raw)
		req.AllowedRoles = append(req.AllowedRoles, role)
	}
	if r.MinimumRole != "" {
		req.MinimumRole, _ = rbac.ParseRole(r.MinimumRole)
	}
	for _, raw := range r.RequiredPermissions {
		p, _ := rbac.ParsePermission(raw)
		req.RequiredPermissions = append(req.RequiredPermissions, p)
	}
	return req
}

// RoleInfo describes one role in the catalogue
type RoleInfo struct {
	Role        rbac.Role         `json:"role"`
	Rank        int               `json:"rank"`
	Permissions []rbac.Permission `json:"permissions"`
}

// AccessHandler exposes the role catalogue and ad hoc access checks
type AccessHandler struct {
	logger *zap.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(logger *zap.Logger) *AccessHandler {
	return &AccessHandler{logger: logger}
}

// HandleListRoles handles GET /api/v1/rbac/roles
func (h *AccessHandler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	roles := rbac.AllRoles()
	catalogue := make([]RoleInfo, 0, len(roles))
	for _, role := range roles {
		catalogue = append(catalogue, RoleInfo{
			Role:        role,
			Rank:        rbac.Rank(role),
			Permissions: rbac.PermissionsForRole(role).Slice(),
		})
	}

	_ = utils.WriteOK(w, map[string]interface{}{"roles": catalogue})
}

// HandleCheck handles POST /api/v1/access/check
func (h *AccessHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req AccessCheckRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	decision := rbac.Evaluate(middleware.GetUserFromContext(r.Context()), req.requirement())
	_ = utils.WriteOK(w, decision)
}
