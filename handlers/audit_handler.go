package handlers

import (
	"context"
	"net/http"

	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"github.com/upb/taskhub/utils"
	"go.uber.org/zap"
)

// AuditLister lists stored audit entries
type AuditLister interface {
	List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	audit  AuditLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// HandleListLogs handles GET /api/v1/audit/logs?action=&actor_id=&limit=&offset=
func (h *AuditHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.AuditFilter{Action: models.AuditAction(query.Get("action"))}

	if raw := query.Get("actor_id"); raw != "" {
		actorID, err := utils.ParseUUID(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid actor_id format", nil)
			return
		}
		filter.ActorID = &actorID
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	logs, err := h.audit.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{"logs": logs})
}
