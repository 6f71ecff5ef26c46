package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"go.uber.org/zap"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	tx     repositories.Transaction
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, actor_role, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	executor := executorFor(ctx, r.db, r.tx)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.ActorRole,
		string(log.Action),
		log.ResourceType,
		log.ResourceID,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// List retrieves audit logs matching filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var b strings.Builder
	b.WriteString(`
		SELECT id, actor_id, actor_role, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp
		FROM audit_logs`)
	if len(conditions) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, "\n\t\tORDER BY timestamp DESC\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	executor := executorFor(ctx, r.db, r.tx)
	rows, err := executor.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		var (
			log       models.AuditLog
			actorID   uuid.NullUUID
			actorRole sql.NullString
			resource  sql.NullString
			details   []byte
			ip        sql.NullString
			userAgent sql.NullString
			requestID sql.NullString
			action    string
		)
		if err := rows.Scan(
			&log.ID,
			&actorID,
			&actorRole,
			&action,
			&log.ResourceType,
			&resource,
			&details,
			&ip,
			&userAgent,
			&requestID,
			&log.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if actorID.Valid {
			id := actorID.UUID
			log.ActorID = &id
		}
		log.Action = models.AuditAction(action)
		log.ActorRole = actorRole.String
		log.ResourceID = resource.String
		log.Details = details
		log.IPAddress = ip.String
		log.UserAgent = userAgent.String
		log.RequestID = requestID.String
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return &AuditRepository{
		db:     r.db,
		tx:     tx,
		logger: r.logger,
	}
}
