// Package users implements profile lookups and role administration.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"github.com/upb/taskhub/services"
	"github.com/upb/taskhub/services/audit"
	"github.com/upb/taskhub/session"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Auditor receives role change events
type Auditor interface {
	RecordRoleChanged(actor *rbac.User, target uuid.UUID, from, to rbac.Role, meta audit.RequestMeta) error
}

// Profile is the signed-in user's view of themself
type Profile struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	AvatarURL   string            `json:"avatar_url,omitempty"`
	Role        rbac.Role         `json:"role"`
	Rank        int               `json:"rank"`
	Permissions []rbac.Permission `json:"permissions"`
}

// Summary is a stored user with its canonical role
type Summary struct {
	*models.User
	NormalizedRole rbac.Role `json:"normalized_role"`
}

// Page is one page of users
type Page struct {
	Users  []Summary `json:"users"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// Service handles user profile and role operations
type Service struct {
	users   repositories.UserRepository
	txMgr   repositories.TransactionManager
	auditor Auditor
	logger  *zap.Logger
}

// NewService creates a new users service
func NewService(users repositories.UserRepository, txMgr repositories.TransactionManager, auditor Auditor, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		txMgr:   txMgr,
		auditor: auditor,
		logger:  logger,
	}
}

// lookup returns the stored user for a principal ID, or nil when the ID is
// not a UUID or has no stored profile
func (s *Service) lookup(ctx context.Context, rawID string) (*models.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}
	return user, nil
}

// Profile returns the principal's profile with its effective role and permissions.
// The stored profile, when there is one, takes precedence over the principal.
func (s *Service) Profile(ctx context.Context, principal *rbac.User) (*Profile, error) {
	if principal == nil {
		return nil, services.ErrUnauthorized
	}

	effective := *principal
	var avatar string

	stored, err := s.lookup(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		effective = *stored.Principal()
		avatar = stored.AvatarURL
	}

	role := effective.NormalizedRole()
	return &Profile{
		ID:          effective.ID,
		Email:       effective.Email,
		Name:        effective.Name,
		AvatarURL:   avatar,
		Role:        role,
		Rank:        rbac.Rank(role),
		Permissions: rbac.GetUserPermissions(&effective).Slice(),
	}, nil
}

// List returns a page of users ordered by email
func (s *Service) List(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	stored, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	summaries := make([]Summary, 0, len(stored))
	for _, u := range stored {
		summaries = append(summaries, Summary{User: u, NormalizedRole: u.NormalizedRole()})
	}

	return &Page{Users: summaries, Total: total, Limit: limit, Offset: offset}, nil
}

// ChangeRole sets the role of targetID on behalf of actor.
//
// The actor needs MANAGE_USERS, cannot change its own role, cannot grant a
// role ranked above its own and cannot modify a user who outranks it.
func (s *Service) ChangeRole(ctx context.Context, actor *rbac.User, targetID uuid.UUID, rawRole string, meta audit.RequestMeta) (*models.User, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if !rbac.HasPermission(actor, rbac.PermManageUsers) {
		return nil, services.ErrInsufficientPermissions.WithDetail("required", rbac.PermManageUsers)
	}

	newRole, err := rbac.ParseRole(rawRole)
	if err != nil {
		return nil, services.ErrInvalidRole.WithDetail("role", rawRole)
	}
	if actor.ID == targetID.String() {
		return nil, services.ErrSelfRoleChange
	}

	actorRole := actor.NormalizedRole()
	if rbac.HasHigherRole(newRole, actorRole) {
		return nil, services.ErrRoleEscalation.WithDetail("role", newRole)
	}

	var previous rbac.Role
	target, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.User, error) {
		users := s.users.WithTx(tx)

		target, err := users.GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrUserNotFound
			}
			return nil, services.ErrDatabaseError.Wrap(err)
		}

		previous = target.NormalizedRole()
		if rbac.HasHigherRole(previous, actorRole) {
			return nil, services.ErrTargetOutranksActor
		}

		if err := users.UpdateRole(ctx, targetID, string(newRole)); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrUserNotFound
			}
			return nil, services.ErrDatabaseError.Wrap(err)
		}

		updated := *target
		updated.Role = string(newRole)
		updated.UpdatedAt = time.Now()
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, targetID)

	s.logger.Info("user role changed",
		zap.String("actor_id", actor.ID),
		zap.String("target_id", targetID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(newRole)))

	if s.auditor != nil {
		if err := s.auditor.RecordRoleChanged(actor, targetID, previous, newRole, meta); err != nil {
			s.logger.Warn("failed to record role change", zap.Error(err))
		}
	}

	return target, nil
}

// invalidate evicts a cached profile once the role change has committed
func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if cache, ok := s.users.(repositories.UserCacheInvalidator); ok {
		cache.Invalidate(ctx, id)
	}
}

// LoadUser resolves the authorization user for validated session claims. The
// stored profile's role wins over the token's; a missing profile falls back
// to the claims.
func (s *Service) LoadUser(ctx context.Context, claims *session.ParsedClaims) (*rbac.User, error) {
	if claims == nil {
		return nil, services.ErrUnauthorized
	}

	stored, err := s.users.GetByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return claims.ToUser(), nil
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}
	return stored.Principal(), nil
}
