package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/taskhub/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user profile operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users ordered by email with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Count returns the total number of users
	Count(ctx context.Context) (int, error)

	// UpdateRole stores a new raw role string for a user
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// UserCacheInvalidator is implemented by user repositories that cache
// profiles. Callers evict after a committed write so readers racing the
// transaction cannot leave the old row cached.
type UserCacheInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// TeamRepository handles team lookups
type TeamRepository interface {
	// ListForUser returns the teams the user belongs to
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Team, error)
}

// ProjectRepository handles project lookups
type ProjectRepository interface {
	// ListForUser returns the active projects the user is a member of
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
}

// AuditFilter narrows audit log listings
type AuditFilter struct {
	Action  models.AuditAction
	ActorID *uuid.UUID
	Limit   int
	Offset  int
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves audit logs, newest first
	List(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	Teams     TeamRepository
	Projects  ProjectRepository
	AuditLogs AuditRepository
}
