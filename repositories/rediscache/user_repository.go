package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"go.uber.org/zap"
)

const (
	userKeyPrefix   = "taskhub:user:"
	defaultCacheTTL = 5 * time.Minute
)

// UserRepository caches profile lookups by ID in front of another
// repositories.UserRepository. Cache failures are logged and never surface
// to callers; the wrapped repository stays the source of truth
type UserRepository struct {
	next   repositories.UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	// inTx repositories read straight from the transaction
	inTx bool
}

// NewUserRepository wraps next with a Redis cache
func NewUserRepository(next repositories.UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) repositories.UserRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &UserRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func userKey(id uuid.UUID) string {
	return userKeyPrefix + id.String()
}

// Create delegates to the wrapped repository
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.next.Create(ctx, user)
}

// GetByID serves the profile from Redis when present, loading and storing it otherwise
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if r.inTx {
		return r.next.GetByID(ctx, id)
	}

	key := userKey(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user models.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
		r.logger.Warn("discarding undecodable cached user", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("user cache read failed", zap.String("key", key), zap.Error(err))
	}

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("user cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return user, nil
}

// GetByEmail delegates to the wrapped repository
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.next.GetByEmail(ctx, email)
}

// List delegates to the wrapped repository
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return r.next.List(ctx, limit, offset)
}

// Count delegates to the wrapped repository
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return r.next.Count(ctx)
}

// UpdateRole writes through and evicts the cached profile. Inside a
// transaction callers must Invalidate again once it has committed
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	if err := r.next.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	r.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached profile for id
func (r *UserRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.client.Del(ctx, userKey(id)).Err(); err != nil {
		r.logger.Warn("user cache eviction failed", zap.String("user_id", id.String()), zap.Error(err))
	}
}

// WithTx binds the wrapped repository to tx. Reads bypass the cache, writes still evict
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return &UserRepository{
		next:   r.next.WithTx(tx),
		client: r.client,
		ttl:    r.ttl,
		logger: r.logger,
		inTx:   true,
	}
}
