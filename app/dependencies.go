package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/taskhub/config"
	"github.com/upb/taskhub/middleware"
	"github.com/upb/taskhub/repositories"
	"github.com/upb/taskhub/repositories/postgres"
	"github.com/upb/taskhub/repositories/rediscache"
	"github.com/upb/taskhub/services/audit"
	"github.com/upb/taskhub/services/navigation"
	"github.com/upb/taskhub/services/users"
	"github.com/upb/taskhub/session"
	"go.uber.org/zap"
)

const defaultAuditShutdownTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Cache  *redis.Client // nil when the profile cache is disabled
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	Teams     repositories.TeamRepository
	Projects  repositories.ProjectRepository
	AuditLogs repositories.AuditRepository
	TxManager repositories.TransactionManager

	// Services
	AuditService      *audit.AuditService
	UserService       *users.Service
	NavigationService *navigation.Service

	// Middleware
	AuthMiddleware   *middleware.AuthMiddleware
	AccessMiddleware *middleware.AccessMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := newDependencies(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// newDependencies wires everything above an already open database
func newDependencies(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initCache(ctx, cfg)
	deps.initRepositories(cfg)

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)
	return deps, nil
}

// initCache connects to Redis when configured. The cache is optional, so a
// connection failure disables it instead of failing startup.
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) {
	if !cfg.Redis.Enabled() {
		d.Logger.Info("profile cache disabled")
		return
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis)
	if err != nil {
		d.Logger.Warn("profile cache unavailable, continuing without it",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
		return
	}

	d.Cache = client
	d.Logger.Info("profile cache connected", zap.String("addr", cfg.Redis.Addr))
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories(cfg *config.Config) {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	if d.Cache != nil {
		d.Users = rediscache.NewUserRepository(repos.Users, d.Cache, cfg.Redis.TTL, d.Logger)
	}
	d.Teams = repos.Teams
	d.Projects = repos.Projects
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized", zap.Bool("cached_users", d.Cache != nil))
}

// initServices builds the domain services and starts the audit workers
func (d *Dependencies) initServices(cfg *config.Config) error {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.UserService = users.NewService(d.Users, d.TxManager, d.AuditService, d.Logger)
	d.NavigationService = navigation.NewService(d.Teams, d.Projects, navigation.Config{
		LoginPath:    cfg.Access.LoginPath,
		DefaultRoute: cfg.Access.DefaultRoute,
	}, d.Logger)

	return nil
}

// initAuth builds the auth and access middleware. Without a session secret
// every token is rejected, so protected routes answer 401.
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Session.Secret == "" {
		d.Logger.Warn("session secret not configured, all tokens will be rejected")
	}

	validator := session.NewValidator(session.Config{
		Secret:   cfg.Session.Secret,
		Issuer:   cfg.Session.Issuer,
		Audience: cfg.Session.Audience,
	})

	opts := []middleware.AuthOption{middleware.WithUserLoader(d.UserService)}
	if len(cfg.Session.CookieNames) > 0 {
		opts = append(opts, middleware.WithCookieNames(cfg.Session.CookieNames...))
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger, opts...)
	d.AccessMiddleware = middleware.NewAccessMiddleware(d.AuditService, cfg.Access.FrontEndURL, d.Logger)
	d.Logger.Info("auth middleware initialized")
}

// Close gracefully shuts down all dependencies. Pending audit events are
// flushed before the database closes.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil {
		timeout := d.Config.Audit.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultAuditShutdownTimeout
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.AuditService = nil
	}

	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
		d.Cache = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
