// Package navigation builds the per-user navigation tree.
package navigation

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/taskhub/internal/navigation"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/repositories"
	"github.com/upb/taskhub/services"
	"go.uber.org/zap"
)

// Service builds navigation trees and resolves page access
type Service struct {
	teams        repositories.TeamRepository
	projects     repositories.ProjectRepository
	routes       []navigation.PageRoute
	loginPath    string
	defaultRoute string
	logger       *zap.Logger
}

// Config holds page redirect targets
type Config struct {
	LoginPath    string
	DefaultRoute string
}

// NewService creates a new navigation service
func NewService(teams repositories.TeamRepository, projects repositories.ProjectRepository, cfg Config, logger *zap.Logger) *Service {
	if cfg.LoginPath == "" {
		cfg.LoginPath = navigation.LoginPath
	}
	if cfg.DefaultRoute == "" {
		cfg.DefaultRoute = navigation.DefaultRoute
	}
	return &Service{
		teams:        teams,
		projects:     projects,
		routes:       navigation.PageRoutes(),
		loginPath:    cfg.LoginPath,
		defaultRoute: cfg.DefaultRoute,
		logger:       logger,
	}
}

// Build returns the navigation visible to user, with the Teams and Projects
// sections listing the user's memberships. Lookup failures leave the dynamic
// section empty rather than failing the whole tree.
func (s *Service) Build(ctx context.Context, user *rbac.User) ([]rbac.NavSection, error) {
	if user == nil {
		return nil, services.ErrUnauthorized
	}

	sections := rbac.FilterNavigation(user, navigation.Sections())

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return sections, nil
	}

	for i := range sections {
		switch sections[i].ID {
		case navigation.SectionTeams:
			sections[i].Items = s.teamItems(ctx, userID)
		case navigation.SectionProjects:
			sections[i].Items = s.projectItems(ctx, userID)
		}
	}

	return sections, nil
}

func (s *Service) teamItems(ctx context.Context, userID uuid.UUID) []rbac.NavItem {
	teams, err := s.teams.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load teams for navigation", zap.String("user_id", userID.String()), zap.Error(err))
		return []rbac.NavItem{}
	}

	items := make([]rbac.NavItem, 0, len(teams))
	for _, team := range teams {
		items = append(items, rbac.NavItem{
			ID:    "team-" + team.Slug,
			Title: team.Name,
			Path:  "/teams/" + team.Slug,
			Icon:  "users",
		})
	}
	return items
}

func (s *Service) projectItems(ctx context.Context, userID uuid.UUID) []rbac.NavItem {
	projects, err := s.projects.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load projects for navigation", zap.String("user_id", userID.String()), zap.Error(err))
		return []rbac.NavItem{}
	}

	items := make([]rbac.NavItem, 0, len(projects))
	for _, project := range projects {
		items = append(items, rbac.NavItem{
			ID:    "project-" + project.Slug,
			Title: project.Name,
			Path:  "/projects/" + project.Slug,
			Icon:  "folder",
		})
	}
	return items
}

// Resolve checks a page request against the page route table
func (s *Service) Resolve(user *rbac.User, requestURI string) navigation.Resolution {
	return navigation.Resolve(s.routes, user, requestURI, s.loginPath, s.defaultRoute)
}

// Routes returns the page route table used by Resolve
func (s *Service) Routes() []navigation.PageRoute {
	return s.routes
}

// LoginPath returns the login page path
func (s *Service) LoginPath() string {
	return s.loginPath
}

// DefaultRoute returns the landing page for denied page requests
func (s *Service) DefaultRoute() string {
	return s.defaultRoute
}
