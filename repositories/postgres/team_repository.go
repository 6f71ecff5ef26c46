package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"go.uber.org/zap"
)

// TeamRepository implements the repositories.TeamRepository interface
type TeamRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *DB, logger *zap.Logger) repositories.TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

// ListForUser returns the teams the user belongs to, ordered by name
func (r *TeamRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Team, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.name ASC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.Slug, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}

	return teams, nil
}

// ProjectRepository implements the repositories.ProjectRepository interface
type ProjectRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB, logger *zap.Logger) repositories.ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// ListForUser returns the non-archived projects the user is a member of
func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.team_id, p.name, p.slug, p.archived, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND p.archived = false
		ORDER BY p.name ASC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		var teamID uuid.NullUUID
		if err := rows.Scan(&project.ID, &teamID, &project.Name, &project.Slug, &project.Archived, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if teamID.Valid {
			id := teamID.UUID
			project.TeamID = &id
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}
