package models

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a group of users working together
type Team struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Team model
func (Team) TableName() string {
	return "teams"
}

// Project represents a project owned by a team
type Project struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TeamID    *uuid.UUID `json:"team_id,omitempty" db:"team_id"`
	Name      string     `json:"name" db:"name"`
	Slug      string     `json:"slug" db:"slug"`
	Archived  bool       `json:"archived" db:"archived"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Project model
func (Project) TableName() string {
	return "projects"
}
