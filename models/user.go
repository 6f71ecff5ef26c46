package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/taskhub/internal/rbac"
)

// User represents a TaskHub user profile.
// Role is stored as written by whichever system created the profile and may be
// a legacy label such as "admin" or "projectManager".
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	AvatarURL string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance. An empty role defaults to MEMBER.
func NewUser(email, name, role string) *User {
	if strings.TrimSpace(role) == "" {
		role = string(rbac.DefaultRole)
	}
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Principal returns the authorization view of the user
func (u *User) Principal() *rbac.User {
	return &rbac.User{
		ID:    u.ID.String(),
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// NormalizedRole returns the canonical role of the user
func (u *User) NormalizedRole() rbac.Role {
	return rbac.NormalizeRole(u.Role)
}
