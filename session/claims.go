package session

import "github.com/upb/taskhub/internal/rbac"

// ToUser projects the claims onto the authorization user view. The role is
// passed through unmodified.
func (p *ParsedClaims) ToUser() *rbac.User {
	return &rbac.User{
		ID:    p.Sub.String(),
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
	}
}
