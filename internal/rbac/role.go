package rbac

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Role is a canonical application role
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleAdmin          Role = "ADMIN"
	RoleOwner          Role = "OWNER"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleLeader         Role = "LEADER"
	RoleMember         Role = "MEMBER"
	RoleGuest          Role = "GUEST"
)

// DefaultRole is assigned to any role string that cannot be recognized
const DefaultRole = RoleMember

// roleRanks maps every role to its privilege rank. Higher is more privileged.
var roleRanks = map[Role]int{
	RoleGuest:          10,
	RoleMember:         30,
	RoleLeader:         50,
	RoleProjectManager: 70,
	RoleOwner:          80,
	RoleAdmin:          90,
	RoleSuperAdmin:     100,
}

// orderedRoles lists roles in ascending rank order
var orderedRoles = []Role{
	RoleGuest,
	RoleMember,
	RoleLeader,
	RoleProjectManager,
	RoleOwner,
	RoleAdmin,
	RoleSuperAdmin,
}

// roleAliases maps legacy and lowercase labels found in stored profiles and
// identity provider claims to canonical roles. Keys are matched exactly first,
// then lowercased.
var roleAliases = map[string]Role{
	"super_admin":     RoleSuperAdmin,
	"superadmin":      RoleSuperAdmin,
	"superAdmin":      RoleSuperAdmin,
	"root":            RoleSuperAdmin,
	"admin":           RoleAdmin,
	"administrator":   RoleAdmin,
	"owner":           RoleOwner,
	"workspace_owner": RoleOwner,
	"project_manager": RoleProjectManager,
	"projectManager":  RoleProjectManager,
	"projectmanager":  RoleProjectManager,
	"pm":              RoleProjectManager,
	"manager":         RoleProjectManager,
	"leader":          RoleLeader,
	"team_leader":     RoleLeader,
	"teamLeader":      RoleLeader,
	"teamleader":      RoleLeader,
	"lead":            RoleLeader,
	"member":          RoleMember,
	"user":            RoleMember,
	"guest":           RoleGuest,
	"viewer":          RoleGuest,
}

// String returns the canonical role value
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether r is one of the canonical roles
func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AllRoles returns every role ordered from least to most privileged
func AllRoles() []Role {
	roles := make([]Role, len(orderedRoles))
	copy(roles, orderedRoles)
	return roles
}

// lookupRole resolves a raw role string without applying any default
func lookupRole(raw string) (Role, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	if role := Role(value); role.IsValid() {
		return role, true
	}
	if role, ok := roleAliases[value]; ok {
		return role, true
	}
	if role, ok := roleAliases[strings.ToLower(value)]; ok {
		return role, true
	}
	return "", false
}

// NormalizeRole maps an arbitrary role string onto a canonical Role.
// Unrecognized values (including the empty string) fall back to DefaultRole
// and are logged as a warning; this never fails.
func NormalizeRole(raw string) Role {
	if role, ok := lookupRole(raw); ok {
		return role
	}

	zap.L().Warn("unrecognized role, falling back to default",
		zap.String("role", raw),
		zap.String("default", string(DefaultRole)))
	return DefaultRole
}

// ParseRole is the strict counterpart of NormalizeRole used for
// administrative input, where an unknown role must be rejected.
func ParseRole(raw string) (Role, error) {
	role, ok := lookupRole(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Rank returns the privilege rank of a role. Values outside the enum rank 0.
func Rank(role Role) int {
	return roleRanks[role]
}

// HasHigherRole reports whether a strictly outranks b
func HasHigherRole(a, b Role) bool {
	return Rank(a) > Rank(b)
}

// HasMinimumRole reports whether role is at least as privileged as minimum
func HasMinimumRole(role, minimum Role) bool {
	return Rank(role) >= Rank(minimum)
}
