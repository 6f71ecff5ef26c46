package rbac

// PermissionMatch selects how RequiredPermissions are combined
type PermissionMatch string

const (
	// MatchAll requires every listed permission
	MatchAll PermissionMatch = "all"
	// MatchAny requires at least one listed permission
	MatchAny PermissionMatch = "any"
)

// AccessRequirement describes what a route, page, navigation entry or guarded
// element needs. The zero value admits any authenticated user.
type AccessRequirement struct {
	// AllowedRoles admits a role equal to, or ranked at least as high as, any entry
	AllowedRoles []Role `json:"allowed_roles,omitempty"`
	// MinimumRole, when set, must be met in addition to AllowedRoles
	MinimumRole Role `json:"minimum_role,omitempty"`
	// RequiredPermissions are combined according to PermissionMatch
	RequiredPermissions []Permission    `json:"required_permissions,omitempty"`
	PermissionMatch     PermissionMatch `json:"permission_match,omitempty"`
}

// DenyReason explains why an access decision failed
type DenyReason string

const (
	ReasonNone            DenyReason = ""
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonRole            DenyReason = "role"
	ReasonPermission      DenyReason = "permission"
)

// Decision is the outcome of evaluating an AccessRequirement
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
	Role    Role       `json:"role,omitempty"`
}

// CanAccessRoute is the core access predicate.
//
// An empty allowedRoles places no role restriction. Otherwise the user's
// normalized role must equal one of the entries or rank at least as high as one
// of them, so listing a role also admits everything above it. A role failure
// short-circuits; requiredPermissions are then never consulted. Permissions are
// combined with AND.
func CanAccessRoute(user *User, allowedRoles []Role, requiredPermissions []Permission) bool {
	return Evaluate(user, AccessRequirement{
		AllowedRoles:        allowedRoles,
		RequiredPermissions: requiredPermissions,
	}).Allowed
}

// CanAccess evaluates a full requirement
func CanAccess(user *User, req AccessRequirement) bool {
	return Evaluate(user, req).Allowed
}

// Evaluate evaluates req for user and reports the first failing check
func Evaluate(user *User, req AccessRequirement) Decision {
	if user == nil {
		return Decision{Reason: ReasonUnauthenticated}
	}

	role := user.NormalizedRole()

	if !roleAllowed(role, req.AllowedRoles) {
		return Decision{Reason: ReasonRole, Role: role}
	}
	if req.MinimumRole != "" && !HasMinimumRole(role, req.MinimumRole) {
		return Decision{Reason: ReasonRole, Role: role}
	}

	if len(req.RequiredPermissions) > 0 {
		var ok bool
		if req.PermissionMatch == MatchAny {
			ok = HasAnyPermission(user, req.RequiredPermissions...)
		} else {
			ok = HasAllPermissions(user, req.RequiredPermissions...)
		}
		if !ok {
			return Decision{Reason: ReasonPermission, Role: role}
		}
	}

	return Decision{Allowed: true, Role: role}
}

func roleAllowed(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
		// an unknown entry ranks 0 and would otherwise admit every role
		if candidate.IsValid() && HasMinimumRole(role, candidate) {
			return true
		}
	}
	return false
}
