package rbac

// User is the authorization view of a signed-in user. Role holds the raw,
// untrusted role string as stored in the profile or token; it is normalized
// on every evaluation. A nil *User represents an unauthenticated request.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// NormalizedRole returns the canonical role for u
func (u *User) NormalizedRole() Role {
	return NormalizeRole(u.Role)
}

// GetUserPermissions returns the permission set of the user's normalized role.
// An absent user has no permissions.
func GetUserPermissions(user *User) PermissionSet {
	if user == nil {
		return NewPermissionSet()
	}
	return PermissionsForRole(user.NormalizedRole())
}

// HasPermission reports whether the user holds p
func HasPermission(user *User, p Permission) bool {
	return GetUserPermissions(user).Has(p)
}

// HasAnyPermission reports whether the user holds at least one of perms.
// An empty list is never satisfied.
func HasAnyPermission(user *User, perms ...Permission) bool {
	if len(perms) == 0 {
		return false
	}
	set := GetUserPermissions(user)
	for _, p := range perms {
		if set.Has(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the user holds every one of perms.
// An empty list is vacuously satisfied, even for an absent user.
func HasAllPermissions(user *User, perms ...Permission) bool {
	if len(perms) == 0 {
		return true
	}
	set := GetUserPermissions(user)
	for _, p := range perms {
		if !set.Has(p) {
			return false
		}
	}
	return true
}
