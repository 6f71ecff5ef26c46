package rbac

// Guard gates a page or UI element. Callers decide what to render or where to
// redirect on denial; Guard only answers the question.
type Guard struct {
	Requirement AccessRequirement `json:"requirement"`
	// AllowGuest admits unauthenticated users
	AllowGuest bool `json:"allow_guest,omitempty"`
}

// Allows reports whether user may pass the guard
func (g Guard) Allows(user *User) bool {
	return g.Evaluate(user).Allowed
}

// Evaluate is Allows with the deny reason attached
func (g Guard) Evaluate(user *User) Decision {
	if user == nil && g.AllowGuest {
		return Decision{Allowed: true}
	}
	return Evaluate(user, g.Requirement)
}
