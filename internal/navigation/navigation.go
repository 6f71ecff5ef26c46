// Package navigation holds TaskHub's navigation tree and page route table.
package navigation

import (
	"net/url"
	"path"
	"strings"

	"github.com/upb/taskhub/internal/rbac"
)

const (
	// LoginPath is where unauthenticated page requests are sent
	LoginPath = "/login"
	// DefaultRoute is where signed-in users land when a page is denied
	DefaultRoute = "/dashboard"
	// CallbackParam carries the originally requested URL through the login flow
	CallbackParam = "callbackUrl"
)

// Section IDs of the dynamic sections filled in per user
const (
	SectionTeams    = "teams"
	SectionProjects = "projects"
)

func perms(p ...rbac.Permission) rbac.AccessRequirement {
	return rbac.AccessRequirement{RequiredPermissions: p}
}

// Sections returns a fresh copy of the application navigation tree
func Sections() []rbac.NavSection {
	return []rbac.NavSection{
		{
			ID:    "overview",
			Title: "Overview",
			Items: []rbac.NavItem{
				{ID: "dashboard", Title: "Dashboard", Path: "/dashboard", Icon: "home", Access: perms(rbac.PermViewDashboard)},
				{ID: "inbox", Title: "Inbox", Path: "/inbox", Icon: "inbox", Access: perms(rbac.PermViewInbox)},
				{ID: "newsfeed", Title: "Newsfeed", Path: "/newsfeed", Icon: "rss", Access: perms(rbac.PermPostNewsfeed)},
				{ID: "calendar", Title: "Calendar", Path: "/calendar", Icon: "calendar", Access: perms(rbac.PermViewCalendar)},
				{ID: "profile", Title: "Profile", Path: "/profile", Icon: "user"},
			},
		},
		{
			ID:      SectionTeams,
			Title:   "Teams",
			Access:  perms(rbac.PermViewTeams),
			Dynamic: true,
		},
		{
			ID:      SectionProjects,
			Title:   "Projects",
			Access:  perms(rbac.PermViewProjects),
			Dynamic: true,
		},
		{
			ID:    "reports",
			Title: "Reports",
			Items: []rbac.NavItem{
				{ID: "reports", Title: "Reports", Path: "/reports", Icon: "chart", Access: perms(rbac.PermViewReports)},
				{ID: "reports-export", Title: "Exports", Path: "/reports/export", Icon: "download", Access: perms(rbac.PermExportReports)},
			},
		},
		{
			ID:     "admin",
			Title:  "Administration",
			Access: rbac.AccessRequirement{AllowedRoles: []rbac.Role{rbac.RoleAdmin}},
			Items: []rbac.NavItem{
				{ID: "admin-users", Title: "Users", Path: "/admin/users", Icon: "users", Access: perms(rbac.PermManageUsers)},
				{ID: "admin-billing", Title: "Billing", Path: "/admin/billing", Icon: "credit-card", Access: perms(rbac.PermManageBilling)},
				{ID: "admin-settings", Title: "Settings", Path: "/admin/settings", Icon: "settings", Access: perms(rbac.PermManageSettings)},
				{ID: "admin-audit", Title: "Audit log", Path: "/admin/audit", Icon: "shield", Access: perms(rbac.PermViewAuditLog)},
			},
		},
	}
}

// PageRoute binds a path prefix to the guard protecting it
type PageRoute struct {
	Prefix string
	Guard  rbac.Guard
}

// PageRoutes returns the page protection table
func PageRoutes() []PageRoute {
	return []PageRoute{
		{Prefix: LoginPath, Guard: rbac.Guard{AllowGuest: true}},
		{Prefix: "/register", Guard: rbac.Guard{AllowGuest: true}},
		{Prefix: "/", Guard: rbac.Guard{}},
		{Prefix: "/dashboard", Guard: rbac.Guard{Requirement: perms(rbac.PermViewDashboard)}},
		{Prefix: "/inbox", Guard: rbac.Guard{Requirement: perms(rbac.PermViewInbox)}},
		{Prefix: "/newsfeed", Guard: rbac.Guard{Requirement: perms(rbac.PermPostNewsfeed)}},
		{Prefix: "/calendar", Guard: rbac.Guard{Requirement: perms(rbac.PermViewCalendar)}},
		{Prefix: "/teams", Guard: rbac.Guard{Requirement: perms(rbac.PermViewTeams)}},
		{Prefix: "/projects", Guard: rbac.Guard{Requirement: perms(rbac.PermViewProjects)}},
		{Prefix: "/projects/new", Guard: rbac.Guard{Requirement: perms(rbac.PermCreateProject)}},
		{Prefix: "/reports", Guard: rbac.Guard{Requirement: perms(rbac.PermViewReports)}},
		{Prefix: "/reports/export", Guard: rbac.Guard{Requirement: perms(rbac.PermExportReports)}},
		{Prefix: "/admin", Guard: rbac.Guard{Requirement: rbac.AccessRequirement{AllowedRoles: []rbac.Role{rbac.RoleAdmin}}}},
		{Prefix: "/admin/billing", Guard: rbac.Guard{Requirement: rbac.AccessRequirement{
			AllowedRoles:        []rbac.Role{rbac.RoleAdmin},
			RequiredPermissions: []rbac.Permission{rbac.PermManageBilling},
		}}},
	}
}

// Match returns the route with the longest prefix covering path. Prefixes
// match on whole path segments, so "/admin" does not cover "/administrator".
func Match(routes []PageRoute, path string) (PageRoute, bool) {
	var (
		best  PageRoute
		found bool
	)
	for _, route := range routes {
		if !coversPath(route.Prefix, path) {
			continue
		}
		if !found || len(route.Prefix) > len(best.Prefix) {
			best = route
			found = true
		}
	}
	return best, found
}

func coversPath(prefix, path string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Resolution is the outcome of checking a page request against the route table
type Resolution struct {
	Allowed  bool            `json:"allowed"`
	Redirect string          `json:"redirect,omitempty"`
	Reason   rbac.DenyReason `json:"reason,omitempty"`
}

// CleanPath splits requestURI into a canonical absolute path and the raw
// query/fragment suffix. Escapes are decoded and dot segments and repeated
// slashes are collapsed, so the result is what a route prefix must cover.
func CleanPath(requestURI string) (string, string) {
	raw, suffix := requestURI, ""
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw, suffix = raw[:i], raw[i:]
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw), suffix
}

// Resolve decides whether user may load requestURI. Anonymous users are sent
// to loginPath with the requested URI in CallbackParam; signed-in users who are
// denied go to defaultRoute, or to "/" when defaultRoute itself is denied.
// Paths not covered by any route require a session.
func Resolve(routes []PageRoute, user *rbac.User, requestURI, loginPath, defaultRoute string) Resolution {
	target, suffix := CleanPath(requestURI)

	route, ok := Match(routes, target)
	if !ok {
		route = PageRoute{Prefix: "/", Guard: rbac.Guard{}}
	}

	decision := route.Guard.Evaluate(user)
	if decision.Allowed {
		return Resolution{Allowed: true}
	}

	if decision.Reason == rbac.ReasonUnauthenticated {
		return Resolution{
			Reason:   decision.Reason,
			Redirect: loginPath + "?" + url.Values{CallbackParam: []string{target + suffix}}.Encode(),
		}
	}

	redirect := defaultRoute
	if coversPath(defaultRoute, target) {
		redirect = "/"
	}
	return Resolution{Reason: decision.Reason, Redirect: redirect}
}
