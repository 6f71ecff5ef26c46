package rbac

import (
	"fmt"
	"sort"
)

// Permission is a flat capability token. There is no hierarchy between
// permissions and no wildcard matching.
type Permission string

const (
	PermViewDashboard        Permission = "VIEW_DASHBOARD"
	PermViewProjects         Permission = "VIEW_PROJECTS"
	PermCreateProject        Permission = "CREATE_PROJECT"
	PermEditProject          Permission = "EDIT_PROJECT"
	PermDeleteProject        Permission = "DELETE_PROJECT"
	PermManageProjectMembers Permission = "MANAGE_PROJECT_MEMBERS"
	PermViewTasks            Permission = "VIEW_TASKS"
	PermCreateTask           Permission = "CREATE_TASK"
	PermEditTask             Permission = "EDIT_TASK"
	PermDeleteTask           Permission = "DELETE_TASK"
	PermAssignTask           Permission = "ASSIGN_TASK"
	PermViewTeams            Permission = "VIEW_TEAMS"
	PermCreateTeam           Permission = "CREATE_TEAM"
	PermManageTeam           Permission = "MANAGE_TEAM"
	PermViewInbox            Permission = "VIEW_INBOX"
	PermViewCalendar         Permission = "VIEW_CALENDAR"
	PermManageCalendar       Permission = "MANAGE_CALENDAR"
	PermPostNewsfeed         Permission = "POST_NEWSFEED"
	PermModerateNewsfeed     Permission = "MODERATE_NEWSFEED"
	PermInviteUsers          Permission = "INVITE_USERS"
	PermManageUsers          Permission = "MANAGE_USERS"
	PermViewReports          Permission = "VIEW_REPORTS"
	PermExportReports        Permission = "EXPORT_REPORTS"
	PermManageBilling        Permission = "MANAGE_BILLING"
	PermManageSettings       Permission = "MANAGE_SETTINGS"
	PermViewAuditLog         Permission = "VIEW_AUDIT_LOG"
)

var allPermissions = []Permission{
	PermViewDashboard,
	PermViewProjects,
	PermCreateProject,
	PermEditProject,
	PermDeleteProject,
	PermManageProjectMembers,
	PermViewTasks,
	PermCreateTask,
	PermEditTask,
	PermDeleteTask,
	PermAssignTask,
	PermViewTeams,
	PermCreateTeam,
	PermManageTeam,
	PermViewInbox,
	PermViewCalendar,
	PermManageCalendar,
	PermPostNewsfeed,
	PermModerateNewsfeed,
	PermInviteUsers,
	PermManageUsers,
	PermViewReports,
	PermExportReports,
	PermManageBilling,
	PermManageSettings,
	PermViewAuditLog,
}

// rolePermissions is authored per role and is not derived from rank.
// Each role lists at least everything a lower-ranked role lists; keep it that way
// when adding tokens.
var rolePermissions = map[Role][]Permission{
	RoleGuest: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
	},
	RoleMember: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
		PermViewTeams,
		PermViewInbox,
		PermCreateTask,
		PermEditTask,
		PermPostNewsfeed,
	},
	RoleLeader: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
		PermViewTeams,
		PermViewInbox,
		PermCreateTask,
		PermEditTask,
		PermPostNewsfeed,
		PermAssignTask,
		PermDeleteTask,
		PermManageCalendar,
		PermViewReports,
	},
	RoleProjectManager: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
		PermViewTeams,
		PermViewInbox,
		PermCreateTask,
		PermEditTask,
		PermPostNewsfeed,
		PermAssignTask,
		PermDeleteTask,
		PermManageCalendar,
		PermViewReports,
		PermCreateProject,
		PermEditProject,
		PermManageProjectMembers,
		PermCreateTeam,
		PermManageTeam,
		PermInviteUsers,
		PermExportReports,
	},
	RoleOwner: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
		PermViewTeams,
		PermViewInbox,
		PermCreateTask,
		PermEditTask,
		PermPostNewsfeed,
		PermAssignTask,
		PermDeleteTask,
		PermManageCalendar,
		PermViewReports,
		PermCreateProject,
		PermEditProject,
		PermManageProjectMembers,
		PermCreateTeam,
		PermManageTeam,
		PermInviteUsers,
		PermExportReports,
		PermDeleteProject,
		PermModerateNewsfeed,
		PermManageBilling,
	},
	RoleAdmin: {
		PermViewDashboard,
		PermViewProjects,
		PermViewTasks,
		PermViewCalendar,
		PermViewTeams,
		PermViewInbox,
		PermCreateTask,
		PermEditTask,
		PermPostNewsfeed,
		PermAssignTask,
		PermDeleteTask,
		PermManageCalendar,
		PermViewReports,
		PermCreateProject,
		PermEditProject,
		PermManageProjectMembers,
		PermCreateTeam,
		PermManageTeam,
		PermInviteUsers,
		PermExportReports,
		PermDeleteProject,
		PermModerateNewsfeed,
		PermManageBilling,
		PermManageUsers,
		PermManageSettings,
		PermViewAuditLog,
	},
	RoleSuperAdmin: allPermissions,
}

// permissionSets is built once from rolePermissions and never modified afterwards
var permissionSets = buildPermissionSets()

func buildPermissionSets() map[Role]PermissionSet {
	sets := make(map[Role]PermissionSet, len(rolePermissions))
	for role, perms := range rolePermissions {
		sets[role] = NewPermissionSet(perms...)
	}
	return sets
}

// AllPermissions returns every defined permission
func AllPermissions() []Permission {
	perms := make([]Permission, len(allPermissions))
	copy(perms, allPermissions)
	return perms
}

// IsValid reports whether p is a defined permission token
func (p Permission) IsValid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermission validates a raw permission token
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return p, nil
}

// PermissionSet is an immutable set of permissions
type PermissionSet struct {
	items map[Permission]struct{}
}

// NewPermissionSet builds a set from the given permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	items := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		items[p] = struct{}{}
	}
	return PermissionSet{items: items}
}

// Has reports whether p is in the set
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.items[p]
	return ok
}

// Len returns the number of permissions in the set
func (s PermissionSet) Len() int {
	return len(s.items)
}

// Slice returns the permissions sorted alphabetically
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s.items))
	for p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionsForRole returns the permission set configured for a role.
// Roles outside the enum get an empty set.
func PermissionsForRole(role Role) PermissionSet {
	if set, ok := permissionSets[role]; ok {
		return set
	}
	return NewPermissionSet()
}
