package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userWithRole(role string) *User {
	return &User{ID: "u-1", Email: "u1@example.com", Role: role}
}

func TestPermissionTable(t *testing.T) {
	t.Run("every role has an entry", func(t *testing.T) {
		for _, role := range AllRoles() {
			assert.Greater(t, PermissionsForRole(role).Len(), 0, "role %s", role)
		}
	})

	t.Run("higher roles hold every permission of lower roles", func(t *testing.T) {
		roles := AllRoles()
		for i := 1; i < len(roles); i++ {
			higher := PermissionsForRole(roles[i])
			for _, p := range PermissionsForRole(roles[i-1]).Slice() {
				assert.True(t, higher.Has(p), "%s should include %s from %s", roles[i], p, roles[i-1])
			}
		}
	})

	t.Run("super admin holds every permission", func(t *testing.T) {
		assert.Equal(t, len(AllPermissions()), PermissionsForRole(RoleSuperAdmin).Len())
	})

	t.Run("only defined tokens appear", func(t *testing.T) {
		for _, role := range AllRoles() {
			for _, p := range PermissionsForRole(role).Slice() {
				assert.True(t, p.IsValid(), "%s lists %s", role, p)
			}
		}
	})

	t.Run("project manager can create projects and manage teams", func(t *testing.T) {
		pm := PermissionsForRole(RoleProjectManager)
		assert.True(t, pm.Has(PermCreateProject))
		assert.True(t, pm.Has(PermManageTeam))
		assert.False(t, pm.Has(PermManageUsers))
	})

	t.Run("unknown role has no permissions", func(t *testing.T) {
		assert.Equal(t, 0, PermissionsForRole(Role("NOPE")).Len())
	})
}

func TestGetUserPermissions(t *testing.T) {
	assert.Equal(t, 0, GetUserPermissions(nil).Len())

	perms := GetUserPermissions(userWithRole("admin"))
	assert.True(t, perms.Has(PermManageUsers))

	// unknown roles resolve to MEMBER
	assert.Equal(t, PermissionsForRole(RoleMember).Slice(), GetUserPermissions(userWithRole("???")).Slice())
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(userWithRole("ADMIN"), PermManageBilling))
	assert.False(t, HasPermission(userWithRole("GUEST"), PermCreateTask))
	assert.False(t, HasPermission(nil, PermViewDashboard))
}

func TestHasAnyPermission(t *testing.T) {
	member := userWithRole("member")

	assert.True(t, HasAnyPermission(member, PermManageUsers, PermCreateTask))
	assert.False(t, HasAnyPermission(member, PermManageUsers, PermManageBilling))
	assert.False(t, HasAnyPermission(member))
	assert.False(t, HasAnyPermission(nil, PermViewDashboard))
	assert.False(t, HasAnyPermission(nil))
}

func TestHasAllPermissions(t *testing.T) {
	pm := userWithRole("project_manager")

	assert.True(t, HasAllPermissions(pm, PermCreateProject, PermManageTeam))
	assert.False(t, HasAllPermissions(pm, PermCreateProject, PermManageUsers))
	assert.True(t, HasAllPermissions(pm))
	assert.True(t, HasAllPermissions(nil))
	assert.False(t, HasAllPermissions(nil, PermViewDashboard))
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet(PermViewTasks, PermCreateTask, PermViewTasks)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []Permission{PermCreateTask, PermViewTasks}, set.Slice())

	var zero PermissionSet
	assert.False(t, zero.Has(PermViewTasks))
	assert.Empty(t, zero.Slice())
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("MANAGE_USERS")
	require.NoError(t, err)
	assert.Equal(t, PermManageUsers, p)

	_, err = ParsePermission("manage_users")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}
