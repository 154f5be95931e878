package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/dbtest"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
)

func setupRepo(t *testing.T) (*rbac.Repository, *gorm.DB) {
	t.Helper()

	db := dbtest.New(t)

	return rbac.NewRepository(db), db
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	u := models.User{Name: email, Email: email, Password: "x"}
	require.NoError(t, db.Create(&u).Error)

	return u
}

func createPermission(t *testing.T, repo *rbac.Repository, key, category, action string) *models.Permission {
	t.Helper()

	p, err := repo.CreatePermission(context.Background(), models.Permission{Key: key, Category: category, Action: action})
	require.NoError(t, err)

	return p
}

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	role, err := repo.CreateRole(ctx, "editor", "edits things")
	require.NoError(t, err)
	assert.NotZero(t, role.ID)

	_, err = repo.CreateRole(ctx, "editor", "")
	require.ErrorIs(t, err, rbac.ErrRoleNameExists)

	_, err = repo.CreateRole(ctx, "  ", "")
	require.ErrorIs(t, err, rbac.ErrInvalidName)

	got, err := repo.GetRoleByName(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, role.ID, got.ID)

	other, err := repo.CreateRole(ctx, "viewer", "")
	require.NoError(t, err)

	_, err = repo.UpdateRole(ctx, other.ID, "editor", "")
	require.ErrorIs(t, err, rbac.ErrRoleNameExists)

	updated, err := repo.UpdateRole(ctx, role.ID, "writer", "writes things")
	require.NoError(t, err)
	assert.Equal(t, "writer", updated.Name)

	roles, err := repo.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	require.NoError(t, repo.DeleteRole(ctx, role.ID))
	require.ErrorIs(t, repo.DeleteRole(ctx, role.ID), rbac.ErrRoleNotFound)

	_, err = repo.GetRole(ctx, role.ID)
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)

	_, err = repo.UpdateRole(ctx, 999, "ghost", "")
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	p := createPermission(t, repo, "USER_READ", rbac.CategoryUserManagement, rbac.ActionRead)

	_, err := repo.CreatePermission(ctx, models.Permission{Key: "USER_READ", Category: "x", Action: rbac.ActionRead})
	require.ErrorIs(t, err, rbac.ErrPermissionKeyExists)

	_, err = repo.CreatePermission(ctx, models.Permission{Key: "USER_FLY", Category: "x", Action: "fly"})
	require.ErrorIs(t, err, rbac.ErrInvalidAction)

	createPermission(t, repo, "REPORT_READ", rbac.CategoryReporting, rbac.ActionRead)

	byCategory, err := repo.ListPermissions(ctx, rbac.CategoryReporting)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "REPORT_READ", byCategory[0].Key)

	all, err := repo.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := repo.UpdatePermission(ctx, p.ID, rbac.CategoryUserManagement, rbac.ActionExport, "export users")
	require.NoError(t, err)
	assert.Equal(t, rbac.ActionExport, updated.Action)
	assert.Equal(t, "USER_READ", updated.Key)

	_, err = repo.UpdatePermission(ctx, p.ID, rbac.CategoryUserManagement, "fly", "")
	require.ErrorIs(t, err, rbac.ErrInvalidAction)

	byKey, err := repo.GetPermissionByKey(ctx, "USER_READ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byKey.ID)

	require.NoError(t, repo.DeletePermission(ctx, p.ID))
	require.ErrorIs(t, repo.DeletePermission(ctx, p.ID), rbac.ErrPermissionNotFound)

	_, err = repo.GetPermission(ctx, p.ID)
	require.ErrorIs(t, err, rbac.ErrPermissionNotFound)
}

func TestAssignRoleToUserIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	user := createUser(t, db, "a@example.com")
	role, err := repo.CreateRole(ctx, "staff", "")
	require.NoError(t, err)

	first, err := repo.AssignRoleToUser(ctx, user.ID, role.ID)
	require.NoError(t, err)

	second, err := repo.AssignRoleToUser(ctx, user.ID, role.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, first.RoleID, second.RoleID)

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = repo.AssignRoleToUser(ctx, user.ID, 999)
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)

	_, err = repo.AssignRoleToUser(ctx, 999, role.ID)
	require.ErrorIs(t, err, rbac.ErrUserNotFound)
}

func TestRemoveRoleFromUserIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	user := createUser(t, db, "a@example.com")
	role, err := repo.CreateRole(ctx, "staff", "")
	require.NoError(t, err)

	// never assigned
	require.NoError(t, repo.RemoveRoleFromUser(ctx, user.ID, role.ID))

	_, err = repo.AssignRoleToUser(ctx, user.ID, role.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveRoleFromUser(ctx, user.ID, role.ID))
	require.NoError(t, repo.RemoveRoleFromUser(ctx, user.ID, role.ID))

	roles, err := repo.GetUserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUserHasAnyRole(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	user := createUser(t, db, "a@example.com")
	staff, err := repo.CreateRole(ctx, "staff", "")
	require.NoError(t, err)

	_, err = repo.CreateRole(ctx, "admin", "")
	require.NoError(t, err)

	_, err = repo.AssignRoleToUser(ctx, user.ID, staff.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		names []string
		want  bool
	}{
		{name: "empty list", names: nil, want: false},
		{name: "held role", names: []string{"staff"}, want: true},
		{name: "one of several", names: []string{"admin", "staff"}, want: true},
		{name: "not held", names: []string{"admin"}, want: false},
		{name: "unknown role", names: []string{"ghost"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.UserHasAnyRole(ctx, user.ID, tt.names)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	names, err := repo.GetUserRoleNames(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"staff"}, names)
}

func TestGetUserPermissionsUnion(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	user := createUser(t, db, "a@example.com")
	loner := createUser(t, db, "b@example.com")

	r1, err := repo.CreateRole(ctx, "r1", "")
	require.NoError(t, err)

	r2, err := repo.CreateRole(ctx, "r2", "")
	require.NoError(t, err)

	pA := createPermission(t, repo, "A_READ", "cat_a", rbac.ActionRead)
	pB := createPermission(t, repo, "B_READ", "cat_b", rbac.ActionRead)
	pC := createPermission(t, repo, "C_APPROVE", "cat_c", rbac.ActionApprove)

	require.NoError(t, repo.AssignPermissionToRole(ctx, r1.ID, pA.ID))
	require.NoError(t, repo.AssignPermissionToRole(ctx, r1.ID, pB.ID))
	require.NoError(t, repo.AssignPermissionToRole(ctx, r2.ID, pB.ID))
	require.NoError(t, repo.AssignPermissionToRole(ctx, r2.ID, pC.ID))
	// duplicate link is ignored
	require.NoError(t, repo.AssignPermissionToRole(ctx, r2.ID, pC.ID))

	_, err = repo.AssignRoleToUser(ctx, user.ID, r1.ID)
	require.NoError(t, err)

	_, err = repo.AssignRoleToUser(ctx, user.ID, r2.ID)
	require.NoError(t, err)

	perms, err := repo.GetUserPermissions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, perms, 3)
	assert.Equal(t, []string{"A_READ", "B_READ", "C_APPROVE"}, []string{perms[0].Key, perms[1].Key, perms[2].Key})

	rolePerms, err := repo.GetRolePermissions(ctx, r2.ID)
	require.NoError(t, err)
	assert.Len(t, rolePerms, 2)

	has, err := repo.UserHasPermission(ctx, user.ID, "C_APPROVE")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.UserHasPermission(ctx, loner.ID, "A_READ")
	require.NoError(t, err)
	assert.False(t, has)

	none, err := repo.GetUserPermissions(ctx, loner.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	inCat, err := repo.UserHasPermissionInCategory(ctx, user.ID, "cat_c", "")
	require.NoError(t, err)
	assert.True(t, inCat)

	inCat, err = repo.UserHasPermissionInCategory(ctx, user.ID, "cat_c", rbac.ActionRead)
	require.NoError(t, err)
	assert.False(t, inCat)

	require.NoError(t, repo.RemovePermissionFromRole(ctx, r2.ID, pC.ID))
	require.NoError(t, repo.RemovePermissionFromRole(ctx, r2.ID, pC.ID))

	has, err = repo.UserHasPermission(ctx, user.ID, "C_APPROVE")
	require.NoError(t, err)
	assert.False(t, has)

	require.ErrorIs(t, repo.AssignPermissionToRole(ctx, 999, pA.ID), rbac.ErrRoleNotFound)
	require.ErrorIs(t, repo.AssignPermissionToRole(ctx, r1.ID, 999), rbac.ErrPermissionNotFound)
}

func TestDeleteRoleCascades(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	user := createUser(t, db, "a@example.com")
	role, err := repo.CreateRole(ctx, "temp", "")
	require.NoError(t, err)

	p := createPermission(t, repo, "X_READ", "x", rbac.ActionRead)
	require.NoError(t, repo.AssignPermissionToRole(ctx, role.ID, p.ID))

	_, err = repo.AssignRoleToUser(ctx, user.ID, role.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteRole(ctx, role.ID))

	var n int64
	require.NoError(t, db.Model(&models.UserRole{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListWithRelations(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	role, err := repo.CreateRole(ctx, "r", "")
	require.NoError(t, err)

	_, err = repo.CreateRole(ctx, "empty", "")
	require.NoError(t, err)

	p := createPermission(t, repo, "X_READ", "x", rbac.ActionRead)
	createPermission(t, repo, "Y_READ", "y", rbac.ActionRead)
	require.NoError(t, repo.AssignPermissionToRole(ctx, role.ID, p.ID))

	roles, err := repo.ListRolesWithPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	require.Len(t, roles[0].Permissions, 1)
	assert.Equal(t, "X_READ", roles[0].Permissions[0].Key)
	assert.Empty(t, roles[1].Permissions)

	perms, err := repo.ListPermissionsWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	require.Len(t, perms[0].Roles, 1)
	assert.Equal(t, "r", perms[0].Roles[0].Name)
	assert.Empty(t, perms[1].Roles)
}
