package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
)

var errConnReset = errors.New("connection reset by peer")

func setupMockRepo(t *testing.T) (*rbac.Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return rbac.NewRepository(db), mock
}

func TestStorageFailuresPropagate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(repo *rbac.Repository) (bool, error)
	}{
		{
			name: "user has permission",
			call: func(repo *rbac.Repository) (bool, error) {
				return repo.UserHasPermission(ctx, 1, rbac.PermUserRead)
			},
		},
		{
			name: "user has permission in category",
			call: func(repo *rbac.Repository) (bool, error) {
				return repo.UserHasPermissionInCategory(ctx, 1, rbac.CategoryUserManagement, "")
			},
		},
		{
			name: "user has any role",
			call: func(repo *rbac.Repository) (bool, error) {
				return repo.UserHasAnyRole(ctx, 1, []string{rbac.RoleAdmin})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupMockRepo(t)
			mock.ExpectQuery("SELECT count").WillReturnError(errConnReset)

			ok, err := tt.call(repo)
			require.ErrorIs(t, err, errConnReset)
			assert.False(t, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserPermissionsFailure(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery("SELECT DISTINCT").WillReturnError(errConnReset)

	perms, err := repo.GetUserPermissions(context.Background(), 1)
	require.ErrorIs(t, err, errConnReset)
	assert.Nil(t, perms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHasAnyRoleEmptyDoesNotQuery(t *testing.T) {
	repo, mock := setupMockRepo(t)

	ok, err := repo.UserHasAnyRole(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
