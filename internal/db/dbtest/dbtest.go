// Package dbtest provides a migrated in-memory database for tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db"
)

// New returns a fresh migrated sqlite in-memory database closed at test end.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(config.DB{GormEngine: config.EngineSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return gdb
}
