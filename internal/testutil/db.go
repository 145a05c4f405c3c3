// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"snapgram/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewTestDB opens a fresh, migrated in-memory SQLite database. Each call gets
// its own named shared-cache database so parallel tests do not see each other.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:snapgram_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
