package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB 建立獨立的 in-memory sqlite 並 migrate
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := GetSqliteConn(":memory:")
	require.NoError(t, err)
	require.NoError(t, NewDbDao(conn).InitMigrate())
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		sqlDB.Close()
	})
	return conn
}
