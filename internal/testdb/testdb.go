// Package testdb opens a migrated in-memory sqlite database for tests.
package testdb

import (
	"io"
	"testing"

	"github.com/Fi44er/number_rent_bot/db"
	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Logger() *utils.Logger {
	log := utils.InitLogger("error")
	log.SetOutput(io.Discard)
	return log
}

func New(t testing.TB) *gorm.DB {
	t.Helper()

	log := Logger()
	conn, err := db.ConnectDb("sqlite", ":memory:", log)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn, true, log))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
