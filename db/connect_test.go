package db

import (
	"bytes"
	"testing"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConnectDb_QueryLogging(t *testing.T) {
	var buf bytes.Buffer
	log := utils.InitLogger("error")
	log.SetOutput(&buf)

	conn, err := ConnectDb("sqlite", ":memory:", log)
	require.NoError(t, err)
	require.NoError(t, Migrate(conn, true, log))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	err = conn.First(&models.User{}, 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "record not found")

	err = conn.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
}

func TestConnectDb_UnknownDriver(t *testing.T) {
	_, err := ConnectDb("mysql", "", utils.InitLogger("error"))
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
