package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"signage-backend/config"
)

func TestDialector(t *testing.T) {
	assert.Equal(t, "postgres", Dialector("postgres://user@localhost/signage").Name())
	assert.Equal(t, "postgres", Dialector("host=localhost user=signage dbname=signage").Name())
	assert.Equal(t, "sqlite", Dialector("signage.db").Name())
	assert.Equal(t, "sqlite", Dialector("file::memory:?cache=shared").Name())
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, LogLevel("silent"))
	assert.Equal(t, logger.Info, LogLevel("INFO"))
	assert.Equal(t, logger.Warn, LogLevel(""))
}

func TestInit_SQLiteMigrates(t *testing.T) {
	gdb, err := Init(&config.DatabaseConfig{DSN: "file:db_init_test?mode=memory&cache=shared", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()

	for _, table := range []string{"devices", "device_commands", "schedule_entries", "campaign_plays", "push_subscriptions"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}
