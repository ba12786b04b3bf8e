package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"signage-backend/config"
	"signage-backend/internal/model"
)

// Models lists every table owned by the device core, in migration order.
func Models() []any {
	return []any{
		&model.Tenant{},
		&model.MediaAsset{},
		&model.Playlist{},
		&model.PlaylistItem{},
		&model.Layout{},
		&model.LayoutZone{},
		&model.LanguageGroup{},
		&model.Scene{},
		&model.Campaign{},
		&model.CampaignTarget{},
		&model.CampaignItem{},
		&model.CampaignPlay{},
		&model.Schedule{},
		&model.ScheduleEntry{},
		&model.Device{},
		&model.DeviceCommand{},
		&model.TelemetryEvent{},
		&model.PushSubscription{},
	}
}

// Dialector picks the driver from the DSN: postgres URLs and key=value DSNs
// go to postgres, anything else is a sqlite path.
func Dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// LogLevel maps a config string onto gorm's logger levels.
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// sqlite serializes writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("Running database migrations", zap.String("dialect", db.Dialector.Name()))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if db.Dialector.Name() == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			log.Warn("Failed to apply some postgres DDL, continuing without them", zap.Error(err))
		}
	}

	log.Info("Database initialization complete")
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// Drain only ever reads open commands.
		"CREATE INDEX IF NOT EXISTS idx_device_commands_open ON device_commands (device_id, created_at) " +
			"WHERE status IN ('pending', 'delivered');",

		// The sweep scans online devices by last_seen.
		"CREATE INDEX IF NOT EXISTS idx_devices_online_last_seen ON devices (last_seen) WHERE is_online;",

		"ALTER TABLE schedule_entries DROP CONSTRAINT IF EXISTS schedule_entries_window_valid;",
		"ALTER TABLE schedule_entries ADD CONSTRAINT schedule_entries_window_valid " +
			"CHECK (end_date IS NULL OR start_date IS NULL OR start_date <= end_date);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
