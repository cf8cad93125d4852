package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voicedesk/backoffice/internal/config"
	"github.com/voicedesk/backoffice/internal/models"
)

// Connect opens the database selected by cfg.DBDriver and applies migrations.
func Connect(cfg config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = OpenPostgres(cfg.DatabaseDSN)
	default:
		db, err = OpenSQLite(cfg.DatabasePath)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite bootstraps a SQLite database using the provided filesystem path.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return db, nil
}

// OpenPostgres opens a pooled Postgres connection.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Models lists every table owned by the back-office.
func Models() []interface{} {
	return []interface{}{
		&models.Admin{},
		&models.GlobalIPAllowlist{},
		&models.AdminIPAllowlist{},
		&models.WebhookSecuritySetting{},
		&models.WebhookRequestLog{},
		&models.AbuseAlert{},
		&models.FailedLoginAttempt{},
		&models.AdminActivityLog{},
		&models.CallLog{},
		&models.Notification{},
		&models.NotificationProvider{},
	}
}

// openAlertIndex keeps a single open alert per entity. Both SQLite and
// Postgres support partial unique indexes with this syntax.
const openAlertIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_abuse_alerts_open_entity
ON abuse_alerts (alert_type, entity_type, entity_id) WHERE status = 'open'`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(openAlertIndex).Error; err != nil {
		return fmt.Errorf("create open alert index: %w", err)
	}
	return nil
}
