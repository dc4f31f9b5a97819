package db

import (
	"fmt"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// gormWriter sends gorm query errors to the application logger.
type gormWriter struct {
	log *utils.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Errorf(format, args...)
}

func ConnectDb(driver, url string, log *utils.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  url,
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		dialector = sqlite.Open(url)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(gormWriter{log}, gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Error,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	log.Infof("✅ Database connection successfully (%s)", db.Dialector.Name())

	log.Info("📦 Setting database connection pool...")
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// sqlite has a single writer; one connection keeps transactions serialized.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetMaxOpenConns(200)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func Migrate(db *gorm.DB, trigger bool, log *utils.Logger) error {
	if trigger {
		log.Info("📦 Migrating database...")
		if err := db.AutoMigrate(Models()...); err != nil {
			log.Errorf("✖ Failed to migrate database: %v", err)
			return err
		}
	}

	log.Info("✅ Database migrated successfully")
	return nil
}

func Models() []interface{} {
	return []interface{}{
		&models.Number{},
		&models.Settings{},
		&models.User{},
		&models.Withdrawal{},
		&models.Personal{},
		&models.AccessRequest{},
	}
}
