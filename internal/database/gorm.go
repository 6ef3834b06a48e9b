package database

import (
	"context"
	"errors"
	"fmt"

	"todoapi/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenGORM connects to postgres or sqlite and migrates the schema.
// TranslateError makes unique violations comparable to gorm.ErrDuplicatedKey.
func OpenGORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}
	return openGORM(driver, dialector)
}

// openGORM opens dialector and migrates the schema. The pool is closed if migration fails.
func openGORM(driver string, dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		if closeErr := CloseGORM(db); closeErr != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", errors.Join(err, closeErr))
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// PingGORM checks that the underlying connection pool is alive.
func PingGORM(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CloseGORM releases the connection pool.
func CloseGORM(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
