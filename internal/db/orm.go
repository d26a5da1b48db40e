package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// InitPostgresORM opens the gorm handle used by the record, log and connection repositories
func InitPostgresORM(dsn string, appEnv string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if appEnv != "production" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logging.Info("Connected to Postgres via GORM")
	return db, nil
}
