package db

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arencloud/stackdeck/internal/config"
	"github.com/arencloud/stackdeck/internal/logging"
	"github.com/arencloud/stackdeck/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the settings table.
func Open(cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	// Configure GORM to use our structured logger so SQL logs are not plain text
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(logging.GetLevel()) {
	case "debug":
		gormLevel = gormlogger.Info
	case "error", "fatal":
		gormLevel = gormlogger.Error
	default:
		gormLevel = gormlogger.Warn
	}

	var dialector gorm.Dialector
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if driver == "postgres" || driver == "postgresql" {
		if cfg.DBDsn == "" {
			return nil, &os.PathError{Op: "open", Path: "DATABASE_URL/DB_DSN", Err: os.ErrInvalid}
		}
		dialector = postgres.Open(cfg.DBDsn)
		logger.Info("db connect", "driver", "postgres")
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DBPath)
		logger.Info("db connect", "driver", "sqlite", "path", cfg.DBPath)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger, gormLevel)})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&models.Setting{}); err != nil {
		return nil, err
	}
	return gdb, nil
}
