package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

// OpenSQLite opens a SQLite database. A single connection keeps writes
// serialized and lets ":memory:" style DSNs survive across queries.
func OpenSQLite(logg *logger.Logger, dsn string, silent bool) (*gorm.DB, error) {
	cfg := gormConfig()
	if silent {
		cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if logg != nil {
		logg.Info("Opened SQLite database", "dsn", dsn)
	}
	return db, nil
}
