package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
	// AutoMigrate runs AutoMigrateAll after connecting.
	AutoMigrate bool
}

func ConfigFromEnv() Config {
	driver := strings.ToLower(envutil.String("DB_DRIVER", "postgres"))
	dsn := envutil.String("DB_DSN", "")
	if dsn == "" {
		if driver == "sqlite" {
			dsn = "reqmatch.db"
		} else {
			dsn = PostgresDSN()
		}
	}
	return Config{Driver: driver, DSN: dsn, AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true)}
}

func Open(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres", "":
		var svc *PostgresService
		svc, err = NewPostgresService(log, cfg.DSN)
		if svc != nil {
			gdb = svc.DB()
		}
	case "sqlite":
		gdb, err = OpenSQLite(log, cfg.DSN, false)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := AutoMigrateAll(gdb); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return gdb, nil
}
