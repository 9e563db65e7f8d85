package db

import (
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Inputs (owned by ingestion / CRUD services)
		// =========================
		&types.Document{},
		&types.Requirement{},

		// =========================
		// Engine output
		// =========================
		&types.Classification{},
		&types.DocumentMatch{},
		&types.RequirementSyncState{},
	)
}
