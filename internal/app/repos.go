package app

import (
	"gorm.io/gorm"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type Repos struct {
	Documents       matchrepo.DocumentRepo
	Requirements    matchrepo.RequirementRepo
	Classifications matchrepo.ClassificationRepo
	SyncStates      matchrepo.SyncStateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents:       matchrepo.NewDocumentRepo(db, log),
		Requirements:    matchrepo.NewRequirementRepo(db, log),
		Classifications: matchrepo.NewClassificationRepo(db, log),
		SyncStates:      matchrepo.NewSyncStateRepo(db, log),
	}
}
