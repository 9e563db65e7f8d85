package matching

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type SyncStateRepo interface {
	// Ensure creates the row at version 0 when missing and returns the current state.
	Ensure(dbc dbctx.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error)
	Get(dbc dbctx.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error)
	// RecordFailure stores the status without bumping the version.
	RecordFailure(dbc dbctx.Context, requirementID uuid.UUID, status string, message string) error
}

type syncStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncStateRepo(db *gorm.DB, baseLog *logger.Logger) SyncStateRepo {
	return &syncStateRepo{db: db, log: baseLog.With("repo", "SyncStateRepo")}
}

func (r *syncStateRepo) Ensure(dbc dbctx.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error) {
	row := &types.RequirementSyncState{RequirementID: requirementID}
	if err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "requirement_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, classify(err)
	}
	return r.Get(dbc, requirementID)
}

// Get returns nil, nil when no pass has ever been recorded.
func (r *syncStateRepo) Get(dbc dbctx.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error) {
	var out types.RequirementSyncState
	err := dbc.Conn(r.db).Where("requirement_id = ?", requirementID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *syncStateRepo) RecordFailure(dbc dbctx.Context, requirementID uuid.UUID, status string, message string) error {
	return dbc.Conn(r.db).
		Model(&types.RequirementSyncState{}).
		Where("requirement_id = ?", requirementID).
		Updates(map[string]interface{}{
			"last_status": status,
			"last_error":  truncate(message, 2000),
			"updated_at":  time.Now().UTC(),
		}).Error
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
