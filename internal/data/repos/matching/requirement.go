package matching

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type RequirementRepo interface {
	Create(dbc dbctx.Context, reqs []*types.Requirement) ([]*types.Requirement, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Requirement, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Requirement, error)
}

type requirementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequirementRepo(db *gorm.DB, baseLog *logger.Logger) RequirementRepo {
	return &requirementRepo{db: db, log: baseLog.With("repo", "RequirementRepo")}
}

func (r *requirementRepo) Create(dbc dbctx.Context, reqs []*types.Requirement) ([]*types.Requirement, error) {
	if len(reqs) == 0 {
		return []*types.Requirement{}, nil
	}
	for _, q := range reqs {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
	}
	if err := dbc.Conn(r.db).Create(&reqs).Error; err != nil {
		return nil, classify(err)
	}
	return reqs, nil
}

// GetByID returns nil, nil when the requirement does not exist.
func (r *requirementRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Requirement, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Requirement
	err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requirementRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Requirement, error) {
	var out []*types.Requirement
	if err := dbc.Conn(r.db).
		Where("owner_user_id = ?", ownerID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
