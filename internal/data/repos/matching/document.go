package matching

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, docs []*types.Document) ([]*types.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Document, error)
	UpdateChunkCount(dbc dbctx.Context, id uuid.UUID, count int) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, docs []*types.Document) ([]*types.Document, error) {
	if len(docs) == 0 {
		return []*types.Document{}, nil
	}
	for _, d := range docs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
	}
	if err := dbc.Conn(r.db).Create(&docs).Error; err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

// GetByID returns nil, nil when the document does not exist.
func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Document
	err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error) {
	var out []*types.Document
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Document, error) {
	var out []*types.Document
	if err := dbc.Conn(r.db).
		Where("owner_user_id = ?", ownerID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateChunkCount(dbc dbctx.Context, id uuid.UUID, count int) error {
	res := dbc.Conn(r.db).Model(&types.Document{}).Where("id = ?", id).Update("chunk_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
