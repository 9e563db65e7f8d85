package matching

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

// ReplaceInput is one full reconciliation pass for a requirement.
type ReplaceInput struct {
	RequirementID   uuid.UUID
	ExpectedVersion int64
	Rows            []*types.Classification
	Status          string
	LastError       string
}

type ClassificationRepo interface {
	// ReplaceForRequirement swaps every classification and match row of a
	// requirement for rows in one transaction, guarded by the sync-state version.
	// It returns the committed version.
	ReplaceForRequirement(dbc dbctx.Context, in ReplaceInput) (int64, error)
	// UpsertPairs writes each row keyed by (document_id, requirement_id) and
	// reconciles that pair's match row. Other pairs are not touched.
	UpsertPairs(dbc dbctx.Context, rows []*types.Classification) ([]*types.Classification, error)

	ListByRequirement(dbc dbctx.Context, requirementID uuid.UUID) ([]*types.Classification, error)
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Classification, error)
	ListMatchesByRequirement(dbc dbctx.Context, requirementID uuid.UUID) ([]*types.DocumentMatch, error)
}

type ClassificationRepoOption func(*classificationRepo)

// WithInsertBatchSize sets the CreateInBatches size used by ReplaceForRequirement.
func WithInsertBatchSize(n int) ClassificationRepoOption {
	return func(r *classificationRepo) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

type classificationRepo struct {
	db        *gorm.DB
	log       *logger.Logger
	batchSize int
}

func NewClassificationRepo(db *gorm.DB, baseLog *logger.Logger, opts ...ClassificationRepoOption) ClassificationRepo {
	r := &classificationRepo{db: db, log: baseLog.With("repo", "ClassificationRepo"), batchSize: 100}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *classificationRepo) ReplaceForRequirement(dbc dbctx.Context, in ReplaceInput) (int64, error) {
	rows := prepareRows(in.Rows)
	matched := 0
	for _, c := range rows {
		if c.IsMatched {
			matched++
		}
	}
	newVersion := in.ExpectedVersion + 1

	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		now := time.Now().UTC()
		res := txx.Model(&types.RequirementSyncState{}).
			Where("requirement_id = ? AND version = ?", in.RequirementID, in.ExpectedVersion).
			Updates(map[string]interface{}{
				"version":          newVersion,
				"last_synced_at":   now,
				"last_status":      in.Status,
				"last_error":       truncate(in.LastError, 2000),
				"classified_count": len(rows),
				"matched_count":    matched,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		var existing []uuid.UUID
		if err := txx.Model(&types.Classification{}).
			Where("requirement_id = ?", in.RequirementID).
			Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			if err := txx.Where("classification_id IN ?", existing).Delete(&types.DocumentMatch{}).Error; err != nil {
				return err
			}
			if err := txx.Where("id IN ?", existing).Delete(&types.Classification{}).Error; err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if err := txx.CreateInBatches(rows, r.batchSize).Error; err != nil {
			return err
		}

		matches := make([]*types.DocumentMatch, 0, matched)
		for _, c := range rows {
			if c.IsMatched {
				matches = append(matches, types.MatchFor(c))
			}
		}
		if len(matches) > 0 {
			if err := txx.CreateInBatches(matches, r.batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	r.log.Debug("Replaced classifications",
		"requirement_id", in.RequirementID,
		"version", newVersion,
		"rows", len(rows),
		"matched", matched,
	)
	return newVersion, nil
}

func (r *classificationRepo) UpsertPairs(dbc dbctx.Context, rows []*types.Classification) ([]*types.Classification, error) {
	rows = prepareRows(rows)
	if len(rows) == 0 {
		return rows, nil
	}
	out := make([]*types.Classification, 0, len(rows))
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		for _, c := range rows {
			if err := txx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "document_id"}, {Name: "requirement_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"owner_user_id", "score", "confidence", "is_matched", "is_primary", "is_secondary",
					"evidence", "reason", "raw_scores", "judged", "judge_model", "schema_version", "updated_at",
				}),
			}).Create(c).Error; err != nil {
				return err
			}

			var saved types.Classification
			if err := txx.Where("document_id = ? AND requirement_id = ?", c.DocumentID, c.RequirementID).
				First(&saved).Error; err != nil {
				return err
			}
			if err := txx.Where("document_id = ? AND requirement_id = ?", c.DocumentID, c.RequirementID).
				Delete(&types.DocumentMatch{}).Error; err != nil {
				return err
			}
			if saved.IsMatched {
				if err := txx.Create(types.MatchFor(&saved)).Error; err != nil {
					return err
				}
			}
			out = append(out, &saved)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *classificationRepo) ListByRequirement(dbc dbctx.Context, requirementID uuid.UUID) ([]*types.Classification, error) {
	var out []*types.Classification
	if err := dbc.Conn(r.db).
		Where("requirement_id = ?", requirementID).
		Order("document_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *classificationRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Classification, error) {
	var out []*types.Classification
	if err := dbc.Conn(r.db).
		Where("document_id = ?", documentID).
		Order("requirement_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *classificationRepo) ListMatchesByRequirement(dbc dbctx.Context, requirementID uuid.UUID) ([]*types.DocumentMatch, error) {
	var out []*types.DocumentMatch
	if err := dbc.Conn(r.db).
		Where("requirement_id = ?", requirementID).
		Order("percentage DESC, document_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// prepareRows assigns ids and schema version and orders rows by document id.
func prepareRows(in []*types.Classification) []*types.Classification {
	rows := make([]*types.Classification, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.SchemaVersion == 0 {
			c.SchemaVersion = types.ClassificationSchemaVersion
		}
		rows = append(rows, c)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DocumentID.String() < rows[j].DocumentID.String()
	})
	return rows
}
