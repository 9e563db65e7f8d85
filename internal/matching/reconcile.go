package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/observability"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

// Reconciler persists computed classification sets.
type Reconciler struct {
	log             *logger.Logger
	classifications matchrepo.ClassificationRepo
	states          matchrepo.SyncStateRepo
}

func NewReconciler(log *logger.Logger, classifications matchrepo.ClassificationRepo, states matchrepo.SyncStateRepo) *Reconciler {
	return &Reconciler{
		log:             log.With("service", "Reconciler"),
		classifications: classifications,
		states:          states,
	}
}

// Begin returns the version a full pass must commit against.
func (r *Reconciler) Begin(ctx context.Context, requirementID uuid.UUID) (int64, error) {
	st, err := r.states.Ensure(dbctx.New(ctx), requirementID)
	if err != nil {
		return 0, fmt.Errorf("load sync state: %w", err)
	}
	if st == nil {
		return 0, fmt.Errorf("sync state missing for requirement %s", requirementID)
	}
	return st.Version, nil
}

// Previous returns the committed classifications of a requirement keyed by document.
func (r *Reconciler) Previous(ctx context.Context, requirementID uuid.UUID) (map[uuid.UUID]*types.Classification, error) {
	rows, err := r.classifications.ListByRequirement(dbctx.New(ctx), requirementID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*types.Classification, len(rows))
	for _, c := range rows {
		out[c.DocumentID] = c
	}
	return out, nil
}

// Replace swaps the requirement's whole classification set. A version
// conflict is reported as ErrConcurrentSync and leaves stored rows untouched.
func (r *Reconciler) Replace(ctx context.Context, in matchrepo.ReplaceInput) (int64, error) {
	ctx, span := observability.StartSpan(ctx, "matching.reconcile",
		attribute.String("requirement_id", in.RequirementID.String()),
		attribute.Int("rows", len(in.Rows)),
	)
	defer span.End()

	version, err := r.classifications.ReplaceForRequirement(dbctx.New(ctx), in)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, matchrepo.ErrVersionConflict) {
			observability.Current().ObserveReconcile("sync", "conflict", 0)
			return 0, fmt.Errorf("%w: %w", ErrConcurrentSync, err)
		}
		observability.Current().ObserveReconcile("sync", "error", 0)
		return 0, err
	}
	observability.Current().ObserveReconcile("sync", "success", len(in.Rows))
	return version, nil
}

// Upsert writes single pairs without touching the rest of the requirement's set.
func (r *Reconciler) Upsert(ctx context.Context, rows []*types.Classification) ([]*types.Classification, error) {
	saved, err := r.classifications.UpsertPairs(dbctx.New(ctx), rows)
	if err != nil {
		observability.Current().ObserveReconcile("classify", "error", 0)
		return nil, err
	}
	observability.Current().ObserveReconcile("classify", "success", len(saved))
	return saved, nil
}

func (r *Reconciler) RecordFailure(ctx context.Context, requirementID uuid.UUID, cause error) {
	if err := r.states.RecordFailure(dbctx.New(context.WithoutCancel(ctx)), requirementID, types.SyncStatusFailed, cause.Error()); err != nil {
		r.log.Warn("Could not record sync failure", "requirement_id", requirementID, "error", err)
	}
}
