package services

import (
	"context"

	"github.com/google/uuid"

	matchrepo "github.com/yungbote/reqmatch-backend/internal/data/repos/matching"
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

type RunOptions struct {
	Concurrency int
	// Progress additionally receives every engine event; sends never block.
	Progress chan<- matching.ProgressEvent
}

// MatchingService scopes engine runs and reads to the owner in ctx.
type MatchingService interface {
	SyncRequirement(ctx context.Context, requirementID uuid.UUID, opts RunOptions) (*matching.Result, error)
	ClassifyDocument(ctx context.Context, documentID uuid.UUID, requirementIDs []uuid.UUID, opts RunOptions) (*matching.Result, error)
	ListClassifications(ctx context.Context, requirementID uuid.UUID) ([]*types.Classification, error)
	ListMatches(ctx context.Context, requirementID uuid.UUID) ([]*types.DocumentMatch, error)
	GetSyncState(ctx context.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error)
}

type matchingService struct {
	log             *logger.Logger
	engine          *matching.Engine
	requirements    matchrepo.RequirementRepo
	classifications matchrepo.ClassificationRepo
	syncStates      matchrepo.SyncStateRepo
	progress        ProgressPublisher
}

func NewMatchingService(
	log *logger.Logger,
	engine *matching.Engine,
	requirements matchrepo.RequirementRepo,
	classifications matchrepo.ClassificationRepo,
	syncStates matchrepo.SyncStateRepo,
	progress ProgressPublisher,
) MatchingService {
	return &matchingService{
		log:             log.With("service", "MatchingService"),
		engine:          engine,
		requirements:    requirements,
		classifications: classifications,
		syncStates:      syncStates,
		progress:        progress,
	}
}

func (s *matchingService) SyncRequirement(ctx context.Context, requirementID uuid.UUID, opts RunOptions) (*matching.Result, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	fwd := startProgressForwarder(ctx, s.log, s.progress, opts.Progress, owner, "sync")
	res, err := s.engine.SyncRequirement(ctx, owner, requirementID, matching.Options{
		Progress:    fwd.Events(),
		Concurrency: opts.Concurrency,
	})
	fwd.Close()
	return res, err
}

func (s *matchingService) ClassifyDocument(ctx context.Context, documentID uuid.UUID, requirementIDs []uuid.UUID, opts RunOptions) (*matching.Result, error) {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	fwd := startProgressForwarder(ctx, s.log, s.progress, opts.Progress, owner, "classify")
	res, err := s.engine.ClassifyDocument(ctx, owner, documentID, matching.Options{
		Progress:       fwd.Events(),
		Concurrency:    opts.Concurrency,
		RequirementIDs: requirementIDs,
	})
	fwd.Close()
	return res, err
}

func (s *matchingService) ListClassifications(ctx context.Context, requirementID uuid.UUID) ([]*types.Classification, error) {
	if err := s.ownedRequirement(ctx, requirementID); err != nil {
		return nil, err
	}
	return s.classifications.ListByRequirement(dbctx.New(ctx), requirementID)
}

func (s *matchingService) ListMatches(ctx context.Context, requirementID uuid.UUID) ([]*types.DocumentMatch, error) {
	if err := s.ownedRequirement(ctx, requirementID); err != nil {
		return nil, err
	}
	return s.classifications.ListMatchesByRequirement(dbctx.New(ctx), requirementID)
}

// GetSyncState returns a zero-version state when the requirement was never synced.
func (s *matchingService) GetSyncState(ctx context.Context, requirementID uuid.UUID) (*types.RequirementSyncState, error) {
	if err := s.ownedRequirement(ctx, requirementID); err != nil {
		return nil, err
	}
	st, err := s.syncStates.Get(dbctx.New(ctx), requirementID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &types.RequirementSyncState{RequirementID: requirementID}
	}
	return st, nil
}

func (s *matchingService) ownedRequirement(ctx context.Context, requirementID uuid.UUID) error {
	owner := ctxutil.OwnerID(ctx)
	if owner == uuid.Nil {
		return ErrUnauthenticated
	}
	req, err := s.requirements.GetByID(dbctx.New(ctx), requirementID)
	if err != nil {
		return err
	}
	if req == nil || req.OwnerUserID != owner {
		return &matching.NotFoundError{Kind: "requirement", ID: requirementID}
	}
	return nil
}
