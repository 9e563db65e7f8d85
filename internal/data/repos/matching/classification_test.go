package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/reqmatch-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reqmatch-backend/internal/domain"
	"github.com/yungbote/reqmatch-backend/internal/pkg/dbctx"
)

func newClassification(docID, reqID, ownerID uuid.UUID, score int, matched bool) *types.Classification {
	return &types.Classification{
		DocumentID:    docID,
		RequirementID: reqID,
		OwnerUserID:   ownerID,
		Score:         score,
		Confidence:    types.ConfidenceMedium,
		IsMatched:     matched,
		IsPrimary:     matched,
		IsSecondary:   matched,
		Evidence:      []types.EvidenceItem{{Filename: "a.pdf", Content: "text", Score: float64(score) / 100}},
		Reason:        "reason",
	}
}

func TestReplaceForRequirementSwapsRowsAndMatches(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)
	repo := NewClassificationRepo(gdb, log)
	states := NewSyncStateRepo(gdb, log)

	owner := uuid.New()
	req := testutil.SeedRequirement(t, ctx, gdb, owner, "security", testutil.Threshold(70))
	d1 := testutil.SeedDocument(t, ctx, gdb, owner, "a.pdf")
	d2 := testutil.SeedDocument(t, ctx, gdb, owner, "b.pdf")

	st, err := states.Ensure(dbc, req.ID)
	if err != nil || st == nil || st.Version != 0 {
		t.Fatalf("Ensure: st=%+v err=%v", st, err)
	}

	v, err := repo.ReplaceForRequirement(dbc, ReplaceInput{
		RequirementID:   req.ID,
		ExpectedVersion: 0,
		Status:          types.SyncStatusSucceeded,
		Rows: []*types.Classification{
			newClassification(d2.ID, req.ID, owner, 40, false),
			newClassification(d1.ID, req.ID, owner, 85, true),
		},
	})
	if err != nil || v != 1 {
		t.Fatalf("first replace: v=%d err=%v", v, err)
	}
	rows, err := repo.ListByRequirement(dbc, req.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByRequirement: len=%d err=%v", len(rows), err)
	}
	if rows[0].SchemaVersion != types.ClassificationSchemaVersion || len(rows[0].Evidence) != 1 {
		t.Fatalf("row not fully persisted: %+v", rows[0])
	}
	matches, err := repo.ListMatchesByRequirement(dbc, req.ID)
	if err != nil || len(matches) != 1 || matches[0].DocumentID != d1.ID || matches[0].Percentage != 85 {
		t.Fatalf("ListMatchesByRequirement: %+v err=%v", matches, err)
	}

	// second pass: only d2 qualifies now
	v, err = repo.ReplaceForRequirement(dbc, ReplaceInput{
		RequirementID:   req.ID,
		ExpectedVersion: 1,
		Status:          types.SyncStatusSucceeded,
		Rows:            []*types.Classification{newClassification(d2.ID, req.ID, owner, 90, true)},
	})
	if err != nil || v != 2 {
		t.Fatalf("second replace: v=%d err=%v", v, err)
	}
	rows, _ = repo.ListByRequirement(dbc, req.ID)
	if len(rows) != 1 || rows[0].DocumentID != d2.ID {
		t.Fatalf("stale rows survived: %+v", rows)
	}
	matches, _ = repo.ListMatchesByRequirement(dbc, req.ID)
	if len(matches) != 1 || matches[0].ClassificationID != rows[0].ID {
		t.Fatalf("match row not recreated in lockstep: %+v", matches)
	}

	st, _ = states.Get(dbc, req.ID)
	if st.Version != 2 || st.ClassifiedCount != 1 || st.MatchedCount != 1 || st.LastStatus != types.SyncStatusSucceeded {
		t.Fatalf("sync state bookkeeping: %+v", st)
	}
}

func TestReplaceForRequirementRejectsStaleVersion(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewClassificationRepo(gdb, testutil.Logger(t))
	states := NewSyncStateRepo(gdb, testutil.Logger(t))

	owner := uuid.New()
	req := testutil.SeedRequirement(t, ctx, gdb, owner, "stale", nil)
	doc := testutil.SeedDocument(t, ctx, gdb, owner, "a.pdf")
	if _, err := states.Ensure(dbc, req.ID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := repo.ReplaceForRequirement(dbc, ReplaceInput{RequirementID: req.ID, ExpectedVersion: 0,
		Rows: []*types.Classification{newClassification(doc.ID, req.ID, owner, 80, true)}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	_, err := repo.ReplaceForRequirement(dbc, ReplaceInput{RequirementID: req.ID, ExpectedVersion: 0})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}
	rows, _ := repo.ListByRequirement(dbc, req.ID)
	if len(rows) != 1 {
		t.Fatalf("conflicting pass must not change rows: %d", len(rows))
	}
}

func TestReplaceForRequirementRollsBackOnMidwayFailure(t *testing.T) {
	gdb := testutil.SQLite(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewClassificationRepo(gdb, testutil.Logger(t), WithInsertBatchSize(1))
	states := NewSyncStateRepo(gdb, testutil.Logger(t))

	owner := uuid.New()
	req := testutil.SeedRequirement(t, ctx, gdb, owner, "atomic", nil)
	var docs []*types.Document
	for i := 0; i < 5; i++ {
		docs = append(docs, testutil.SeedDocument(t, ctx, gdb, owner, "doc.pdf"))
	}
	if _, err := states.Ensure(dbc, req.ID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	prior := newClassification(docs[0].ID, req.ID, owner, 77, true)
	if _, err := repo.ReplaceForRequirement(dbc, ReplaceInput{RequirementID: req.ID, Rows: []*types.Classification{prior}}); err != nil {
		t.Fatalf("seed replace: %v", err)
	}

	inserted := 0
	failure := errors.New("disk full")
	if err := gdb.Callback().Create().Before("gorm:create").Register("test:fail_after_three", func(tx *gorm.DB) {
		if tx.Statement.Table != "classification" {
			return
		}
		inserted++
		if inserted > 3 {
			_ = tx.AddError(failure)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	next := make([]*types.Classification, 0, 5)
	for _, d := range docs {
		next = append(next, newClassification(d.ID, req.ID, owner, 95, true))
	}
	_, err := repo.ReplaceForRequirement(dbc, ReplaceInput{RequirementID: req.ID, ExpectedVersion: 1, Rows: next})
	if !errors.Is(err, failure) {
		t.Fatalf("want injected failure, got %v", err)
	}

	rows, _ := repo.ListByRequirement(dbc, req.ID)
	if len(rows) != 1 || rows[0].ID != prior.ID || rows[0].Score != 77 {
		t.Fatalf("prior state not intact: %+v", rows)
	}
	matches, _ := repo.ListMatchesByRequirement(dbc, req.ID)
	if len(matches) != 1 || matches[0].ClassificationID != prior.ID {
		t.Fatalf("prior match rows not intact: %+v", matches)
	}
	st, _ := states.Get(dbc, req.ID)
	if st.Version != 1 {
		t.Fatalf("version must not advance on rollback: %d", st.Version)
	}
}

func TestUpsertPairsTouchesOnlyGivenPair(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewClassificationRepo(gdb, testutil.Logger(t))

	owner := uuid.New()
	r1 := testutil.SeedRequirement(t, ctx, gdb, owner, "r1", nil)
	r2 := testutil.SeedRequirement(t, ctx, gdb, owner, "r2", nil)
	doc := testutil.SeedDocument(t, ctx, gdb, owner, "a.pdf")
	other := testutil.SeedDocument(t, ctx, gdb, owner, "b.pdf")

	if _, err := repo.UpsertPairs(dbc, []*types.Classification{
		newClassification(doc.ID, r1.ID, owner, 90, true),
		newClassification(other.ID, r1.ID, owner, 91, true),
		newClassification(doc.ID, r2.ID, owner, 20, false),
	}); err != nil {
		t.Fatalf("UpsertPairs: %v", err)
	}
	first, _ := repo.ListByRequirement(dbc, r1.ID)

	saved, err := repo.UpsertPairs(dbc, []*types.Classification{newClassification(doc.ID, r1.ID, owner, 30, false)})
	if err != nil || len(saved) != 1 {
		t.Fatalf("UpsertPairs update: %v", err)
	}
	rows, _ := repo.ListByRequirement(dbc, r1.ID)
	if len(rows) != 2 {
		t.Fatalf("rows: want=2 got=%d", len(rows))
	}
	var updated *types.Classification
	for _, c := range rows {
		if c.DocumentID == doc.ID {
			updated = c
		}
	}
	if updated == nil || updated.Score != 30 || updated.IsMatched {
		t.Fatalf("pair not updated: %+v", updated)
	}
	for _, c := range first {
		if c.DocumentID == doc.ID && c.ID != updated.ID {
			t.Fatalf("upsert must keep the row identity")
		}
	}
	matches, _ := repo.ListMatchesByRequirement(dbc, r1.ID)
	if len(matches) != 1 || matches[0].DocumentID != other.ID {
		t.Fatalf("match rows: %+v", matches)
	}
	if rows, _ := repo.ListByRequirement(dbc, r2.ID); len(rows) != 1 {
		t.Fatalf("other requirement touched")
	}
}
