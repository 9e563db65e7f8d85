package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/reqmatch-backend/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, filename string) *types.Document {
	tb.Helper()
	d := &types.Document{
		ID:              uuid.New(),
		OwnerUserID:     ownerID,
		Filename:        filename,
		VectorNamespace: "chunks",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedRequirement(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, name string, threshold *int) *types.Requirement {
	tb.Helper()
	r := &types.Requirement{
		ID:             uuid.New(),
		OwnerUserID:    ownerID,
		Name:           name,
		Description:    name + " description",
		KeyPhrases:     datatypes.JSONSlice[string]{name},
		MatchThreshold: threshold,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed requirement: %v", err)
	}
	return r
}

func Threshold(v int) *int { return &v }
