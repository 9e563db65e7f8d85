package matching

import (
	"time"

	"github.com/google/uuid"
)

const (
	SyncStatusRunning   = "running"
	SyncStatusSucceeded = "succeeded"
	SyncStatusPartial   = "partial"
	SyncStatusFailed    = "failed"
)

// RequirementSyncState tracks reconciliation passes for one requirement.
// Version is bumped by every committed pass.
type RequirementSyncState struct {
	RequirementID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"requirement_id"`
	Version         int64      `gorm:"column:version;not null" json:"version"`
	LastSyncedAt    *time.Time `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	LastStatus      string     `gorm:"column:last_status" json:"last_status"`
	LastError       string     `gorm:"column:last_error" json:"last_error,omitempty"`
	ClassifiedCount int        `gorm:"column:classified_count;not null" json:"classified_count"`
	MatchedCount    int        `gorm:"column:matched_count;not null" json:"matched_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RequirementSyncState) TableName() string { return "requirement_sync_state" }
