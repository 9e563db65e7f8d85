package matching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const ClassificationSchemaVersion = 1

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// EvidenceItem is one supporting chunk with its source file.
type EvidenceItem struct {
	Filename string  `json:"filename"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// RawScores keeps the inputs of the fused score. AI is nil when the judge was not consulted.
type RawScores struct {
	Vector float64 `json:"vector"`
	AI     *int    `json:"ai"`
	Final  int     `json:"final"`
}

// Classification is the scored verdict for one (document, requirement) pair.
// IsPrimary implies IsSecondary, and both imply IsMatched.
type Classification struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_classification_doc_req,priority:1" json:"document_id"`
	RequirementID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_classification_doc_req,priority:2" json:"requirement_id"`
	OwnerUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	Score       int        `gorm:"column:score;not null" json:"score"`
	Confidence  Confidence `gorm:"column:confidence;not null" json:"confidence"`
	IsMatched   bool       `gorm:"column:is_matched;not null;index" json:"is_matched"`
	IsPrimary   bool       `gorm:"column:is_primary;not null" json:"is_primary"`
	IsSecondary bool       `gorm:"column:is_secondary;not null" json:"is_secondary"`

	Evidence  datatypes.JSONSlice[EvidenceItem] `gorm:"column:evidence" json:"evidence"`
	Reason    string                            `gorm:"column:reason" json:"reason"`
	RawScores datatypes.JSONType[RawScores]     `gorm:"column:raw_scores" json:"raw_scores"`

	Judged        bool   `gorm:"column:judged;not null" json:"judged"`
	JudgeModel    string `gorm:"column:judge_model" json:"judge_model,omitempty"`
	SchemaVersion int    `gorm:"column:schema_version;not null" json:"schema_version"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Classification) TableName() string { return "classification" }

// DocumentMatch mirrors a matched Classification for list views.
type DocumentMatch struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClassificationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"classification_id"`
	DocumentID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"document_id"`
	RequirementID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"requirement_id"`
	OwnerUserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Percentage       int        `gorm:"column:percentage;not null" json:"percentage"`
	Confidence       Confidence `gorm:"column:confidence;not null" json:"confidence"`
	Reason           string     `gorm:"column:reason" json:"reason"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentMatch) TableName() string { return "document_match" }

// MatchFor builds the DocumentMatch row for a matched classification.
func MatchFor(c *Classification) *DocumentMatch {
	return &DocumentMatch{
		ID:               uuid.New(),
		ClassificationID: c.ID,
		DocumentID:       c.DocumentID,
		RequirementID:    c.RequirementID,
		OwnerUserID:      c.OwnerUserID,
		Percentage:       c.Score,
		Confidence:       c.Confidence,
		Reason:           c.Reason,
	}
}
