package matching

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Requirement struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID                   `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Name        string                      `gorm:"column:name;not null" json:"name"`
	Description string                      `gorm:"column:description" json:"description"`
	KeyPhrases  datatypes.JSONSlice[string] `gorm:"column:key_phrases" json:"key_phrases"`
	// MatchThreshold is a percentage in 0..100; nil means unset.
	MatchThreshold *int `gorm:"column:match_threshold" json:"match_threshold"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Requirement) TableName() string { return "requirement" }

// Phrases returns the non-blank key phrases, trimmed.
func (r *Requirement) Phrases() []string {
	out := make([]string, 0, len(r.KeyPhrases))
	for _, p := range r.KeyPhrases {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
