package matching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is an uploaded file whose chunks live in the vector store.
type Document struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Filename    string    `gorm:"column:filename;not null" json:"filename"`
	// VectorNamespace names the chunk set in the vector store.
	VectorNamespace string `gorm:"column:vector_namespace" json:"vector_namespace"`
	ChunkCount      int    `gorm:"column:chunk_count;not null" json:"chunk_count"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }
