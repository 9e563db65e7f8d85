package matching

import (
	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/observability"
)

type ProgressStatus string

const (
	ProgressUploading  ProgressStatus = "uploading"
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

type ProgressEvent struct {
	Status        ProgressStatus `json:"status"`
	Message       string         `json:"message"`
	Progress      int            `json:"progress"`
	RequirementID uuid.UUID      `json:"requirement_id,omitempty"`
	DocumentID    uuid.UUID      `json:"document_id,omitempty"`
}

// emitProgress never blocks: a full or nil channel drops the event.
func emitProgress(ch chan<- ProgressEvent, ev ProgressEvent) {
	if ch == nil {
		return
	}
	if ev.Progress < 0 {
		ev.Progress = 0
	}
	if ev.Progress > 100 {
		ev.Progress = 100
	}
	select {
	case ch <- ev:
	default:
		observability.Current().IncProgressDropped()
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
