package matching

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var (
	// ErrConcurrentSync means another pass for the same requirement committed first.
	ErrConcurrentSync = errors.New("requirement is being synced concurrently")
	// ErrLockHeld means the requirement lock could not be acquired in time.
	ErrLockHeld = errors.New("requirement lock held")
)

// UpstreamError is a failure of the embedding, vector or language model service
// after transport-level retries.
type UpstreamError struct {
	Op         string
	DocumentID uuid.UUID
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.DocumentID != uuid.Nil {
		return fmt.Sprintf("upstream %s failed for document %s: %v", e.Op, e.DocumentID, e.Err)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError describes a judge response that could not be read as a verdict.
// It never leaves the judge; callers see the fallback verdict instead.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string { return "judge response parse failed: " + e.Reason }

type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

const (
	ErrorKindUpstream   = "upstream"
	ErrorKindNotFound   = "not_found"
	ErrorKindValidation = "validation"
	ErrorKindInternal   = "internal"
)

// ErrorItem is one isolated failure inside a pass.
type ErrorItem struct {
	Kind          string     `json:"kind"`
	DocumentID    *uuid.UUID `json:"document_id,omitempty"`
	RequirementID *uuid.UUID `json:"requirement_id,omitempty"`
	Message       string     `json:"message"`
	err           error
}

// ErrorSummary collects per-document and per-requirement failures that did not
// abort the whole pass.
type ErrorSummary struct {
	Items []ErrorItem `json:"items"`
}

func (s *ErrorSummary) Add(err error, documentID, requirementID uuid.UUID) {
	if err == nil {
		return
	}
	item := ErrorItem{Kind: KindOf(err), Message: err.Error(), err: err}
	if documentID != uuid.Nil {
		id := documentID
		item.DocumentID = &id
	}
	if requirementID != uuid.Nil {
		id := requirementID
		item.RequirementID = &id
	}
	s.Items = append(s.Items, item)
}

func (s *ErrorSummary) Empty() bool { return s == nil || len(s.Items) == 0 }

// Err combines every recorded error, or returns nil.
func (s *ErrorSummary) Err() error {
	if s == nil {
		return nil
	}
	var out error
	for _, it := range s.Items {
		out = multierr.Append(out, it.err)
	}
	return out
}

func KindOf(err error) string {
	var (
		up  *UpstreamError
		nf  *NotFoundError
		val *ValidationError
	)
	switch {
	case errors.As(err, &up):
		return ErrorKindUpstream
	case errors.As(err, &nf):
		return ErrorKindNotFound
	case errors.As(err, &val):
		return ErrorKindValidation
	default:
		return ErrorKindInternal
	}
}
