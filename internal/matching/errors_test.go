package matching

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindUpstream, KindOf(fmt.Errorf("wrap: %w", &UpstreamError{Op: "embed", Err: errors.New("x")})))
	assert.Equal(t, ErrorKindNotFound, KindOf(&NotFoundError{Kind: "document", ID: uuid.New()}))
	assert.Equal(t, ErrorKindValidation, KindOf(&ValidationError{Field: "f", Message: "m"}))
	assert.Equal(t, ErrorKindInternal, KindOf(errors.New("other")))
}

func TestErrorSummary(t *testing.T) {
	var s ErrorSummary
	assert.True(t, s.Empty())
	assert.NoError(t, s.Err())

	doc, req := uuid.New(), uuid.New()
	cause := errors.New("reset")
	s.Add(nil, doc, req)
	s.Add(&UpstreamError{Op: "judge", DocumentID: doc, Err: cause}, doc, uuid.Nil)
	s.Add(&NotFoundError{Kind: "requirement", ID: req}, uuid.Nil, req)

	require.Len(t, s.Items, 2)
	assert.Equal(t, doc, *s.Items[0].DocumentID)
	assert.Nil(t, s.Items[0].RequirementID)
	assert.Nil(t, s.Items[1].DocumentID)
	assert.ErrorIs(t, s.Err(), cause)
	assert.Contains(t, s.Items[0].Message, "upstream judge failed for document")
}
