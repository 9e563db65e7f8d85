package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitProgressNeverBlocks(t *testing.T) {
	emitProgress(nil, ProgressEvent{Status: ProgressProcessing})

	full := make(chan ProgressEvent, 1)
	emitProgress(full, ProgressEvent{Status: ProgressProcessing, Progress: 10})
	emitProgress(full, ProgressEvent{Status: ProgressProcessing, Progress: 20})
	assert.Len(t, full, 1)
	assert.Equal(t, 10, (<-full).Progress)
}

func TestEmitProgressClamps(t *testing.T) {
	ch := make(chan ProgressEvent, 2)
	emitProgress(ch, ProgressEvent{Progress: -5})
	emitProgress(ch, ProgressEvent{Progress: 150})
	assert.Equal(t, 0, (<-ch).Progress)
	assert.Equal(t, 100, (<-ch).Progress)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 100, percent(0, 0))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 100, percent(3, 3))
}
