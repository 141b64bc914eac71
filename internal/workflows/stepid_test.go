package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateStepID_DeterministicForSameContext(t *testing.T) {
	ctx := NewStepContext("run-1", "fetch")

	id1 := GenerateStepID(ctx)
	id2 := GenerateStepID(ctx)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 16)
}

func TestGenerateStepID_DiffersByStepName(t *testing.T) {
	a := GenerateStepID(NewStepContext("run-1", "fetch"))
	b := GenerateStepID(NewStepContext("run-1", "summarize"))

	assert.NotEqual(t, a, b)
}

func TestGenerateStepID_DiffersByRunID(t *testing.T) {
	a := GenerateStepID(NewStepContext("run-1", "fetch"))
	b := GenerateStepID(NewStepContext("run-2", "fetch"))

	assert.NotEqual(t, a, b)
}

func TestIdempotencyKey_RoundTrip(t *testing.T) {
	key := IdempotencyKey("run-1", "abc123", 2)

	runID, stepID, attempt, ok := ParseIdempotencyKey(key)
	assert.True(t, ok)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, "abc123", stepID)
	assert.Equal(t, int64(2), attempt)
}
