package promptexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEntityInputs_BuildsSummary(t *testing.T) {
	out := normalizeEntityInputs(map[string]interface{}{
		"extract_entities":      "Person: Alice",
		"extract_relationships": "Alice knows Bob",
		"input_text":            "unrelated",
	})

	assert.Contains(t, out["entity_summary"], "Entities:\nPerson: Alice")
	assert.Contains(t, out["entity_summary"], "Relationships:\nAlice knows Bob")
	assert.Equal(t, "unrelated", out["input_text"])
}

func TestNormalizeEntityInputs_NoSourceFieldsLeavesSummaryUnset(t *testing.T) {
	out := normalizeEntityInputs(map[string]interface{}{"input_text": "hi"})

	_, ok := out["entity_summary"]
	assert.False(t, ok)
}
