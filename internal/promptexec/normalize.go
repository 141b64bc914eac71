package promptexec

import "strings"

// normalizeEntityInputs condenses the raw "extract_entities" and
// "extract_relationships" LLM output fields into a single summary string
// before the entity-normalization prompt is rendered. This preprocessing
// step exists in the original pipeline and is not itself expressible as a
// built-in Registry operation, since it only applies to this one
// pipeline_key — so it lives here rather than in internal/workflows/operations.
func normalizeEntityInputs(inputs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}

	var summary strings.Builder
	if entities, ok := inputs["extract_entities"].(string); ok && entities != "" {
		summary.WriteString("Entities:\n")
		summary.WriteString(entities)
		summary.WriteString("\n")
	}
	if relationships, ok := inputs["extract_relationships"].(string); ok && relationships != "" {
		summary.WriteString("Relationships:\n")
		summary.WriteString(relationships)
	}

	if summary.Len() > 0 {
		out["entity_summary"] = summary.String()
	}

	return out
}
