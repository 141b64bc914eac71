// Package promptstore is the external Prompt Store collaborator interface
// (spec §6), plus a filesystem-backed default implementation that reads
// dotprompt-style ".prompt" files: YAML frontmatter (model/temperature/
// max_tokens/provider) followed by a handlebars-lite template body.
package promptstore

import "context"

// Bundle is a formatted prompt plus the model configuration it was
// authored against.
type Bundle struct {
	Prompt string
	Config PromptConfig
}

// PromptConfig mirrors the per-prompt settings a prompt author can pin:
// which model/provider to call it with, and default sampling parameters.
type PromptConfig struct {
	Model       string
	Provider    string
	Temperature *float64
	MaxTokens   *int
}

// Store is the external Prompt Store collaborator: given a pipeline_key and
// the step's resolved inputs, it returns the rendered prompt text and the
// model configuration to call it with.
type Store interface {
	GetFormattedPromptAndConfig(ctx context.Context, pipelineKey string, vars map[string]interface{}, domainID string) (Bundle, error)
}
