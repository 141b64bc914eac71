// Package llmclient is the LLM provider collaborator interface (spec §6)
// plus two thin adapters over the Anthropic and OpenAI-compatible SDKs.
package llmclient

import "context"

// Request is a single completion request against the configured model.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	JSONObject  bool
}

// Client is the external LLM provider collaborator. Implementations wrap a
// specific vendor SDK; callers never depend on the vendor types directly.
type Client interface {
	CallSync(ctx context.Context, req Request) (string, error)
}
