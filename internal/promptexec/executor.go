// Package promptexec implements the Prompt-Based Step Executor (spec §4.4
// step 3): any step whose pipeline_key is not in the built-in Registry runs
// here instead, against the Prompt Store and LLM Client collaborators.
package promptexec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"taskloom/internal/llmclient"
	"taskloom/internal/promptstore"
)

// skipSentinel short-circuits execution: if it appears anywhere in a step's
// (possibly nested) inputs, an upstream filter step has already decided this
// branch should not run, and the executor returns the sentinel straight back
// without calling the LLM at all.
const skipSentinel = "SkiPeD!!"

const defaultMaxTokens = 4000

// Executor runs a single prompt-based step: fetch its prompt bundle, resolve
// model parameters, call the LLM, and (for json_object steps) recover a
// JSON value from the response text with three fallback strategies.
type Executor struct {
	Store  promptstore.Store
	Client llmclient.Client
}

func New(store promptstore.Store, client llmclient.Client) *Executor {
	return &Executor{Store: store, Client: client}
}

// Execute runs pipelineKey against inputs. domainID selects a domain-specific
// prompt variant when one exists. jsonObject requests JSON-extraction
// fallback parsing of the LLM's raw text response.
func (e *Executor) Execute(ctx context.Context, pipelineKey string, inputs map[string]interface{}, domainID string, jsonObject bool) (string, error) {
	if containsSkipSentinel(inputs) {
		return `{"output": "SkiPeD!!"}`, nil
	}

	processedInputs := inputs
	if pipelineKey == "entity-normalization" {
		processedInputs = normalizeEntityInputs(inputs)
	}

	bundle, err := e.Store.GetFormattedPromptAndConfig(ctx, pipelineKey, processedInputs, domainID)
	if err != nil {
		return "", fmt.Errorf("promptexec: fetching prompt %q: %w", pipelineKey, err)
	}

	temperature := 0.0
	if bundle.Config.Temperature != nil {
		temperature = *bundle.Config.Temperature
	}
	maxTokens := defaultMaxTokens
	if bundle.Config.MaxTokens != nil {
		maxTokens = *bundle.Config.MaxTokens
	}

	response, err := e.Client.CallSync(ctx, llmclient.Request{
		Prompt:      bundle.Prompt,
		Model:       bundle.Config.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		JSONObject:  jsonObject,
	})
	if err != nil {
		return "", fmt.Errorf("promptexec: llm call for %q failed: %w", pipelineKey, err)
	}

	if !jsonObject {
		return response, nil
	}

	return extractJSON(response), nil
}

// containsSkipSentinel scans every (possibly nested) value in inputs for the
// skip sentinel, the same recursive check the original gateway performs
// before deciding whether to call the LLM at all.
func containsSkipSentinel(inputs map[string]interface{}) bool {
	for _, v := range inputs {
		if valueContainsSentinel(v) {
			return true
		}
	}
	return false
}

func valueContainsSentinel(v interface{}) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(val, skipSentinel)
	case map[string]interface{}:
		for _, nested := range val {
			if valueContainsSentinel(nested) {
				return true
			}
		}
	case []interface{}:
		for _, nested := range val {
			if valueContainsSentinel(nested) {
				return true
			}
		}
	default:
		return strings.Contains(fmt.Sprintf("%v", val), skipSentinel)
	}
	return false
}

// extractJSON tries, in order: a direct json.Unmarshal of the whole
// response; stripping a surrounding markdown code fence and retrying; then
// slicing out the substring between the first '{' and the last '}'. If none
// produce valid JSON, the raw response text is returned unchanged rather
// than failing the step — a malformed LLM response should not itself be a
// fatal step error.
func extractJSON(response string) string {
	if json.Valid([]byte(response)) {
		return response
	}

	if fenced := stripMarkdownFence(response); fenced != response && json.Valid([]byte(fenced)) {
		return fenced
	}

	if start := strings.Index(response, "{"); start >= 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	return response
}

func stripMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
