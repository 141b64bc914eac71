package promptexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskloom/internal/llmclient"
	"taskloom/internal/promptstore"
)

type fakeStore struct {
	bundle promptstore.Bundle
	err    error
}

func (f fakeStore) GetFormattedPromptAndConfig(ctx context.Context, pipelineKey string, vars map[string]interface{}, domainID string) (promptstore.Bundle, error) {
	return f.bundle, f.err
}

type fakeLLM struct {
	response string
	err      error
	lastReq  llmclient.Request
}

func (f *fakeLLM) CallSync(ctx context.Context, req llmclient.Request) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func TestExecute_SkipSentinelShortCircuits(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	exec := New(fakeStore{}, llm)

	result, err := exec.Execute(context.Background(), "summarize", map[string]interface{}{
		"upstream": "SkiPeD!!",
	}, "", false)

	require.NoError(t, err)
	assert.Equal(t, `{"output": "SkiPeD!!"}`, result)
}

func TestExecute_SkipSentinelNestedInList(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	exec := New(fakeStore{}, llm)

	_, err := exec.Execute(context.Background(), "summarize", map[string]interface{}{
		"items": []interface{}{"fine", "SkiPeD!!"},
	}, "", false)

	require.NoError(t, err)
	assert.Empty(t, llm.lastReq.Prompt)
}

func TestExecute_CallsLLMWithRenderedPrompt(t *testing.T) {
	store := fakeStore{bundle: promptstore.Bundle{Prompt: "rendered prompt"}}
	llm := &fakeLLM{response: "plain text answer"}
	exec := New(store, llm)

	result, err := exec.Execute(context.Background(), "summarize-doc", map[string]interface{}{"input_text": "hi"}, "", false)

	require.NoError(t, err)
	assert.Equal(t, "plain text answer", result)
	assert.Equal(t, "rendered prompt", llm.lastReq.Prompt)
}

func TestExecute_JSONObjectDirectParse(t *testing.T) {
	store := fakeStore{bundle: promptstore.Bundle{Prompt: "p"}}
	llm := &fakeLLM{response: `{"a":1}`}
	exec := New(store, llm)

	result, err := exec.Execute(context.Background(), "extract", map[string]interface{}{}, "", true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, result)
}

func TestExecute_JSONObjectMarkdownFence(t *testing.T) {
	store := fakeStore{bundle: promptstore.Bundle{Prompt: "p"}}
	llm := &fakeLLM{response: "```json\n{\"a\":1}\n```"}
	exec := New(store, llm)

	result, err := exec.Execute(context.Background(), "extract", map[string]interface{}{}, "", true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, result)
}

func TestExecute_JSONObjectSubstringFallback(t *testing.T) {
	store := fakeStore{bundle: promptstore.Bundle{Prompt: "p"}}
	llm := &fakeLLM{response: `Sure, here you go: {"a":1} hope that helps`}
	exec := New(store, llm)

	result, err := exec.Execute(context.Background(), "extract", map[string]interface{}{}, "", true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, result)
}

func TestExecute_JSONObjectUnrecoverableReturnsRawText(t *testing.T) {
	store := fakeStore{bundle: promptstore.Bundle{Prompt: "p"}}
	llm := &fakeLLM{response: "no json here at all"}
	exec := New(store, llm)

	result, err := exec.Execute(context.Background(), "extract", map[string]interface{}{}, "", true)
	require.NoError(t, err)
	assert.Equal(t, "no json here at all", result)
}

func TestExecute_EntityNormalizationPreprocessing(t *testing.T) {
	var captured map[string]interface{}
	store := capturingStore{fn: func(vars map[string]interface{}) {
		captured = vars
	}}
	llm := &fakeLLM{response: "ok"}
	exec := New(store, llm)

	_, err := exec.Execute(context.Background(), "entity-normalization", map[string]interface{}{
		"extract_entities":      "Person: Alice",
		"extract_relationships": "Alice knows Bob",
	}, "", false)

	require.NoError(t, err)
	assert.Contains(t, captured["entity_summary"], "Alice")
	assert.Contains(t, captured["entity_summary"], "knows Bob")
}

type capturingStore struct {
	fn func(vars map[string]interface{})
}

func (c capturingStore) GetFormattedPromptAndConfig(ctx context.Context, pipelineKey string, vars map[string]interface{}, domainID string) (promptstore.Bundle, error) {
	c.fn(vars)
	return promptstore.Bundle{Prompt: "p"}, nil
}
