package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAnthropicClient_DefaultsModelWhenUnset(t *testing.T) {
	c := NewAnthropicClient("key", "", "")
	assert.NotEmpty(t, c.defaultModel)
}

func TestNewAnthropicClient_KeepsExplicitModel(t *testing.T) {
	c := NewAnthropicClient("key", "", "claude-custom")
	assert.Equal(t, "claude-custom", c.defaultModel)
}

func TestNewOpenAIClient_DefaultsModelWhenUnset(t *testing.T) {
	c := NewOpenAIClient("key", "", "")
	assert.NotEmpty(t, c.defaultModel)
}

func TestNewOpenAIClient_KeepsExplicitModel(t *testing.T) {
	c := NewOpenAIClient("key", "", "gpt-custom")
	assert.Equal(t, "gpt-custom", c.defaultModel)
}
