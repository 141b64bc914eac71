package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_NilTemplate(t *testing.T) {
	result := Validate(nil)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "template_nil", result.Errors[0].Code)
}

func TestValidate_NoSteps(t *testing.T) {
	result := Validate(&Template{})
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "no_steps", result.Errors[0].Code)
}

func TestValidate_DuplicateStepNames(t *testing.T) {
	tmpl := &Template{Steps: []StepDefinition{
		{Step: "a", PipelineKey: "echo"},
		{Step: "a", PipelineKey: "echo"},
	}}

	result := Validate(tmpl)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "duplicate_step", result.Errors[0].Code)
}

func TestValidate_MissingPipelineKeyIsWarningOnly(t *testing.T) {
	tmpl := &Template{Steps: []StepDefinition{
		{Step: "a"},
	}}

	result := Validate(tmpl)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "missing_pipeline_key", result.Warnings[0].Code)
}

func TestValidate_UnresolvedDependencyIsNotAnError(t *testing.T) {
	tmpl := &Template{Steps: []StepDefinition{
		{Step: "a", PipelineKey: "echo", Inputs: []string{"never_defined"}},
	}}

	result := Validate(tmpl)
	assert.Empty(t, result.Errors)
}
