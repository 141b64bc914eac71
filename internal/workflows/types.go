// Package workflows implements the DAG planner, step registry and
// StepConfig builder that turn a template into a set of dispatchable steps.
package workflows

import "errors"

// Template is a parsed workflow/chat template: a set of defaults that, like
// the workflow inputs, a step binds when it names them in its inputs, plus
// the ordered step definitions themselves.
type Template struct {
	Defaults map[string]interface{} `yaml:"defaults" json:"defaults"`
	Steps    []StepDefinition       `yaml:"steps" json:"steps"`
}

// StepDefinition is one step as authored in a template YAML file.
type StepDefinition struct {
	Step           string                 `yaml:"step" json:"step"`
	PipelineKey    string                 `yaml:"pipeline_key" json:"pipeline_key"`
	Inputs         []string               `yaml:"inputs" json:"inputs"`
	OptionalInputs []string               `yaml:"optional_inputs,omitempty" json:"optional_inputs,omitempty"`
	Action         string                 `yaml:"action,omitempty" json:"action,omitempty"`
	SectionID      string                 `yaml:"section_id,omitempty" json:"section_id,omitempty"`
	Notifications  bool                   `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	ParallelTask   bool                   `yaml:"parallel_task,omitempty" json:"parallel_task,omitempty"`
	ParallelInputs []string               `yaml:"parallel_inputs,omitempty" json:"parallel_inputs,omitempty"`
	ParallelMerge  string                 `yaml:"parallel_merge,omitempty" json:"parallel_merge,omitempty"`
	JSONObject     bool                   `yaml:"json_object,omitempty" json:"json_object,omitempty"`
	Queue          string                 `yaml:"queue,omitempty" json:"queue,omitempty"`
	Extra          map[string]interface{} `yaml:"-" json:"-"`
}

// StepConfig is the fully-resolved per-step record the dispatcher submits to
// the queue: bound values are copied in at plan time, prerequisites are left
// for the worker to resolve at run time.
type StepConfig struct {
	Step            string
	PipelineKey     string
	ProjectName     string
	PromptConfigSrc string
	Database        string
	Action          string
	SectionID       string
	Notifications   bool
	JSONObject      bool
	DomainID        string
	Queue           string
	Inputs          map[string]interface{}
	Prerequisites   []string
	ParallelTask    bool
	ParallelInputs  []string
	ParallelMerge   string
}

// TaskRecord is the per-step bookkeeping entry returned to a caller after a
// workflow has been dispatched: enough to poll for a result.
type TaskRecord struct {
	StepName    string `json:"step_name"`
	PipelineKey string `json:"pipeline_key"`
	TaskID      string `json:"task_id"`
	Queue       string `json:"queue"`
	Status      string `json:"status"`
}

// TaskResult is the payload a task worker produces once a step finishes.
type TaskResult struct {
	WorkflowID      string      `json:"workflow_id"`
	Action          string      `json:"action,omitempty"`
	Response        interface{} `json:"response"`
	Version         string      `json:"version"`
	WebhookResponse bool        `json:"webhook_response"`
}

// ValidationIssue is a structured validation error or warning.
type ValidationIssue struct {
	Code     string      `json:"code"`
	Path     string      `json:"path"`
	Message  string      `json:"message"`
	Expected interface{} `json:"expected,omitempty"`
	Actual   interface{} `json:"actual,omitempty"`
	Hint     string      `json:"hint,omitempty"`
}

// ValidationResult aggregates validation errors and warnings for a template.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// ErrValidation indicates a template failed validation.
var ErrValidation = errors.New("template validation failed")
