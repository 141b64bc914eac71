package workflows

import "fmt"

// Validate checks structural well-formedness of a template: every step must
// name itself, and step names must be unique. It does NOT reject unresolved
// or cyclic dependencies between steps — that is the planner's job, and the
// planner drops unresolved steps with a warning rather than failing the
// whole template (see Planner.Plan).
func Validate(tmpl *Template) ValidationResult {
	var result ValidationResult

	if tmpl == nil {
		result.Errors = append(result.Errors, ValidationIssue{
			Code: "template_nil", Path: "$", Message: "template is empty",
		})
		return result
	}

	if len(tmpl.Steps) == 0 {
		result.Errors = append(result.Errors, ValidationIssue{
			Code: "no_steps", Path: "$.steps", Message: "template defines no steps",
		})
		return result
	}

	seen := make(map[string]bool, len(tmpl.Steps))
	for i, step := range tmpl.Steps {
		path := fmt.Sprintf("$.steps[%d]", i)

		if step.Step == "" {
			result.Errors = append(result.Errors, ValidationIssue{
				Code: "missing_step_name", Path: path, Message: "step is missing a name",
			})
			continue
		}
		if seen[step.Step] {
			result.Errors = append(result.Errors, ValidationIssue{
				Code: "duplicate_step", Path: path, Message: fmt.Sprintf("duplicate step name %q", step.Step),
				Actual: step.Step,
			})
			continue
		}
		seen[step.Step] = true

		if step.PipelineKey == "" {
			result.Warnings = append(result.Warnings, ValidationIssue{
				Code: "missing_pipeline_key", Path: path + ".pipeline_key",
				Message: fmt.Sprintf("step %q has no pipeline_key; it will run as a prompt-based step named after itself", step.Step),
			})
		}
	}

	return result
}
