package workflows

import "taskloom/internal/logging"

// Planner computes the level-by-level execution order for a template's
// steps: within a level every step's declared inputs are already available
// (either as workflow inputs or as outputs of an earlier level), so every
// step in a level can be dispatched without waiting on its siblings.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

// Plan returns the steps grouped into dependency levels. A step whose inputs
// never become available — because of a cycle, a typo, or a reference to a
// step that was itself dropped — is left out of every level rather than
// failing planning for the whole template; it is reported back via dropped
// along with the remaining unresolved step names, and a warning is logged.
//
// This mirrors the original workflow engine's level-building pass, which
// also drops unsatisfiable steps with a logged warning instead of raising.
// Whether that silent drop is the right behavior for steps that will never
// run is an open design question inherited unchanged from that engine.
func (p *Planner) Plan(initialInputs map[string]interface{}, steps []StepDefinition) (levels [][]string, dropped []string) {
	available := make(map[string]bool, len(initialInputs))
	for k := range initialInputs {
		available[k] = true
	}

	remaining := make([]StepDefinition, len(steps))
	copy(remaining, steps)

	for len(remaining) > 0 {
		var current []string
		var next []StepDefinition

		for _, step := range remaining {
			if subsetOf(step.Inputs, available) {
				current = append(current, step.Step)
			} else {
				next = append(next, step)
			}
		}

		if len(current) == 0 {
			for _, step := range remaining {
				dropped = append(dropped, step.Step)
			}
			logging.Warn("planner: cannot resolve dependencies for remaining steps: %v", dropped)
			break
		}

		levels = append(levels, current)
		for _, name := range current {
			available[name] = true
		}
		remaining = next
	}

	return levels, dropped
}

func subsetOf(inputs []string, available map[string]bool) bool {
	for _, in := range inputs {
		if !available[in] {
			return false
		}
	}
	return true
}
