package workflows

// BuildStepConfig splits a step's declared inputs into bound values (copied
// in now, from the workflow's own inputs or the template defaults) versus
// prerequisites (another step's name, resolved by the worker at run time).
// optional_inputs that never resolve bind to an empty string rather than
// being dropped, so a step can always find the key in its Inputs map.
func BuildStepConfig(step StepDefinition, workflowInputs map[string]interface{}, projectName, promptConfigSrc, database, domainID string) StepConfig {
	cfg := StepConfig{
		Step:            step.Step,
		PipelineKey:     step.PipelineKey,
		ProjectName:     projectName,
		PromptConfigSrc: promptConfigSrc,
		Database:        database,
		Action:          step.Action,
		SectionID:       step.SectionID,
		Notifications:   step.Notifications,
		JSONObject:      step.JSONObject,
		DomainID:        domainID,
		Queue:           step.Queue,
		Inputs:          map[string]interface{}{},
		ParallelTask:    step.ParallelTask,
		ParallelInputs:  step.ParallelInputs,
		ParallelMerge:   step.ParallelMerge,
	}

	if cfg.ParallelTask {
		cfg.Queue = "io_queue"
	}
	if cfg.Queue == "" {
		cfg.Queue = "default_queue"
	}

	for _, name := range step.Inputs {
		if value, ok := workflowInputs[name]; ok {
			cfg.Inputs[name] = value
			continue
		}
		// Not a bound workflow input: treat it as a prerequisite step name,
		// resolved by the worker once that step has produced output.
		cfg.Prerequisites = append(cfg.Prerequisites, name)
	}

	for _, name := range step.OptionalInputs {
		if _, alreadyBound := cfg.Inputs[name]; alreadyBound {
			continue
		}
		if value, ok := workflowInputs[name]; ok {
			cfg.Inputs[name] = value
			continue
		}
		cfg.Inputs[name] = ""
	}

	return cfg
}
