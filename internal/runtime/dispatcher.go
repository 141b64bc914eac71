package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"taskloom/internal/db/repositories"
	"taskloom/internal/logging"
	"taskloom/internal/workflows"
)

// Dispatcher turns a template into a running workflow: it plans the step
// levels, builds each step's StepConfig, and submits every step in a level
// to the queue without waiting for the level to finish — steps within a
// level can run concurrently since the planner already guaranteed their
// inputs are available.
type Dispatcher struct {
	Engine    Engine
	Planner   *workflows.Planner
	TaskStore *repositories.TaskRecordRepository
}

func NewDispatcher(engine Engine, taskStore *repositories.TaskRecordRepository) *Dispatcher {
	return &Dispatcher{
		Engine:    engine,
		Planner:   workflows.NewPlanner(),
		TaskStore: taskStore,
	}
}

// Dispatch submits every step of tmpl for workflowID, returning one
// TaskRecord per dispatched step (steps the planner could not resolve are
// dropped, per Planner.Plan, logged as a warning, and excluded from the
// result).
//
// priorOutputs is the workflow's pre-supplied outputs, keyed by step name
// (e.g. a caller resuming a run that already computed some steps). A step
// present there is never submitted — the idempotency shortcut — and its
// value is handed to every other dispatched step as task.WorkflowOutput so
// a sibling can pick it up as a prerequisite without waiting on the queue.
func (d *Dispatcher) Dispatch(ctx context.Context, workflowID string, tmpl *workflows.Template, workflowInput, priorOutputs map[string]interface{}) ([]workflows.TaskRecord, error) {
	defaults := tmpl.Defaults
	steps := tmpl.Steps

	initialInputs := make(map[string]interface{}, len(workflowInput)+len(defaults))
	for k, v := range workflowInput {
		initialInputs[k] = v
	}
	for k, v := range defaults {
		initialInputs[k] = v
	}

	projectName, _ := defaults["template_id"].(string)
	promptConfigSrc, _ := defaults["prompt_config_src"].(string)
	database, _ := defaults["database"].(string)
	domainID, _ := workflowInput["domain_id"].(string)

	levels, dropped := d.Planner.Plan(initialInputs, steps)
	if len(dropped) > 0 {
		logging.Warn("dispatcher: workflow %s dropped unresolved steps: %v", workflowID, dropped)
	}

	stepByName := make(map[string]workflows.StepDefinition, len(steps))
	for _, s := range steps {
		stepByName[s.Step] = s
	}

	priorTaskIDs := make(map[string]string)
	var records []workflows.TaskRecord

	for _, level := range levels {
		for _, stepName := range level {
			stepDef, ok := stepByName[stepName]
			if !ok {
				continue
			}

			cfg := workflows.BuildStepConfig(stepDef, initialInputs, projectName, promptConfigSrc, database, domainID)

			if _, already := priorOutputs[stepName]; already {
				logging.Info("dispatcher: workflow %s step %s already has a pre-supplied output, skipping submission", workflowID, stepName)
				records = append(records, workflows.TaskRecord{
					StepName: stepName, PipelineKey: cfg.PipelineKey, Queue: cfg.Queue, Status: "SUCCESS",
				})
				continue
			}

			taskID := workflows.GenerateStepID(workflows.NewStepContext(workflowID, stepName))

			task := Task{
				WorkflowID:     workflowID,
				TaskID:         taskID,
				Step:           cfg,
				PriorTaskIDs:   copyMap(priorTaskIDs),
				WorkflowOutput: priorOutputs,
			}

			payload, err := json.Marshal(task)
			if err != nil {
				return records, fmt.Errorf("dispatcher: marshaling task %s: %w", stepName, err)
			}

			if d.TaskStore != nil {
				_ = d.TaskStore.Create(ctx, repositories.TaskRecord{
					TaskID: taskID, WorkflowID: workflowID, StepName: stepName,
					PipelineKey: cfg.PipelineKey, Queue: cfg.Queue, Status: "PENDING",
				})
			}

			if err := d.Engine.Submit(ctx, cfg.Queue, taskID, payload); err != nil {
				return records, fmt.Errorf("dispatcher: submitting task %s: %w", stepName, err)
			}

			priorTaskIDs[stepName] = taskID
			records = append(records, workflows.TaskRecord{
				StepName: stepName, PipelineKey: cfg.PipelineKey, TaskID: taskID, Queue: cfg.Queue, Status: "PENDING",
			})
		}
	}

	return records, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
