package runtime

import "taskloom/internal/workflows"

// Task is the message published onto a queue subject: everything a Worker
// needs to run one step without consulting any other process's memory.
// PriorTaskIDs carries every step-name -> task-id mapping known at the time
// this step was dispatched (every step submitted before it, which includes
// every submitted step of an earlier level), so the worker
// can resolve its own prerequisites purely from this message plus the
// Engine's result store.
type Task struct {
	WorkflowID     string                 `json:"workflow_id"`
	TaskID         string                 `json:"task_id"`
	Step           workflows.StepConfig   `json:"step"`
	PriorTaskIDs   map[string]string      `json:"prior_task_ids"`
	WorkflowOutput map[string]interface{} `json:"workflow_output,omitempty"`
}
