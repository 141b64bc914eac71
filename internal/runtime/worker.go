package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"taskloom/internal/db/repositories"
	"taskloom/internal/logging"
	"taskloom/internal/notifications"
	"taskloom/internal/promptexec"
	"taskloom/internal/workflows"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var uuidRE = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// Worker executes one Task through its four phases: resolve prerequisites,
// normalize task-id references in the inputs, run the step body, and emit
// the result (persist + notify).
type Worker struct {
	Engine     Engine
	Registry   *workflows.Registry
	PromptExec *promptexec.Executor
	Notifier   *notifications.Notifier
	TaskStore  *repositories.TaskRecordRepository
	Tracer     trace.Tracer

	Opts WorkerOptions
}

func NewWorker(engine Engine, registry *workflows.Registry, prompt *promptexec.Executor, notifier *notifications.Notifier, taskStore *repositories.TaskRecordRepository) *Worker {
	return &Worker{
		Engine:     engine,
		Registry:   registry,
		PromptExec: prompt,
		Notifier:   notifier,
		TaskStore:  taskStore,
		Opts:       DefaultWorkerOptions(),
	}
}

// Run executes task to completion, recording and notifying its outcome. The
// returned error is ErrPrerequisiteFailed (never retried) or ErrStepFailed
// (retried up to the consumer's MaxDeliver) — callers branch on errors.Is.
//
// attempt is this delivery's 1-based count and maxDeliver the consumer's
// redelivery ceiling. A retryable ErrStepFailed is only recorded as a
// terminal failure (result store + task record + webhook) once attempt
// reaches maxDeliver; earlier attempts are logged and left for redelivery so
// a sibling step polling this one as a prerequisite doesn't observe a
// failure that retries may still turn into a success.
func (w *Worker) Run(ctx context.Context, task Task, attempt, maxDeliver int) error {
	ctx, cancel := context.WithTimeout(ctx, w.Opts.HardDeadline)
	defer cancel()

	// Mirrors the original Celery task's soft/hard time limits: the soft
	// deadline only warns (giving the step a chance to finish on its own),
	// the hard deadline above actually cancels ctx.
	if w.Opts.SoftDeadline > 0 && w.Opts.SoftDeadline < w.Opts.HardDeadline {
		softTimer := time.AfterFunc(w.Opts.SoftDeadline, func() {
			logging.Warn("runtime: task %s exceeded its soft deadline (%s)", task.TaskID, w.Opts.SoftDeadline)
		})
		defer softTimer.Stop()
	}

	if w.Tracer != nil {
		var span trace.Span
		ctx, span = w.Tracer.Start(ctx, "workflows.step.execute", trace.WithAttributes(
			attribute.String("workflow.id", task.WorkflowID),
			attribute.String("step.name", task.Step.Step),
			attribute.String("step.pipeline_key", task.Step.PipelineKey),
		))
		defer span.End()
	}

	inputs := task.Step.Inputs
	if inputs == nil {
		inputs = map[string]interface{}{}
	}

	finalAttempt := attempt >= maxDeliver

	// Phase 1: prerequisite resolution. A failed prerequisite is always
	// terminal: it already failed terminally upstream, so retrying this step
	// cannot help. A prerequisite wait timeout is retryable like a step error.
	if err := w.resolvePrerequisites(ctx, task, inputs); err != nil {
		w.emitFailure(ctx, task, err, finalAttempt || errors.Is(err, ErrPrerequisiteFailed))
		return err
	}

	// Phase 2: UUID-list task-reference normalization.
	if err := w.resolveTaskRefs(ctx, inputs); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrStepFailed, err)
		w.emitFailure(ctx, task, wrapped, finalAttempt)
		return wrapped
	}

	// Phase 3: step execution.
	response, err := w.execute(ctx, task.Step, inputs)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrStepFailed, err)
		w.emitFailure(ctx, task, wrapped, finalAttempt)
		return wrapped
	}

	// Phase 4: emission.
	w.emitSuccess(ctx, task, response)
	return nil
}

func (w *Worker) resolvePrerequisites(ctx context.Context, task Task, inputs map[string]interface{}) error {
	for _, prereq := range task.Step.Prerequisites {
		if _, already := inputs[prereq]; already {
			continue
		}
		if value, ok := task.WorkflowOutput[prereq]; ok {
			// Pre-supplied by the caller (e.g. a resumed run): the supplied
			// value wins over anything the queue would otherwise produce.
			inputs[prereq] = value
			continue
		}

		priorTaskID, ok := task.PriorTaskIDs[prereq]
		if !ok {
			// Prerequisite was dropped by the planner; leave it unbound.
			continue
		}

		result, err := w.waitForTask(ctx, priorTaskID, w.Opts.PrerequisiteCeiling)
		if err != nil {
			if errors.Is(err, ErrPrerequisiteTimeout) {
				return fmt.Errorf("%w: %s: %v", ErrStepFailed, prereq, err)
			}
			return fmt.Errorf("%w: %s: %v", ErrPrerequisiteFailed, prereq, err)
		}
		if !result.Successful {
			return fmt.Errorf("%w: %s: %s", ErrPrerequisiteFailed, prereq, result.Err)
		}

		inputs[prereq] = extractResponseValue(result.Result)
	}
	return nil
}

// waitForTask polls the engine's result store for taskID at
// PrerequisiteCheckInterval until it is ready or ceiling elapses.
func (w *Worker) waitForTask(ctx context.Context, taskID string, ceiling time.Duration) (TaskState, error) {
	deadline := time.Now().Add(ceiling)
	interval := w.Opts.PrerequisiteCheckInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := w.Engine.Result(ctx, taskID)
		if err != nil {
			return TaskState{}, err
		}
		if state.Ready {
			return state, nil
		}
		if time.Now().After(deadline) {
			return TaskState{}, ErrPrerequisiteTimeout
		}

		select {
		case <-ctx.Done():
			return TaskState{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// resolveTaskRefs implements the original gateway's input-normalization
// pass: a list of strings whose first element looks like a UUID is treated
// as a list of task ids, each waited on and concatenated into one string.
func (w *Worker) resolveTaskRefs(ctx context.Context, inputs map[string]interface{}) error {
	for key, value := range inputs {
		items, ok := value.([]interface{})
		if !ok || len(items) == 0 {
			continue
		}
		first, ok := items[0].(string)
		if !ok || !uuidRE.MatchString(first) {
			continue
		}

		var concatenated string
		for _, item := range items {
			taskID, ok := item.(string)
			if !ok {
				continue
			}
			state, err := w.waitForTask(ctx, taskID, 30*time.Minute)
			if err != nil {
				return fmt.Errorf("resolving task ref %s: %w", taskID, err)
			}
			if !state.Successful {
				return fmt.Errorf("referenced task %s failed: %s", taskID, state.Err)
			}
			concatenated += fmt.Sprintf("%v", extractResponseValue(state.Result))
		}
		inputs[key] = concatenated
	}
	return nil
}

func (w *Worker) execute(ctx context.Context, step workflows.StepConfig, inputs map[string]interface{}) (interface{}, error) {
	if w.Registry != nil && w.Registry.Has(step.PipelineKey) {
		op, err := w.Registry.Get(step.PipelineKey)
		if err != nil {
			return nil, err
		}
		return op.Execute(ctx, inputs)
	}

	pipelineKey := step.PipelineKey
	if pipelineKey == "" {
		pipelineKey = step.Step
	}

	return w.PromptExec.Execute(ctx, pipelineKey, inputs, step.DomainID, step.JSONObject)
}

func (w *Worker) emitSuccess(ctx context.Context, task Task, response interface{}) {
	result := workflows.TaskResult{
		WorkflowID:      task.WorkflowID,
		Action:          task.Step.Action,
		Response:        response,
		Version:         "new_version",
		WebhookResponse: task.Step.SectionID != "",
	}

	data, err := json.Marshal(result)
	if err != nil {
		logging.Error("runtime: marshaling result for task %s: %v", task.TaskID, err)
		return
	}
	if err := w.Engine.SetResult(ctx, task.TaskID, data, nil); err != nil {
		logging.Error("runtime: recording result for task %s: %v", task.TaskID, err)
	}
	if w.TaskStore != nil {
		if err := w.TaskStore.MarkSuccess(ctx, task.TaskID, data); err != nil {
			logging.Error("runtime: persisting task record for %s: %v", task.TaskID, err)
		}
	}

	if result.WebhookResponse && w.Notifier != nil {
		inputs := task.Step.Inputs
		resultText, references := deriveWebhookFields(response)
		w.Notifier.NotifySuccess(ctx, task.WorkflowID, task.TaskID, notifications.SuccessPayload{
			Action:     task.Step.Action,
			ResultText: resultText,
			References: references,
			ClientID:   stringInput(inputs, "client_id"),
			ProjectID:  stringInput(inputs, "project_id"),
			SessionID:  stringInput(inputs, "session_id"),
			InputText:  inputs["input_text"],
			Version:    result.Version,
		})
	}
}

// deriveWebhookFields matches the original notifier's on_success unwrapping:
// result_text comes from response.llm_output when response is a JSON object
// carrying that key, otherwise the whole response; references comes from
// response.references the same way. A response may arrive as a Go map (from
// a Registry operation) or as raw JSON text (from the prompt executor), so
// both shapes are normalized to a map before the key lookup.
func deriveWebhookFields(response interface{}) (resultText interface{}, references interface{}) {
	resultText, references = response, response

	m, ok := response.(map[string]interface{})
	if !ok {
		if text, ok := response.(string); ok {
			_ = json.Unmarshal([]byte(text), &m)
		}
	}
	if m == nil {
		return resultText, references
	}

	if v, ok := m["llm_output"]; ok {
		resultText = v
	}
	if v, ok := m["references"]; ok {
		references = v
	}
	return resultText, references
}

// emitFailure records stepErr as the task's outcome. When terminal is false
// the failure is logged only: the result store and task record are left as
// they were so a polling prerequisite keeps waiting, and no webhook fires,
// since the consumer will redeliver this task for another attempt.
func (w *Worker) emitFailure(ctx context.Context, task Task, stepErr error, terminal bool) {
	if !terminal {
		logging.Warn("runtime: task %s failed, retry pending: %v", task.TaskID, stepErr)
		return
	}

	errMsg := stepErr.Error()

	if err := w.Engine.SetResult(ctx, task.TaskID, nil, stepErr); err != nil {
		logging.Error("runtime: recording failure for task %s: %v", task.TaskID, err)
	}
	if w.TaskStore != nil {
		if err := w.TaskStore.MarkFailure(ctx, task.TaskID, errMsg); err != nil {
			logging.Error("runtime: persisting failure for %s: %v", task.TaskID, err)
		}
	}

	if task.Step.SectionID != "" && w.Notifier != nil {
		inputs := task.Step.Inputs
		w.Notifier.NotifyFailure(ctx, task.WorkflowID, task.TaskID, notifications.FailurePayload{
			Action:     task.Step.Action,
			Result:     errMsg,
			ResultText: errMsg,
			ClientID:   stringInput(inputs, "client_id"),
			ProjectID:  stringInput(inputs, "project_id"),
			SessionID:  stringInput(inputs, "session_id"),
			InputText:  inputs["input_text"],
		})
	}
}

func stringInput(inputs map[string]interface{}, key string) string {
	if v, ok := inputs[key].(string); ok {
		return v
	}
	return ""
}

// extractResponseValue unwraps a TaskResult envelope's "response" field when
// raw looks like one, otherwise returns the raw value as-is. This matches
// the original engine's "if isinstance(result, dict) and 'response' in
// result" unwrapping before handing a prerequisite's output to the next step.
func extractResponseValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if response, ok := envelope["response"]; ok {
			return response
		}
		return envelope
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err == nil {
		return value
	}
	return string(raw)
}
