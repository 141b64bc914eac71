package runtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskloom/internal/workflows"
)

type recordingEngine struct {
	*fakeEngine
	submitted map[string][]byte
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{fakeEngine: newFakeEngine(), submitted: make(map[string][]byte)}
}

func (r *recordingEngine) Submit(ctx context.Context, queue, taskID string, task json.RawMessage) error {
	r.submitted[taskID] = task
	return r.fakeEngine.Submit(ctx, queue, taskID, task)
}

func TestDispatcher_Dispatch_OneTaskPerStep(t *testing.T) {
	engine := newRecordingEngine()
	d := NewDispatcher(engine, nil)

	tmpl := &workflows.Template{
		Defaults: map[string]interface{}{"template_id": "demo"},
		Steps: []workflows.StepDefinition{
			{Step: "fetch", PipelineKey: "http-fetch", Inputs: []string{"url"}},
			{Step: "summarize", PipelineKey: "summarize-doc", Inputs: []string{"fetch"}},
		},
	}

	records, err := d.Dispatch(context.Background(), "wf-1", tmpl, map[string]interface{}{"url": "http://x"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "fetch", records[0].StepName)
	assert.Equal(t, "summarize", records[1].StepName)
	assert.NotEmpty(t, records[0].TaskID)
	assert.NotEqual(t, records[0].TaskID, records[1].TaskID)

	assert.Len(t, engine.submitted, 2)

	var summarizeTask Task
	require.NoError(t, json.Unmarshal(engine.submitted[records[1].TaskID], &summarizeTask))
	assert.Equal(t, records[0].TaskID, summarizeTask.PriorTaskIDs["fetch"])
}

func TestDispatcher_Dispatch_IsDeterministicPerWorkflowAndStep(t *testing.T) {
	engine := newRecordingEngine()
	d := NewDispatcher(engine, nil)

	tmpl := &workflows.Template{
		Steps: []workflows.StepDefinition{{Step: "fetch", Inputs: []string{"url"}}},
	}

	recordsA, err := d.Dispatch(context.Background(), "wf-1", tmpl, map[string]interface{}{"url": "http://x"}, nil)
	require.NoError(t, err)

	recordsB, err := d.Dispatch(context.Background(), "wf-1", tmpl, map[string]interface{}{"url": "http://x"}, nil)
	require.NoError(t, err)

	assert.Equal(t, recordsA[0].TaskID, recordsB[0].TaskID)
}

func TestDispatcher_Dispatch_SkipsStepsWithPreSuppliedOutputs(t *testing.T) {
	engine := newRecordingEngine()
	d := NewDispatcher(engine, nil)

	tmpl := &workflows.Template{
		Steps: []workflows.StepDefinition{
			{Step: "fetch", PipelineKey: "http-fetch", Inputs: []string{"url"}},
			{Step: "summarize", PipelineKey: "summarize-doc", Inputs: []string{"fetch"}},
		},
	}

	priorOutputs := map[string]interface{}{"fetch": "already fetched"}
	records, err := d.Dispatch(context.Background(), "wf-1", tmpl,
		map[string]interface{}{"url": "http://x"}, priorOutputs)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "fetch", records[0].StepName)
	assert.Empty(t, records[0].TaskID, "a pre-supplied step must not be submitted")
	assert.Equal(t, "SUCCESS", records[0].Status)

	assert.Len(t, engine.submitted, 1, "only the non-pre-supplied step is submitted")

	var summarizeTask Task
	require.NoError(t, json.Unmarshal(engine.submitted[records[1].TaskID], &summarizeTask))
	assert.Equal(t, "already fetched", summarizeTask.WorkflowOutput["fetch"])
}

func TestDispatcher_Dispatch_DropsUnresolvableSteps(t *testing.T) {
	engine := newRecordingEngine()
	d := NewDispatcher(engine, nil)

	tmpl := &workflows.Template{
		Steps: []workflows.StepDefinition{
			{Step: "orphan", Inputs: []string{"never_bound"}},
			{Step: "fetch", Inputs: []string{"url"}},
		},
	}

	records, err := d.Dispatch(context.Background(), "wf-1", tmpl, map[string]interface{}{"url": "http://x"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fetch", records[0].StepName)
}
