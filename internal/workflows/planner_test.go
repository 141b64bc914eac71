package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanner_Plan_Levels(t *testing.T) {
	steps := []StepDefinition{
		{Step: "fetch", Inputs: []string{"url"}},
		{Step: "summarize", Inputs: []string{"fetch"}},
		{Step: "notify", Inputs: []string{"summarize", "client_id"}},
	}

	p := NewPlanner()
	levels, dropped := p.Plan(map[string]interface{}{"url": "http://x", "client_id": "c1"}, steps)

	assert.Empty(t, dropped)
	assert.Equal(t, [][]string{{"fetch"}, {"summarize"}, {"notify"}}, levels)
}

func TestPlanner_Plan_ParallelSameLevel(t *testing.T) {
	steps := []StepDefinition{
		{Step: "a", Inputs: []string{"seed"}},
		{Step: "b", Inputs: []string{"seed"}},
		{Step: "c", Inputs: []string{"a", "b"}},
	}

	p := NewPlanner()
	levels, dropped := p.Plan(map[string]interface{}{"seed": "v"}, steps)

	assert.Empty(t, dropped)
	assert.Len(t, levels, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, levels[0])
	assert.Equal(t, []string{"c"}, levels[1])
}

func TestPlanner_Plan_DropsUnsatisfiableSteps(t *testing.T) {
	steps := []StepDefinition{
		{Step: "orphan", Inputs: []string{"missing_dependency"}},
		{Step: "ok", Inputs: []string{"seed"}},
	}

	p := NewPlanner()
	levels, dropped := p.Plan(map[string]interface{}{"seed": "v"}, steps)

	assert.Equal(t, []string{"orphan"}, dropped)
	assert.Equal(t, [][]string{{"ok"}}, levels)
}

func TestPlanner_Plan_EmptySteps(t *testing.T) {
	p := NewPlanner()
	levels, dropped := p.Plan(map[string]interface{}{}, nil)

	assert.Nil(t, levels)
	assert.Nil(t, dropped)
}
