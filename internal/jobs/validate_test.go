package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

func baseStep(id string) jobs.Step {
	return jobs.Step{
		ID:               id,
		Name:             id,
		InstructionsFile: "instructions/" + id + ".md",
		Outputs: map[string]jobs.OutputSpec{
			"result": {Type: jobs.OutputKindFile, Required: true},
		},
	}
}

func TestValidateSemantics_DetectsCycle(t *testing.T) {
	a := baseStep("a")
	a.Dependencies = []string{"b"}
	b := baseStep("b")
	b.Dependencies = []string{"a"}

	def := &jobs.JobDefinition{Steps: []jobs.Step{a, b}}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateSemantics_AcceptsAcyclicChain(t *testing.T) {
	a := baseStep("a")
	b := baseStep("b")
	b.Dependencies = []string{"a"}
	c := baseStep("c")
	c.Dependencies = []string{"b"}

	def := &jobs.JobDefinition{Steps: []jobs.Step{a, b, c}}
	assert.NoError(t, validateSemantics(def))
}

func TestValidateSemantics_FileInputMustBeInDependencies(t *testing.T) {
	a := baseStep("a")
	b := baseStep("b")
	b.Inputs = []jobs.StepInput{{File: "result", FromStep: "a"}}
	// b.Dependencies deliberately omits "a"

	def := &jobs.JobDefinition{Steps: []jobs.Step{a, b}}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies")
}

func TestValidateSemantics_FileInputFromUnknownStep(t *testing.T) {
	b := baseStep("b")
	b.Dependencies = []string{"ghost"}
	b.Inputs = []jobs.StepInput{{File: "result", FromStep: "ghost"}}

	def := &jobs.JobDefinition{Steps: []jobs.Step{b}}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidateSemantics_ReviewRunEachMustMatchOutput(t *testing.T) {
	a := baseStep("a")
	a.Reviews = []jobs.Review{{RunEach: "nonexistent", QualityCriteria: map[string]string{"x": "y?"}}}

	def := &jobs.JobDefinition{Steps: []jobs.Step{a}}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match a declared output")
}

func TestValidateSemantics_ReviewRunEachStepAlwaysValid(t *testing.T) {
	a := baseStep("a")
	a.Reviews = []jobs.Review{{RunEach: "step", QualityCriteria: map[string]string{"x": "y?"}}}

	def := &jobs.JobDefinition{Steps: []jobs.Step{a}}
	assert.NoError(t, validateSemantics(def))
}

func TestValidateSemantics_DuplicateStepID(t *testing.T) {
	def := &jobs.JobDefinition{Steps: []jobs.Step{baseStep("a"), baseStep("a")}}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestValidateSemantics_WorkflowReferencesUnknownStep(t *testing.T) {
	def := &jobs.JobDefinition{
		Steps: []jobs.Step{baseStep("a")},
		Workflows: []jobs.Workflow{
			{Name: "run", Steps: []jobs.WorkflowEntry{{StepIDs: []string{"ghost"}}}},
		},
	}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidateSemantics_WorkflowDuplicateStepReference(t *testing.T) {
	def := &jobs.JobDefinition{
		Steps: []jobs.Step{baseStep("a")},
		Workflows: []jobs.Workflow{
			{Name: "run", Steps: []jobs.WorkflowEntry{{StepIDs: []string{"a"}}, {StepIDs: []string{"a"}}}},
		},
	}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestValidateSemantics_DuplicateWorkflowName(t *testing.T) {
	def := &jobs.JobDefinition{
		Steps: []jobs.Step{baseStep("a")},
		Workflows: []jobs.Workflow{
			{Name: "run", Steps: []jobs.WorkflowEntry{{StepIDs: []string{"a"}}}},
			{Name: "run", Steps: []jobs.WorkflowEntry{{StepIDs: []string{"a"}}}},
		},
	}
	err := validateSemantics(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate workflow name")
}

func TestValidateHookAction_ExactlyOneField(t *testing.T) {
	assert.NoError(t, validateHookAction(jobs.HookAction{Prompt: "do it"}))
	assert.Error(t, validateHookAction(jobs.HookAction{}))
	assert.Error(t, validateHookAction(jobs.HookAction{Prompt: "a", Script: "b.sh"}))
}

func TestOrphanedStepWarnings(t *testing.T) {
	a := baseStep("a")
	b := baseStep("b")
	def := &jobs.JobDefinition{
		Steps: []jobs.Step{a, b},
		Workflows: []jobs.Workflow{
			{Name: "run", Steps: []jobs.WorkflowEntry{{StepIDs: []string{"a"}}}},
		},
	}
	warnings := orphanedStepWarnings(def)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "b")
}
