// Package jobs defines the typed data model for deepwork job definitions:
// jobs, steps, workflows, reviews, hooks and their output/input specs.
package jobs

// JobDefinition is the parsed, validated contents of a job.yml file.
type JobDefinition struct {
	Name            string            `json:"name" yaml:"name"`
	Version         string            `json:"version" yaml:"version"`
	Summary         string            `json:"summary" yaml:"summary"`
	CommonJobInfo   string            `json:"common_job_info_provided_to_all_steps_at_runtime" yaml:"common_job_info_provided_to_all_steps_at_runtime"`
	Steps           []Step            `json:"steps" yaml:"steps"`
	Workflows       []Workflow        `json:"workflows,omitempty" yaml:"workflows,omitempty"`

	// Dir is the resolved directory this job was loaded from. Not part of
	// job.yml; populated by the loader.
	Dir string `json:"-" yaml:"-"`
}

// Step is a single unit of work within a job.
type Step struct {
	ID               string              `json:"id" yaml:"id"`
	Name             string              `json:"name" yaml:"name"`
	Description      string              `json:"description,omitempty" yaml:"description,omitempty"`
	InstructionsFile string              `json:"instructions_file" yaml:"instructions_file"`
	Outputs          map[string]OutputSpec `json:"outputs" yaml:"outputs"`
	Reviews          []Review            `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Inputs           []StepInput         `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Dependencies     []string            `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Hooks            map[string][]HookAction `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	Agent            string              `json:"agent,omitempty" yaml:"agent,omitempty"`
}

// OutputKind distinguishes a single-file output from a multi-file output.
type OutputKind string

const (
	OutputKindFile  OutputKind = "file"
	OutputKindFiles OutputKind = "files"
)

// OutputSpec describes one declared output of a step.
type OutputSpec struct {
	Type        OutputKind `json:"type" yaml:"type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
}

// SyntaxForFinishedStepTool returns the submission-syntax hint the agent
// sees in the start_workflow/finished_step response.
func (o OutputSpec) SyntaxForFinishedStepTool() string {
	if o.Type == OutputKindFiles {
		return "array of filepaths for all individual files"
	}
	return "filepath"
}

// StepInput is a discriminated union: either a user-parameter input (Name
// non-empty) or a file input referencing a prior step's output (File +
// FromStep non-empty).
type StepInput struct {
	// User-parameter input fields.
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// File input fields.
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	FromStep string `json:"from_step,omitempty" yaml:"from_step,omitempty"`
}

// IsFileInput reports whether this input references a prior step's output.
func (s StepInput) IsFileInput() bool {
	return s.File != "" || s.FromStep != ""
}

// Review is a rubric evaluated against a step's outputs.
type Review struct {
	RunEach                  string            `json:"run_each" yaml:"run_each"`
	QualityCriteria          map[string]string `json:"quality_criteria" yaml:"quality_criteria"`
	AdditionalReviewGuidance string            `json:"additional_review_guidance,omitempty" yaml:"additional_review_guidance,omitempty"`
}

// RunsOnWholeStep reports whether this review spans every submitted output
// file rather than one declared output.
func (r Review) RunsOnWholeStep() bool {
	return r.RunEach == "step"
}

// Workflow is an ordered sequence of step ids (with optional concurrent
// groups) drawn from a job's steps.
type Workflow struct {
	Name    string          `json:"name" yaml:"name"`
	Summary string          `json:"summary,omitempty" yaml:"summary,omitempty"`
	Steps   []WorkflowEntry `json:"steps" yaml:"steps"`
}

// WorkflowEntry is either a single sequential step id or a concurrent group
// of step ids, modeled as a slice: len==1 is sequential, len>1 is concurrent.
type WorkflowEntry struct {
	StepIDs []string
}

// IsConcurrentGroup reports whether this entry names more than one step.
func (e WorkflowEntry) IsConcurrentGroup() bool {
	return len(e.StepIDs) > 1
}

// Primary returns the first (or only) step id of the entry.
func (e WorkflowEntry) Primary() string {
	if len(e.StepIDs) == 0 {
		return ""
	}
	return e.StepIDs[0]
}

// HookLifecycleEvent names a point at which hook actions run.
type HookLifecycleEvent string

const (
	HookAfterAgent  HookLifecycleEvent = "after_agent"
	HookBeforeTool  HookLifecycleEvent = "before_tool"
	HookBeforePrompt HookLifecycleEvent = "before_prompt"
)

// HookAction is exactly one of Prompt, PromptFile or Script.
type HookAction struct {
	Prompt     string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	PromptFile string `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`
	Script     string `json:"script,omitempty" yaml:"script,omitempty"`
}
