// Package mcpserver exposes the deepwork tool surface (get_workflows,
// start_workflow, finished_step, abort_workflow) over the Model Context
// Protocol, coordinating the job loader, session store and quality gate.
package mcpserver

import (
	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

// StepStatus is the tagged outcome finished_step reports back to the agent.
type StepStatus string

const (
	StatusNeedsWork        StepStatus = "needs_work"
	StatusNextStep         StepStatus = "next_step"
	StatusWorkflowComplete StepStatus = "workflow_complete"
)

// OutputDescriptor describes one expected output in a begin_step response.
type OutputDescriptor struct {
	Name                     string `json:"name"`
	Type                     string `json:"type"`
	Description              string `json:"description"`
	Required                 bool   `json:"required"`
	SyntaxForFinishedStepTool string `json:"syntax_for_finished_step_tool"`
}

// BeginStep is the envelope describing the step an agent should now work
// on, returned by both start_workflow and finished_step (on next_step).
type BeginStep struct {
	SessionID            string             `json:"session_id"`
	StepID               string             `json:"step_id"`
	JobDir               string             `json:"job_dir"`
	StepExpectedOutputs  []OutputDescriptor `json:"step_expected_outputs"`
	StepReviews          interface{}        `json:"step_reviews"`
	StepInstructions     string             `json:"step_instructions"`
	CommonJobInfo        string             `json:"common_job_info"`
	ConcurrentStepsNote  string             `json:"concurrent_steps_note,omitempty"`
}

// JobSummary is one entry of get_workflows' job listing.
type JobSummary struct {
	Name      string             `json:"name"`
	Summary   string             `json:"summary"`
	Workflows []WorkflowSummary  `json:"workflows"`
}

// WorkflowSummary is one workflow entry within a JobSummary.
type WorkflowSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// JobErrorEntry is one per-job load failure.
type JobErrorEntry struct {
	JobName string `json:"job_name"`
	JobDir  string `json:"job_dir"`
	Error   string `json:"error"`
}

// GetWorkflowsResponse is get_workflows' full response.
type GetWorkflowsResponse struct {
	Jobs   []JobSummary    `json:"jobs"`
	Errors []JobErrorEntry `json:"errors"`
}

// StartWorkflowResponse is start_workflow's response.
type StartWorkflowResponse struct {
	BeginStep BeginStep                 `json:"begin_step"`
	Stack     []sessionpkg.StackEntry   `json:"stack"`
}

// FinishedStepResponse is finished_step's response; fields are populated
// according to Status.
type FinishedStepResponse struct {
	Status       StepStatus               `json:"status"`
	Feedback     string                   `json:"feedback,omitempty"`
	Instructions string                   `json:"instructions,omitempty"`
	BeginStep    *BeginStep               `json:"begin_step,omitempty"`
	AllOutputs   map[string]interface{}   `json:"all_outputs,omitempty"`
	Stack        []sessionpkg.StackEntry  `json:"stack"`
}

// AbortWorkflowResponse is abort_workflow's response.
type AbortWorkflowResponse struct {
	AbortedWorkflow string                  `json:"aborted_workflow"`
	AbortedStep     string                  `json:"aborted_step"`
	Explanation     string                  `json:"explanation"`
	Stack           []sessionpkg.StackEntry `json:"stack"`
	ResumedWorkflow *string                 `json:"resumed_workflow"`
	ResumedStep     *string                 `json:"resumed_step"`
}
