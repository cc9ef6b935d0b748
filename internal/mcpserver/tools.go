package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	getWorkflows := mcp.NewTool("get_workflows",
		mcp.WithDescription("List every discovered job and its workflows, along with any jobs that failed to load."),
	)
	s.mcp.AddTool(getWorkflows, s.handleGetWorkflows)

	startWorkflow := mcp.NewTool("start_workflow",
		mcp.WithDescription("Start a workflow within a job and begin its first step."),
		mcp.WithString("goal", mcp.Required(), mcp.Description("The user's goal for this workflow run, in their own words")),
		mcp.WithString("job_name", mcp.Required(), mcp.Description("Name of the job to run")),
		mcp.WithString("workflow_name", mcp.Required(), mcp.Description("Name of the workflow within the job; ignored if the job has exactly one workflow")),
		mcp.WithString("instance_id", mcp.Description("Optional caller-supplied identifier for this run, echoed back in get-stack output")),
	)
	s.mcp.AddTool(startWorkflow, s.handleStartWorkflow)

	finishedStep := mcp.NewTool("finished_step",
		mcp.WithDescription("Submit a completed step's outputs for validation, review, and advancement."),
		mcp.WithObject("outputs", mcp.Required(), mcp.Description("Map of output name to filepath (or array of filepaths for files outputs)")),
		mcp.WithString("notes", mcp.Description("Optional free-text notes about the step's execution")),
		mcp.WithString("quality_review_override_reason", mcp.Description("If supplied, skips the quality gate for this step")),
		mcp.WithString("session_id", mcp.Description("Session to act on; defaults to the top of the stack")),
	)
	s.mcp.AddTool(finishedStep, s.handleFinishedStep)

	abortWorkflow := mcp.NewTool("abort_workflow",
		mcp.WithDescription("Abort the active workflow (or a named session) and resume whatever is beneath it on the stack."),
		mcp.WithString("explanation", mcp.Required(), mcp.Description("Why the workflow is being aborted")),
		mcp.WithString("session_id", mcp.Description("Session to abort; defaults to the top of the stack")),
	)
	s.mcp.AddTool(abortWorkflow, s.handleAbortWorkflow)
}
