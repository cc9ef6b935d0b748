package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
	"github.com/deepwork-ai/deepwork/internal/logging"
	"github.com/deepwork-ai/deepwork/internal/qualitygate"
	"github.com/deepwork-ai/deepwork/internal/validate"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func objectParam(request mcp.CallToolRequest, key string, required bool) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		if required {
			return nil, deeperr.Tool("missing required object parameter %q", key)
		}
		return nil, nil
	}
	raw, ok := args[key]
	if !ok {
		if required {
			return nil, deeperr.Tool("missing required object parameter %q", key)
		}
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, deeperr.Tool("parameter %q must be an object", key)
	}
	return obj, nil
}

// handleGetWorkflows lists every discovered job and workflow.
func (s *Server) handleGetWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.loader().LoadAll()

	resp := GetWorkflowsResponse{Jobs: []JobSummary{}, Errors: []JobErrorEntry{}}
	for _, def := range result.Jobs {
		summary := JobSummary{Name: def.Name, Summary: def.Summary, Workflows: []WorkflowSummary{}}
		for _, wf := range def.Workflows {
			summary.Workflows = append(summary.Workflows, WorkflowSummary{Name: wf.Name, Summary: wf.Summary})
		}
		resp.Jobs = append(resp.Jobs, summary)
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, JobErrorEntry{JobName: e.JobName, JobDir: e.JobDir, Error: e.Error})
	}

	return jsonResult(resp)
}

// handleStartWorkflow starts a new session on the named job/workflow and
// returns its first step.
func (s *Server) handleStartWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sessionID string
	var toolErr error
	defer func() { logging.ToolCall("start_workflow", sessionID, toolErr) }()

	goal, err := request.RequireString("goal")
	if err != nil {
		toolErr = deeperr.Tool("missing required parameter 'goal': %v", err)
		return errResult(toolErr)
	}
	jobName, err := request.RequireString("job_name")
	if err != nil {
		toolErr = deeperr.Tool("missing required parameter 'job_name': %v", err)
		return errResult(toolErr)
	}
	workflowName, err := request.RequireString("workflow_name")
	if err != nil {
		toolErr = deeperr.Tool("missing required parameter 'workflow_name': %v", err)
		return errResult(toolErr)
	}
	instanceID := request.GetString("instance_id", "")

	result := s.loader().LoadAll()
	def := findJob(result.Jobs, jobName)
	if def == nil {
		toolErr = deeperr.Tool("unknown job %q", jobName)
		return errResult(toolErr)
	}
	wf, err := resolveWorkflow(def, workflowName)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	if len(wf.Steps) == 0 {
		toolErr = deeperr.Tool("workflow %q in job %q has no steps", wf.Name, def.Name)
		return errResult(toolErr)
	}

	firstEntry := wf.Steps[0]
	firstStep := stepByID(def, firstEntry.Primary())
	if firstStep == nil {
		toolErr = deeperr.Tool("workflow %q references unknown step %q", wf.Name, firstEntry.Primary())
		return errResult(toolErr)
	}

	sess, err := s.store.CreateSession(def.Name, wf.Name, goal, instanceID, firstStep.ID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	sessionID = sess.SessionID
	if err := s.store.StartStep(firstStep.ID, sess.SessionID); err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	begin, err := s.buildBeginStep(def, firstStep, firstEntry, sess.SessionID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	return jsonResult(StartWorkflowResponse{
		BeginStep: begin,
		Stack:     s.store.GetStack(),
	})
}

func (s *Server) buildBeginStep(def *jobs.JobDefinition, step *jobs.Step, entry jobs.WorkflowEntry, sessionID string) (BeginStep, error) {
	instructions, err := readInstructions(s.fs, def, step)
	if err != nil {
		return BeginStep{}, err
	}

	begin := BeginStep{
		SessionID:           sessionID,
		StepID:              step.ID,
		JobDir:              def.Dir,
		StepExpectedOutputs: outputDescriptors(step),
		StepReviews:         step.Reviews,
		StepInstructions:    instructions,
		CommonJobInfo:       def.CommonJobInfo,
	}
	if entry.IsConcurrentGroup() {
		begin.ConcurrentStepsNote = fmt.Sprintf(
			"This step is part of a concurrent group with %s. Run all of them in parallel; this response describes only the primary step %q.",
			entry.StepIDs, step.ID)
	}
	return begin, nil
}

// handleFinishedStep validates and reviews a step's submitted outputs, then
// advances the session or reports needs_work.
func (s *Server) handleFinishedStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	var toolErr error
	defer func() { logging.ToolCall("finished_step", sessionID, toolErr) }()

	outputs, err := objectParam(request, "outputs", true)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	notes := request.GetString("notes", "")
	overrideReason := request.GetString("quality_review_override_reason", "")

	sess, err := s.store.Resolve(sessionID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	sessionID = sess.SessionID

	result := s.loader().LoadAll()
	def := findJob(result.Jobs, sess.JobName)
	if def == nil {
		toolErr = deeperr.Tool("session references unknown job %q", sess.JobName)
		return errResult(toolErr)
	}
	step := stepByID(def, sess.CurrentStepID)
	if step == nil {
		toolErr = deeperr.Tool("session references unknown step %q", sess.CurrentStepID)
		return errResult(toolErr)
	}
	wf, err := resolveWorkflow(def, sess.WorkflowName)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	if err := validate.ValidateOutputs(s.fs, s.projectRoot, step.Outputs, outputs); err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	if len(step.Reviews) > 0 && s.qualityGateEnabled && overrideReason == "" {
		resp, handled, err := s.runQualityGate(ctx, sess.SessionID, step, outputs)
		if err != nil {
			toolErr = err
			return errResult(toolErr)
		}
		if handled {
			return jsonResult(resp)
		}
	}

	if err := s.store.CompleteStep(step.ID, outputs, notes, sess.SessionID); err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	nextIndex := sess.CurrentEntryIndex + 1
	if nextIndex < len(wf.Steps) {
		nextEntry := wf.Steps[nextIndex]
		nextStep := stepByID(def, nextEntry.Primary())
		if nextStep == nil {
			toolErr = deeperr.Tool("workflow %q references unknown step %q", wf.Name, nextEntry.Primary())
			return errResult(toolErr)
		}
		if err := s.store.AdvanceToStep(nextStep.ID, nextIndex, sess.SessionID); err != nil {
			toolErr = err
			return errResult(toolErr)
		}
		if err := s.store.StartStep(nextStep.ID, sess.SessionID); err != nil {
			toolErr = err
			return errResult(toolErr)
		}
		begin, err := s.buildBeginStep(def, nextStep, nextEntry, sess.SessionID)
		if err != nil {
			toolErr = err
			return errResult(toolErr)
		}
		return jsonResult(FinishedStepResponse{
			Status:    StatusNextStep,
			BeginStep: &begin,
			Stack:     s.store.GetStack(),
		})
	}

	allOutputs, err := s.store.GetAllOutputs(sess.SessionID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	if _, err := s.store.CompleteWorkflow(sess.SessionID); err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	return jsonResult(FinishedStepResponse{
		Status:     StatusWorkflowComplete,
		AllOutputs: allOutputs,
		Stack:      s.store.GetStack(),
	})
}

// runQualityGate invokes the quality gate for step's submitted outputs. It
// returns (response, true, nil) when finished_step should return
// immediately with a needs_work response, (zero, false, nil) when review
// passed and the caller should proceed to complete the step, or a non-nil
// error when review failed fatally (adapter error or exhausted attempts).
func (s *Server) runQualityGate(ctx context.Context, sessionID string, step *jobs.Step, outputs map[string]interface{}) (FinishedStepResponse, bool, error) {
	gate := s.gateFor()

	if !gate.IsExternal() {
		path, err := gate.WriteSelfReviewInstructions(sessionID, *step, outputs)
		if err != nil {
			return FinishedStepResponse{}, false, err
		}
		return FinishedStepResponse{
			Status:       StatusNeedsWork,
			Instructions: fmt.Sprintf("Spawn a subagent to perform the quality review described in %s, then call finished_step again with the same outputs and quality_review_override_reason set once it reports PASS.", path),
			Stack:        s.store.GetStack(),
		}, true, nil
	}

	attempt, err := s.store.RecordQualityAttempt(step.ID, sessionID)
	if err != nil {
		return FinishedStepResponse{}, false, err
	}

	failing, err := gate.EvaluateReviews(ctx, *step, outputs, attempt)
	if err != nil {
		return FinishedStepResponse{}, false, err
	}
	if len(failing) == 0 {
		return FinishedStepResponse{}, false, nil
	}

	feedback := qualitygate.CombineFeedback(failing)
	if attempt >= MaxQualityAttempts {
		return FinishedStepResponse{}, false, deeperr.Tool(
			"step %q failed quality review after %d attempts: %s", step.ID, attempt, feedback)
	}

	return FinishedStepResponse{
		Status:   StatusNeedsWork,
		Feedback: feedback,
		Stack:    s.store.GetStack(),
	}, true, nil
}

// handleAbortWorkflow aborts the target session and reports what (if
// anything) resumes beneath it.
func (s *Server) handleAbortWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	var toolErr error
	defer func() { logging.ToolCall("abort_workflow", sessionID, toolErr) }()

	explanation, err := request.RequireString("explanation")
	if err != nil {
		toolErr = deeperr.Tool("missing required parameter 'explanation': %v", err)
		return errResult(toolErr)
	}

	sess, err := s.store.Resolve(sessionID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}
	sessionID = sess.SessionID

	aborted, newTop, err := s.store.AbortWorkflow(explanation, sess.SessionID)
	if err != nil {
		toolErr = err
		return errResult(toolErr)
	}

	resp := AbortWorkflowResponse{
		AbortedWorkflow: aborted.JobName + "/" + aborted.WorkflowName,
		AbortedStep:     aborted.CurrentStepID,
		Explanation:     explanation,
		Stack:           s.store.GetStack(),
	}
	if newTop != nil {
		resumedWorkflow := newTop.JobName + "/" + newTop.WorkflowName
		resp.ResumedWorkflow = &resumedWorkflow
		resp.ResumedStep = &newTop.CurrentStepID
	}

	return jsonResult(resp)
}
