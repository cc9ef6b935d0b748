// Package session defines the persisted workflow-session data model: the
// session itself, per-step progress, and the stack's derived view.
package session

// Status is the lifecycle state of a WorkflowSession.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// WorkflowSession is one in-flight (or concluded) execution of a workflow,
// persisted as session_{id}.json under .deepwork/tmp/.
type WorkflowSession struct {
	SessionID         string                  `json:"session_id"`
	JobName           string                  `json:"job_name"`
	WorkflowName      string                  `json:"workflow_name"`
	Goal              string                  `json:"goal"`
	InstanceID        string                  `json:"instance_id,omitempty"`
	CurrentStepID     string                  `json:"current_step_id"`
	CurrentEntryIndex int                     `json:"current_entry_index"`
	Status            Status                  `json:"status"`
	AbortReason       string                  `json:"abort_reason,omitempty"`
	StartedAt         string                  `json:"started_at"`
	CompletedAt       string                  `json:"completed_at,omitempty"`
	StepProgress      map[string]*StepProgress `json:"step_progress"`
}

// StepProgress tracks one step's execution within a session.
type StepProgress struct {
	StepID          string              `json:"step_id"`
	StartedAt       string              `json:"started_at"`
	CompletedAt     string              `json:"completed_at,omitempty"`
	Outputs         map[string]interface{} `json:"outputs,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	QualityAttempts int                 `json:"quality_attempts"`
}

// StackEntry is the derived, response-facing view of a stack position.
type StackEntry struct {
	Workflow string `json:"workflow"`
	Step     string `json:"step"`
}

// Entry formats this session as a StackEntry.
func (s *WorkflowSession) Entry() StackEntry {
	return StackEntry{
		Workflow: s.JobName + "/" + s.WorkflowName,
		Step:     s.CurrentStepID,
	}
}
