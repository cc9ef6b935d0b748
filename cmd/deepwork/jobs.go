package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	deepjobs "github.com/deepwork-ai/deepwork/internal/jobs"
	"github.com/deepwork-ai/deepwork/internal/session"
	"github.com/deepwork-ai/deepwork/internal/standardjobs"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect job definitions and session state",
}

var jobsGetStackCmd = &cobra.Command{
	Use:   "get-stack",
	Short: "Print every active workflow session as JSON",
	RunE:  runJobsGetStack,
}

// activeSessionView is one entry of jobs get-stack's JSON output.
type activeSessionView struct {
	SessionID               string   `json:"session_id"`
	JobName                 string   `json:"job_name"`
	WorkflowName            string   `json:"workflow_name"`
	Goal                    string   `json:"goal"`
	CurrentStepID           string   `json:"current_step_id"`
	InstanceID              string   `json:"instance_id,omitempty"`
	CompletedSteps          []string `json:"completed_steps"`
	CommonJobInfo           string   `json:"common_job_info,omitempty"`
	CurrentStepInstructions string   `json:"current_step_instructions,omitempty"`
	StepNumber              int      `json:"step_number,omitempty"`
	TotalSteps              int      `json:"total_steps,omitempty"`
}

func runJobsGetStack(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		path = "."
	}

	fs := afero.NewOsFs()
	tmpDir := deepjobs.TmpDir(path)
	store := session.NewStore(fs, tmpDir)

	sessions, err := store.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	folders := deepjobs.FoldersInPriorityOrder(path, standardjobs.Dir(), os.Getenv(deepjobs.EnvAdditionalFolders))
	loaded := deepjobs.NewLoader(fs, folders).LoadAll()

	views := []activeSessionView{}
	for _, sess := range sessions {
		if sess.Status != sessionpkg.StatusActive {
			continue
		}
		views = append(views, buildActiveSessionView(fs, loaded.Jobs, sess))
	}

	out, err := json.MarshalIndent(map[string]interface{}{"active_sessions": views}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stack: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func buildActiveSessionView(fs afero.Fs, defs []*jobs.JobDefinition, sess *sessionpkg.WorkflowSession) activeSessionView {
	view := activeSessionView{
		SessionID:      sess.SessionID,
		JobName:        sess.JobName,
		WorkflowName:   sess.WorkflowName,
		Goal:           sess.Goal,
		CurrentStepID:  sess.CurrentStepID,
		InstanceID:     sess.InstanceID,
		CompletedSteps: completedStepIDs(sess),
	}

	def := findJobDef(defs, sess.JobName)
	if def == nil {
		return view
	}
	view.CommonJobInfo = def.CommonJobInfo

	wf := findWorkflowDef(def, sess.WorkflowName)
	if wf != nil {
		view.TotalSteps = len(wf.Steps)
		view.StepNumber = sess.CurrentEntryIndex + 1
	}

	step := findStepDef(def, sess.CurrentStepID)
	if step != nil {
		if data, err := afero.ReadFile(fs, filepath.Join(def.Dir, step.InstructionsFile)); err == nil {
			view.CurrentStepInstructions = string(data)
		}
	}

	return view
}

func findJobDef(defs []*jobs.JobDefinition, name string) *jobs.JobDefinition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func findWorkflowDef(def *jobs.JobDefinition, name string) *jobs.Workflow {
	for i := range def.Workflows {
		if def.Workflows[i].Name == name {
			return &def.Workflows[i]
		}
	}
	return nil
}

func findStepDef(def *jobs.JobDefinition, id string) *jobs.Step {
	for i := range def.Steps {
		if def.Steps[i].ID == id {
			return &def.Steps[i]
		}
	}
	return nil
}

func completedStepIDs(sess *sessionpkg.WorkflowSession) []string {
	ids := []string{}
	for id, p := range sess.StepProgress {
		if p.CompletedAt != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
