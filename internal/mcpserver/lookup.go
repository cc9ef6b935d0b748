package mcpserver

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// findJob returns the job definition named name from defs.
func findJob(defs []*jobs.JobDefinition, name string) *jobs.JobDefinition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// resolveWorkflow selects the workflow named workflowName on def, unless
// def has exactly one workflow, in which case that one is always selected.
func resolveWorkflow(def *jobs.JobDefinition, workflowName string) (*jobs.Workflow, error) {
	if len(def.Workflows) == 1 {
		return &def.Workflows[0], nil
	}
	names := make([]string, 0, len(def.Workflows))
	for i := range def.Workflows {
		if def.Workflows[i].Name == workflowName {
			return &def.Workflows[i], nil
		}
		names = append(names, def.Workflows[i].Name)
	}
	return nil, deeperr.Tool("job %q has no workflow named %q; available workflows: %s", def.Name, workflowName, strings.Join(names, ", "))
}

// stepByID returns the step with the given id, or nil.
func stepByID(def *jobs.JobDefinition, id string) *jobs.Step {
	for i := range def.Steps {
		if def.Steps[i].ID == id {
			return &def.Steps[i]
		}
	}
	return nil
}

// readInstructions reads a step's instructions file, relative to the job
// directory.
func readInstructions(fs afero.Fs, def *jobs.JobDefinition, step *jobs.Step) (string, error) {
	path := filepath.Join(def.Dir, step.InstructionsFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", deeperr.Tool("failed to read instructions file %q for step %q: %v", path, step.ID, err)
	}
	return string(data), nil
}

// outputDescriptors builds the response-facing output descriptor list for a
// step. Go maps have no stable iteration order, so keys are sorted.
func outputDescriptors(step *jobs.Step) []OutputDescriptor {
	keys := make([]string, 0, len(step.Outputs))
	for k := range step.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]OutputDescriptor, 0, len(keys))
	for _, k := range keys {
		spec := step.Outputs[k]
		out = append(out, OutputDescriptor{
			Name:                      k,
			Type:                      string(spec.Type),
			Description:               spec.Description,
			Required:                  spec.Required,
			SyntaxForFinishedStepTool: spec.SyntaxForFinishedStepTool(),
		})
	}
	return out
}
