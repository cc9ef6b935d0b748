package jobs

import (
	"fmt"
	"strings"

	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// validateSemantics performs the cross-reference checks schema validation
// can't express: dependency cycles, dangling file inputs, unresolved
// workflow step references, duplicate workflow names and review run_each
// targets.
func validateSemantics(def *jobs.JobDefinition) error {
	stepsByID := make(map[string]jobs.Step, len(def.Steps))
	for _, s := range def.Steps {
		if _, exists := stepsByID[s.ID]; exists {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		stepsByID[s.ID] = s
	}

	for _, s := range def.Steps {
		for _, dep := range s.Dependencies {
			if _, ok := stepsByID[dep]; !ok {
				return fmt.Errorf("step %q depends on unknown step %q", s.ID, dep)
			}
		}
	}

	if err := checkAcyclic(def.Steps); err != nil {
		return err
	}

	for _, s := range def.Steps {
		deps := make(map[string]bool, len(s.Dependencies))
		for _, d := range s.Dependencies {
			deps[d] = true
		}
		for _, in := range s.Inputs {
			if !in.IsFileInput() {
				continue
			}
			if _, ok := stepsByID[in.FromStep]; !ok {
				return fmt.Errorf("step %q has a file input from unknown step %q", s.ID, in.FromStep)
			}
			if !deps[in.FromStep] {
				return fmt.Errorf("step %q file input from_step %q must also be listed in dependencies", s.ID, in.FromStep)
			}
		}

		for _, r := range s.Reviews {
			if r.RunsOnWholeStep() {
				continue
			}
			if _, ok := s.Outputs[r.RunEach]; !ok {
				return fmt.Errorf("step %q review run_each %q does not match a declared output", s.ID, r.RunEach)
			}
		}

		for name, h := range s.Hooks {
			for _, action := range h {
				if err := validateHookAction(action); err != nil {
					return fmt.Errorf("step %q hook %q: %w", s.ID, name, err)
				}
			}
		}
	}

	workflowNames := make(map[string]bool, len(def.Workflows))
	for _, wf := range def.Workflows {
		if workflowNames[wf.Name] {
			return fmt.Errorf("duplicate workflow name %q", wf.Name)
		}
		workflowNames[wf.Name] = true

		seenInWorkflow := make(map[string]bool)
		for _, entry := range wf.Steps {
			for _, id := range entry.StepIDs {
				if _, ok := stepsByID[id]; !ok {
					return fmt.Errorf("workflow %q references unknown step %q", wf.Name, id)
				}
				if seenInWorkflow[id] {
					return fmt.Errorf("workflow %q references step %q more than once", wf.Name, id)
				}
				seenInWorkflow[id] = true
			}
		}
	}

	return nil
}

func validateHookAction(a jobs.HookAction) error {
	set := 0
	if a.Prompt != "" {
		set++
	}
	if a.PromptFile != "" {
		set++
	}
	if a.Script != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("hook action must set exactly one of prompt, prompt_file, script")
	}
	return nil
}

// checkAcyclic runs a topological sort over the dependency graph and fails
// if a cycle is found.
func checkAcyclic(steps []jobs.Step) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.ID] = s.Dependencies
	}

	color := make(map[string]int, len(steps))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			path = append(path, id)
			return fmt.Errorf("dependency cycle detected: %s", strings.Join(path, " -> "))
		}

		color[id] = gray
		path = append(path, id)
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, s := range steps {
		if color[s.ID] == white {
			if err := visit(s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// orphanedStepWarnings reports steps not referenced by any workflow.
func orphanedStepWarnings(def *jobs.JobDefinition) []string {
	referenced := make(map[string]bool)
	for _, wf := range def.Workflows {
		for _, entry := range wf.Steps {
			for _, id := range entry.StepIDs {
				referenced[id] = true
			}
		}
	}

	var warnings []string
	for _, s := range def.Steps {
		if !referenced[s.ID] {
			warnings = append(warnings, fmt.Sprintf("step %q is not referenced by any workflow", s.ID))
		}
	}
	return warnings
}
