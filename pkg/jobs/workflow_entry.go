package jobs

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a scalar step id or a sequence of step ids.
func (e *WorkflowEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var id string
		if err := value.Decode(&id); err != nil {
			return err
		}
		e.StepIDs = []string{id}
		return nil
	case yaml.SequenceNode:
		var ids []string
		if err := value.Decode(&ids); err != nil {
			return err
		}
		e.StepIDs = ids
		return nil
	default:
		return fmt.Errorf("workflow step entry must be a string or a list of strings, got %v", value.Kind)
	}
}

// MarshalYAML re-emits a single id as a scalar and a group as a sequence.
func (e WorkflowEntry) MarshalYAML() (interface{}, error) {
	if len(e.StepIDs) == 1 {
		return e.StepIDs[0], nil
	}
	return e.StepIDs, nil
}

// UnmarshalJSON mirrors UnmarshalYAML for the JSON representation the job
// loader decodes job definitions from after schema validation.
func (e *WorkflowEntry) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		e.StepIDs = []string{id}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("workflow step entry must be a string or a list of strings: %w", err)
	}
	e.StepIDs = ids
	return nil
}

// MarshalJSON mirrors MarshalYAML for the JSON representation.
func (e WorkflowEntry) MarshalJSON() ([]byte, error) {
	if len(e.StepIDs) == 1 {
		return json.Marshal(e.StepIDs[0])
	}
	return json.Marshal(e.StepIDs)
}
