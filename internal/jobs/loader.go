// Package jobs discovers, parses and validates deepwork job definitions
// from their on-disk directories.
package jobs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/deepwork-ai/deepwork/internal/jobs/schema"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// LoadError is recorded per job that failed to load; it never aborts
// loading of the remaining jobs.
type LoadError struct {
	JobName string `json:"job_name"`
	JobDir  string `json:"job_dir"`
	Error   string `json:"error"`
}

// LoadWarning is a non-fatal finding surfaced alongside a loaded job, such
// as an orphaned step.
type LoadWarning struct {
	JobName string `json:"job_name"`
	JobDir  string `json:"job_dir"`
	Warning string `json:"warning"`
}

// LoadResult is the outcome of scanning all configured job folders.
type LoadResult struct {
	Jobs     []*jobs.JobDefinition
	Errors   []LoadError
	Warnings []LoadWarning
}

// Loader discovers and parses job directories across an ordered list of
// folders.
type Loader struct {
	fs      afero.Fs
	folders []string
}

// NewLoader builds a Loader over the given filesystem and folder priority
// list (see FoldersInPriorityOrder).
func NewLoader(fs afero.Fs, folders []string) *Loader {
	return &Loader{fs: fs, folders: folders}
}

// LoadAll scans every configured folder and returns every job that parsed
// and validated successfully, plus a per-job error for every one that
// didn't.
func (l *Loader) LoadAll() *LoadResult {
	result := &LoadResult{}

	for _, c := range discoverCandidates(l.fs, l.folders) {
		def, warnings, err := l.loadOne(c.path)
		if err != nil {
			result.Errors = append(result.Errors, LoadError{
				JobName: c.dirName,
				JobDir:  c.path,
				Error:   err.Error(),
			})
			continue
		}
		result.Jobs = append(result.Jobs, def)
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, LoadWarning{
				JobName: def.Name,
				JobDir:  c.path,
				Warning: w,
			})
		}
	}

	return result
}

// FindJobDir returns the directory of the first-priority loaded job with
// the given name, or "" if none matches.
func (l *Loader) FindJobDir(name string) string {
	result := l.LoadAll()
	for _, def := range result.Jobs {
		if def.Name == name {
			return def.Dir
		}
	}
	return ""
}

func (l *Loader) loadOne(dir string) (*jobs.JobDefinition, []string, error) {
	jobYMLPath := filepath.Join(dir, "job.yml")

	content, err := afero.ReadFile(l.fs, jobYMLPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read job.yml: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, nil, fmt.Errorf("job.yml is empty")
	}

	var rawYAML interface{}
	if err := yaml.Unmarshal(content, &rawYAML); err != nil {
		return nil, nil, fmt.Errorf("invalid YAML: %w", err)
	}
	rawMap, ok := convertYAMLToJSON(rawYAML).(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("job.yml must decode to an object")
	}

	rawJSON, err := json.Marshal(rawMap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-encode job.yml as JSON: %w", err)
	}

	if err := validateAgainstSchema(rawJSON); err != nil {
		return nil, nil, err
	}

	var def jobs.JobDefinition
	if err := json.Unmarshal(rawJSON, &def); err != nil {
		return nil, nil, fmt.Errorf("failed to decode job definition: %w", err)
	}
	def.Dir = dir

	migrateStopHooks(&def, rawMap)

	if err := validateSemantics(&def); err != nil {
		return nil, nil, err
	}

	warnings := orphanedStepWarnings(&def)

	return &def, warnings, nil
}

// validateAgainstSchema validates rawJSON (already canonicalized to plain
// JSON types) against the embedded Draft-7 job schema.
func validateAgainstSchema(rawJSON []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schema.JobSchemaJSON)
	docLoader := gojsonschema.NewBytesLoader(rawJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// migrateStopHooks appends the legacy per-step stop_hooks field into
// hooks.after_agent.
func migrateStopHooks(def *jobs.JobDefinition, rawMap map[string]interface{}) {
	rawSteps, ok := rawMap["steps"].([]interface{})
	if !ok {
		return
	}
	for i, rawStep := range rawSteps {
		if i >= len(def.Steps) {
			break
		}
		stepMap, ok := rawStep.(map[string]interface{})
		if !ok {
			continue
		}
		rawHooks, ok := stepMap["stop_hooks"].([]interface{})
		if !ok || len(rawHooks) == 0 {
			continue
		}

		var actions []jobs.HookAction
		data, err := json.Marshal(rawHooks)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &actions); err != nil {
			continue
		}

		if def.Steps[i].Hooks == nil {
			def.Steps[i].Hooks = make(map[string][]jobs.HookAction)
		}
		def.Steps[i].Hooks[string(jobs.HookAfterAgent)] = append(
			def.Steps[i].Hooks[string(jobs.HookAfterAgent)], actions...)
	}
}

// convertYAMLToJSON recursively normalizes yaml.v3's decoded values
// (map[string]interface{} already, but nested interface{} keys from older
// decoders are normalized defensively) into plain JSON-compatible values.
func convertYAMLToJSON(input interface{}) interface{} {
	switch v := input.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[key] = convertYAMLToJSON(val)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[fmt.Sprintf("%v", key)] = convertYAMLToJSON(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertYAMLToJSON(val)
		}
		return result
	default:
		return v
	}
}
