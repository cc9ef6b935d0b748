// Package validate cross-checks a submitted outputs map against a step's
// declared output schema.
package validate

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// ValidateOutputs checks submitted outputs against the step's declared
// OutputSpecs. projectRoot is used to resolve relative file paths for
// existence checks.
func ValidateOutputs(fs afero.Fs, projectRoot string, declared map[string]jobs.OutputSpec, submitted map[string]interface{}) error {
	if err := checkUnknownKeys(declared, submitted); err != nil {
		return err
	}
	if err := checkMissingRequired(declared, submitted); err != nil {
		return err
	}
	return checkTypesAndExistence(fs, projectRoot, declared, submitted)
}

func checkUnknownKeys(declared map[string]jobs.OutputSpec, submitted map[string]interface{}) error {
	var unknown []string
	for key := range submitted {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	var valid []string
	for key := range declared {
		valid = append(valid, key)
	}
	sort.Strings(valid)

	return deeperr.Tool("unknown outputs %s; valid: %s", joinOrNone(unknown), joinOrNone(valid))
}

func checkMissingRequired(declared map[string]jobs.OutputSpec, submitted map[string]interface{}) error {
	var missing []string
	for key, spec := range declared {
		if !spec.Required {
			continue
		}
		if _, ok := submitted[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return deeperr.Tool("missing required outputs %s", joinOrNone(missing))
}

func checkTypesAndExistence(fs afero.Fs, projectRoot string, declared map[string]jobs.OutputSpec, submitted map[string]interface{}) error {
	keys := make([]string, 0, len(submitted))
	for k := range submitted {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spec, ok := declared[key]
		if !ok {
			continue // already reported by checkUnknownKeys
		}
		value := submitted[key]

		switch spec.Type {
		case jobs.OutputKindFile:
			path, ok := value.(string)
			if !ok {
				return deeperr.Tool("output %q must be a single filepath string", key)
			}
			if err := mustExist(fs, projectRoot, key, path); err != nil {
				return err
			}
		case jobs.OutputKindFiles:
			list, ok := asStringList(value)
			if !ok {
				return deeperr.Tool("output %q must be an array of filepath strings", key)
			}
			for _, path := range list {
				if err := mustExist(fs, projectRoot, key, path); err != nil {
					return err
				}
			}
		default:
			return deeperr.Tool("output %q has unrecognized declared type %q", key, spec.Type)
		}
	}
	return nil
}

func mustExist(fs afero.Fs, projectRoot, key, relPath string) error {
	full := filepath.Join(projectRoot, relPath)
	exists, err := afero.Exists(fs, full)
	if err != nil {
		return deeperr.Tool("failed to check output %q at %q: %v", key, full, err)
	}
	if !exists {
		return deeperr.Tool("output %q references a file that does not exist: %s", key, full)
	}
	return nil
}

func asStringList(value interface{}) ([]string, bool) {
	list, ok := value.([]interface{})
	if !ok {
		if strs, ok := value.([]string); ok {
			return strs, true
		}
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
