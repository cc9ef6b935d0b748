package qualitygate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const (
	baseTimeout     = 240 * time.Second
	perExtraFile    = 30 * time.Second
	inlineThreshold = 5
)

// timeoutFor returns the reviewer invocation timeout for a task with the
// given file count: 240s base, plus 30s per file beyond 5.
func timeoutFor(fileCount int) time.Duration {
	extra := fileCount - inlineThreshold
	if extra < 0 {
		extra = 0
	}
	return baseTimeout + time.Duration(extra)*perExtraFile
}

// buildPayload renders the files (and optional author notes) a task or
// self-review instruction should show the reviewer, per the inline vs.
// path-listing rules.
func buildPayload(fs afero.Fs, projectRoot string, files []FileRef, maxInlineFiles int, notes string) string {
	var sb strings.Builder

	if len(files) == 0 && notes == "" {
		return "[No files provided]"
	}

	if len(files) > 0 {
		if len(files) <= maxInlineFiles {
			sb.WriteString("==================== BEGIN OUTPUTS ====================\n")
			for _, f := range files {
				sb.WriteString(fmt.Sprintf("-------------------- %s --------------------\n", f.Path))
				sb.WriteString(readFileForReview(fs, projectRoot, f.Path))
				sb.WriteString("\n")
			}
			sb.WriteString("==================== END OUTPUTS ====================\n")
		} else {
			sb.WriteString(fmt.Sprintf("%d files total. Read them as needed:\n", len(files)))
			for _, f := range files {
				sb.WriteString(fmt.Sprintf("%s (output: %s)\n", f.Path, f.OutputKey))
			}
		}
	}

	if notes != "" {
		sb.WriteString("\nAUTHOR NOTES\n")
		sb.WriteString(notes)
		sb.WriteString("\n")
	}

	return sb.String()
}

func readFileForReview(fs afero.Fs, projectRoot, relPath string) string {
	full := filepath.Join(projectRoot, relPath)

	data, err := afero.ReadFile(fs, full)
	if err != nil {
		if os.IsNotExist(err) {
			return "[File not found]"
		}
		return fmt.Sprintf("[Error reading file: %v]", err)
	}

	if !utf8.Valid(data) {
		abs, absErr := filepath.Abs(full)
		if absErr != nil {
			abs = full
		}
		return fmt.Sprintf("[Binary file - not included in review. Read from: %s]", abs)
	}

	return string(data)
}

// allSubmittedFiles flattens every submitted output (file and files alike)
// into a deterministically ordered list of FileRefs.
func allSubmittedFiles(outputs map[string]interface{}) []FileRef {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var files []FileRef
	for _, key := range keys {
		switch v := outputs[key].(type) {
		case string:
			files = append(files, FileRef{OutputKey: key, Path: v})
		case []string:
			for _, p := range v {
				files = append(files, FileRef{OutputKey: key, Path: p})
			}
		case []interface{}:
			for _, raw := range v {
				if p, ok := raw.(string); ok {
					files = append(files, FileRef{OutputKey: key, Path: p})
				}
			}
		}
	}
	return files
}

