package qualitygate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// SelfReviewInstructionsPath returns the path of the self-review Markdown
// file for a given session and step.
func SelfReviewInstructionsPath(tmpDir, sessionID, stepID string) string {
	return filepath.Join(tmpDir, fmt.Sprintf("quality_review_%s_%s.md", sessionID, stepID))
}

// WriteSelfReviewInstructions renders and writes the self-review Markdown
// file for sessionID/step.ID, overwriting any prior copy.
func (g *Gate) WriteSelfReviewInstructions(sessionID string, step jobs.Step, outputs map[string]interface{}) (string, error) {
	if err := g.FS.MkdirAll(g.TmpDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tmp dir: %w", err)
	}

	content := g.renderSelfReviewMarkdown(step, outputs)
	path := SelfReviewInstructionsPath(g.TmpDir, sessionID, step.ID)
	if err := afero.WriteFile(g.FS, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write self-review instructions: %w", err)
	}
	return path, nil
}

func (g *Gate) renderSelfReviewMarkdown(step jobs.Step, outputs map[string]interface{}) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Quality Review: %s\n\n", step.Name)

	files := allSubmittedFiles(outputs)
	sb.WriteString("## Submitted files\n\n")
	sb.WriteString(buildPayload(g.FS, g.ProjectRoot, files, g.MaxInlineFiles, ""))
	sb.WriteString("\n\n")

	sb.WriteString("## Rubric\n\n")
	var guidance []string
	for _, review := range step.Reviews {
		label := review.RunEach
		if label == "" {
			label = "step"
		}
		fmt.Fprintf(&sb, "### %s\n\n", label)
		for name, question := range review.QualityCriteria {
			fmt.Fprintf(&sb, "- **%s**: %s\n", name, question)
		}
		sb.WriteString("\n")
		if review.AdditionalReviewGuidance != "" {
			guidance = append(guidance, review.AdditionalReviewGuidance)
		}
	}

	if len(guidance) > 0 {
		sb.WriteString("## Additional guidance\n\n")
		for _, note := range guidance {
			sb.WriteString(note)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("## Instructions\n\n")
	sb.WriteString("1. Read each submitted file listed above.\n")
	sb.WriteString("2. Evaluate every criterion in the rubric against what you read.\n")
	sb.WriteString("3. Report PASS or FAIL for each individual criterion.\n")
	sb.WriteString("4. State the overall result: PASS only if every criterion passed.\n")
	sb.WriteString("5. For any FAIL, give actionable feedback describing exactly what must change.\n")

	return sb.String()
}
