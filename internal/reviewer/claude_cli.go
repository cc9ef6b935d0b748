package reviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
)

// ClaudeCLIReviewer shells out to the `claude` command-line reviewer: build
// argv, capture stdout, surface a wrapped error on non-zero exit.
type ClaudeCLIReviewer struct {
	// Binary is the executable name or path; defaults to "claude".
	Binary string
}

// NewClaudeCLIReviewer builds a reviewer that invokes the given binary
// (empty defaults to "claude").
func NewClaudeCLIReviewer(binary string) *ClaudeCLIReviewer {
	if binary == "" {
		binary = "claude"
	}
	return &ClaudeCLIReviewer{Binary: binary}
}

// claudeRequest is the JSON payload piped to the subprocess's stdin.
type claudeRequest struct {
	SystemPrompt   string          `json:"system_prompt"`
	UserPayload    string          `json:"user_payload"`
	ResponseSchema json.RawMessage `json:"response_schema"`
}

// Review invokes the external reviewer and parses its structured verdict.
func (c *ClaudeCLIReviewer) Review(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	payload, err := json.Marshal(claudeRequest{
		SystemPrompt:   req.SystemPrompt,
		UserPayload:    req.UserPayload,
		ResponseSchema: req.ResponseSchema,
	})
	if err != nil {
		return Result{}, deeperr.QualityGate("failed to encode reviewer request: %v", err)
	}

	cmd := exec.CommandContext(ctx, c.Binary, "--output-format", "json", "--response-schema", "stdin")
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, deeperr.QualityGate("reviewer timed out after %s", req.Timeout)
		}
		return Result{}, deeperr.QualityGate("reviewer process failed: %v (stderr: %s)", err, stderr.String())
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Result{}, deeperr.QualityGate("reviewer returned malformed JSON: %v", err)
	}

	return withDefaults(result), nil
}
