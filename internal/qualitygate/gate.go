package qualitygate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
	"github.com/deepwork-ai/deepwork/internal/reviewer"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// DefaultMaxInlineFiles is the external-mode default for max_inline_files.
const DefaultMaxInlineFiles = 5

// Gate dispatches per-review quality evaluations for a step's submitted
// outputs. A nil Reviewer puts the gate in self-review mode.
type Gate struct {
	FS             afero.Fs
	Reviewer       reviewer.Adapter
	ProjectRoot    string
	TmpDir         string
	MaxInlineFiles int
}

// NewExternalGate builds a gate that dispatches reviews to adapter.
func NewExternalGate(fs afero.Fs, adapter reviewer.Adapter, projectRoot, tmpDir string) *Gate {
	return &Gate{
		FS:             fs,
		Reviewer:       adapter,
		ProjectRoot:    projectRoot,
		TmpDir:         tmpDir,
		MaxInlineFiles: DefaultMaxInlineFiles,
	}
}

// NewSelfReviewGate builds a gate that emits instruction files instead of
// invoking a reviewer subprocess.
func NewSelfReviewGate(fs afero.Fs, projectRoot, tmpDir string) *Gate {
	return &Gate{
		FS:             fs,
		Reviewer:       nil,
		ProjectRoot:    projectRoot,
		TmpDir:         tmpDir,
		MaxInlineFiles: 0,
	}
}

// IsExternal reports whether this gate dispatches to a real reviewer
// subprocess.
func (g *Gate) IsExternal() bool {
	return g.Reviewer != nil
}

// buildTasks expands a step's reviews into concurrent evaluation tasks,
// skipping reviews with empty quality_criteria (those auto-pass).
func buildTasks(step jobs.Step, outputs map[string]interface{}) []EvaluationTask {
	var tasks []EvaluationTask

	for idx, review := range step.Reviews {
		if len(review.QualityCriteria) == 0 {
			continue
		}

		if review.RunsOnWholeStep() {
			tasks = append(tasks, EvaluationTask{
				ReviewIndex: idx,
				Review:      review,
				Files:       allSubmittedFiles(outputs),
			})
			continue
		}

		spec, ok := step.Outputs[review.RunEach]
		if !ok {
			continue // the loader's semantic validation rejects this already
		}

		switch spec.Type {
		case jobs.OutputKindFile:
			if path, ok := outputs[review.RunEach].(string); ok {
				tasks = append(tasks, EvaluationTask{
					ReviewIndex: idx,
					Review:      review,
					Files:       []FileRef{{OutputKey: review.RunEach, Path: path}},
				})
			}
		case jobs.OutputKindFiles:
			for _, path := range stringListOf(outputs[review.RunEach]) {
				tasks = append(tasks, EvaluationTask{
					ReviewIndex: idx,
					Review:      review,
					Files:       []FileRef{{OutputKey: review.RunEach, Path: path}},
				})
			}
		}
	}

	return tasks
}

func stringListOf(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, raw := range t {
			if s, ok := raw.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

type taskOutcome struct {
	task   EvaluationTask
	result reviewer.Result
	err    error
}

// EvaluateReviews dispatches every evaluation task for step concurrently
// and returns the reviews that did not pass. attemptNumber is accepted for
// symmetry with the state store's quality-attempt bookkeeping; the gate
// itself doesn't track attempts.
func (g *Gate) EvaluateReviews(ctx context.Context, step jobs.Step, outputs map[string]interface{}, attemptNumber int) ([]FailingEvaluation, error) {
	if !g.IsExternal() {
		return nil, deeperr.QualityGate("EvaluateReviews called without a reviewer adapter wired in")
	}

	tasks := buildTasks(step, outputs)
	if len(tasks) == 0 {
		return nil, nil
	}

	results := make(chan taskOutcome, len(tasks))
	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t EvaluationTask) {
			defer wg.Done()
			res, err := g.runTask(ctx, t)
			results <- taskOutcome{task: t, result: res, err: err}
		}(t)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var failing []FailingEvaluation
	var firstErr error
	for outcome := range results {
		if outcome.err != nil {
			if firstErr == nil {
				firstErr = outcome.err
			}
			continue
		}
		if !outcome.result.Passed {
			failing = append(failing, FailingEvaluation{
				ReviewIndex: outcome.task.ReviewIndex,
				RunEach:     outcome.task.Review.RunEach,
				Result:      outcome.result,
			})
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return failing, nil
}

func (g *Gate) runTask(ctx context.Context, t EvaluationTask) (reviewer.Result, error) {
	payload := buildPayload(g.FS, g.ProjectRoot, t.Files, g.MaxInlineFiles, t.Review.AdditionalReviewGuidance)
	systemPrompt := buildSystemPrompt(t.Review)

	result, err := g.Reviewer.Review(ctx, reviewer.Request{
		SystemPrompt:   systemPrompt,
		UserPayload:    payload,
		ResponseSchema: reviewer.ResponseSchema,
		Timeout:        timeoutFor(len(t.Files)),
	})
	if err != nil {
		return reviewer.Result{}, deeperr.QualityGate("review %q failed: %v", t.Review.RunEach, err)
	}
	return result, nil
}

func buildSystemPrompt(review jobs.Review) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the submitted outputs against the following quality criteria. ")
	sb.WriteString("Respond with passed=true only if every criterion is satisfied.\n\n")
	for name, question := range review.QualityCriteria {
		fmt.Fprintf(&sb, "- %s: %s\n", name, question)
	}
	return sb.String()
}

// CombineFeedback joins the feedback from a set of failing evaluations into
// one string the MCP tool layer returns to the agent.
func CombineFeedback(failing []FailingEvaluation) string {
	var parts []string
	for _, f := range failing {
		label := f.RunEach
		if label == "" {
			label = "step"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", label, f.Result.Feedback))
	}
	return strings.Join(parts, "\n")
}
