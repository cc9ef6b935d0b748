// Package qualitygate assembles review payloads, dispatches per-review
// evaluations concurrently against the reviewer adapter, and — when no
// external reviewer is configured — emits self-review instruction files.
package qualitygate

import (
	"github.com/deepwork-ai/deepwork/internal/reviewer"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

// FileRef names one submitted output file together with the output key it
// belongs to.
type FileRef struct {
	OutputKey string
	Path      string
}

// EvaluationTask is one concurrent unit of review work: a review paired
// with the files it evaluates.
type EvaluationTask struct {
	ReviewIndex int
	Review      jobs.Review
	Files       []FileRef
}

// FailingEvaluation is a review that did not pass.
type FailingEvaluation struct {
	ReviewIndex int
	RunEach     string
	Result      reviewer.Result
}
