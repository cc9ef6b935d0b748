package qualitygate

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepwork-ai/deepwork/internal/reviewer"
	"github.com/deepwork-ai/deepwork/pkg/jobs"
)

type fakeAdapter struct {
	results map[string]reviewer.Result
	err     error
	calls   int
}

func (f *fakeAdapter) Review(ctx context.Context, req reviewer.Request) (reviewer.Result, error) {
	f.calls++
	if f.err != nil {
		return reviewer.Result{}, f.err
	}
	if res, ok := f.results[req.SystemPrompt]; ok {
		return res, nil
	}
	return reviewer.Result{Passed: true, Feedback: "ok"}, nil
}

func reviewStep() jobs.Step {
	return jobs.Step{
		ID: "write_draft",
		Outputs: map[string]jobs.OutputSpec{
			"draft": {Type: jobs.OutputKindFile, Required: true},
		},
		Reviews: []jobs.Review{
			{RunEach: "draft", QualityCriteria: map[string]string{"tone": "Is the tone right?"}},
		},
	}
}

func TestTimeoutFor_BaseAndExtra(t *testing.T) {
	assert.Equal(t, 240*time.Second, timeoutFor(1))
	assert.Equal(t, 240*time.Second, timeoutFor(5))
	assert.Equal(t, 270*time.Second, timeoutFor(6))
	assert.Equal(t, 300*time.Second, timeoutFor(7))
}

func TestBuildPayload_InlinesUnderThreshold(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/out.md", []byte("hello"), 0o644))

	payload := buildPayload(fs, "/proj", []FileRef{{OutputKey: "draft", Path: "out.md"}}, 5, "")
	assert.Contains(t, payload, "BEGIN OUTPUTS")
	assert.Contains(t, payload, "hello")
}

func TestBuildPayload_ListsPathsOverThreshold(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := []FileRef{
		{OutputKey: "extras", Path: "a.md"},
		{OutputKey: "extras", Path: "b.md"},
	}
	payload := buildPayload(fs, "/proj", files, 1, "")
	assert.NotContains(t, payload, "BEGIN OUTPUTS")
	assert.Contains(t, payload, "2 files total")
	assert.Contains(t, payload, "a.md (output: extras)")
}

func TestBuildPayload_NoFilesOrNotes(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.Equal(t, "[No files provided]", buildPayload(fs, "/proj", nil, 5, ""))
}

func TestBuildPayload_IncludesAuthorNotes(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := buildPayload(fs, "/proj", nil, 5, "please double-check the intro")
	assert.Contains(t, payload, "AUTHOR NOTES")
	assert.Contains(t, payload, "please double-check the intro")
}

func TestEvaluateReviews_AllPass(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/draft.md", []byte("x"), 0o644))

	adapter := &fakeAdapter{}
	gate := NewExternalGate(fs, adapter, "/proj", "/proj/.deepwork/tmp")

	failing, err := gate.EvaluateReviews(context.Background(), reviewStep(), map[string]interface{}{"draft": "draft.md"}, 1)
	require.NoError(t, err)
	assert.Empty(t, failing)
	assert.Equal(t, 1, adapter.calls)
}

func TestEvaluateReviews_ReportsFailing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/draft.md", []byte("x"), 0o644))

	adapter := &fakeAdapter{}
	step := reviewStep()
	prompt := buildSystemPrompt(step.Reviews[0])
	adapter.results = map[string]reviewer.Result{
		prompt: {Passed: false, Feedback: "tone is too casual"},
	}
	gate := NewExternalGate(fs, adapter, "/proj", "/proj/.deepwork/tmp")

	failing, err := gate.EvaluateReviews(context.Background(), step, map[string]interface{}{"draft": "draft.md"}, 1)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	assert.Equal(t, "draft", failing[0].RunEach)
	assert.Contains(t, CombineFeedback(failing), "tone is too casual")
}

func TestEvaluateReviews_SkipsReviewsWithNoQualityCriteria(t *testing.T) {
	fs := afero.NewMemMapFs()
	adapter := &fakeAdapter{}
	step := reviewStep()
	step.Reviews[0].QualityCriteria = nil
	gate := NewExternalGate(fs, adapter, "/proj", "/proj/.deepwork/tmp")

	failing, err := gate.EvaluateReviews(context.Background(), step, map[string]interface{}{"draft": "draft.md"}, 1)
	require.NoError(t, err)
	assert.Empty(t, failing)
	assert.Equal(t, 0, adapter.calls)
}

func TestEvaluateReviews_PropagatesAdapterError(t *testing.T) {
	fs := afero.NewMemMapFs()
	adapter := &fakeAdapter{err: assert.AnError}
	gate := NewExternalGate(fs, adapter, "/proj", "/proj/.deepwork/tmp")

	_, err := gate.EvaluateReviews(context.Background(), reviewStep(), map[string]interface{}{"draft": "draft.md"}, 1)
	assert.Error(t, err)
}

func TestEvaluateReviews_RequiresExternalAdapter(t *testing.T) {
	fs := afero.NewMemMapFs()
	gate := NewSelfReviewGate(fs, "/proj", "/proj/.deepwork/tmp")
	_, err := gate.EvaluateReviews(context.Background(), reviewStep(), map[string]interface{}{"draft": "draft.md"}, 1)
	assert.Error(t, err)
}

func TestWriteSelfReviewInstructions_IncludesRubricAndFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/draft.md", []byte("draft body"), 0o644))

	gate := NewSelfReviewGate(fs, "/proj", "/proj/.deepwork/tmp")
	path, err := gate.WriteSelfReviewInstructions("sess1", reviewStep(), map[string]interface{}{"draft": "draft.md"})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Is the tone right?")
	assert.Contains(t, content, "draft.md")
}
