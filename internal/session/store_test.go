package session

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

func newTestStore() *Store {
	return NewStore(afero.NewMemMapFs(), "/proj/.deepwork/tmp")
}

func TestStore_CreateSession_ActiveHasNoCompletedAt(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "write a post", "", "draft_outline")
	require.NoError(t, err)

	assert.Equal(t, sessionpkg.StatusActive, sess.Status)
	assert.Empty(t, sess.CompletedAt)
	assert.Len(t, sess.SessionID, 8)
	assert.Equal(t, 1, s.GetStackDepth())
}

func TestStore_CreateThenLoad_Equality(t *testing.T) {
	s := newTestStore()
	created, err := s.CreateSession("blog_post", "publish", "write a post", "inst-1", "draft_outline")
	require.NoError(t, err)

	loaded, err := s.LoadSession(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created, loaded)
}

func TestStore_StartAndCompleteStep(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	require.NoError(t, s.StartStep("draft_outline", sess.SessionID))
	require.NoError(t, s.CompleteStep("draft_outline", map[string]interface{}{"outline": "o.md"}, "looks good", sess.SessionID))

	resolved, err := s.Resolve(sess.SessionID)
	require.NoError(t, err)
	progress := resolved.StepProgress["draft_outline"]
	require.NotNil(t, progress)
	assert.NotEmpty(t, progress.StartedAt)
	assert.NotEmpty(t, progress.CompletedAt)
	assert.Equal(t, "looks good", progress.Notes)
	assert.Equal(t, "o.md", progress.Outputs["outline"])
}

func TestStore_RecordQualityAttempt_Increments(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "write_draft")
	require.NoError(t, err)

	n, err := s.RecordQualityAttempt("write_draft", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.RecordQualityAttempt("write_draft", sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_AdvanceToStep(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	require.NoError(t, s.AdvanceToStep("write_draft", 1, sess.SessionID))

	resolved, err := s.Resolve(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "write_draft", resolved.CurrentStepID)
	assert.Equal(t, 1, resolved.CurrentEntryIndex)
}

func TestStore_CompleteWorkflow_SetsStatusAndCompletedAt(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	newTop, err := s.CompleteWorkflow(sess.SessionID)
	require.NoError(t, err)
	assert.Nil(t, newTop)
	assert.Equal(t, 0, s.GetStackDepth())

	reloaded, err := s.readByID(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionpkg.StatusCompleted, reloaded.Status)
	assert.NotEmpty(t, reloaded.CompletedAt)
}

func TestStore_AbortWorkflow_ResumesParent(t *testing.T) {
	s := newTestStore()
	parent, err := s.CreateSession("review_code", "run", "review", "", "review_step")
	require.NoError(t, err)

	child, err := s.CreateSession("blog_post", "publish", "nested goal", "", "draft_outline")
	require.NoError(t, err)

	aborted, newTop, err := s.AbortWorkflow("not needed after all", child.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionpkg.StatusAborted, aborted.Status)
	assert.Equal(t, "not needed after all", aborted.AbortReason)
	assert.NotEmpty(t, aborted.CompletedAt)
	require.NotNil(t, newTop)
	assert.Equal(t, parent.SessionID, newTop.SessionID)
}

func TestStore_GetAllOutputs_LaterCompletionWinsOnKeyCollision(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	require.NoError(t, s.CompleteStep("draft_outline", map[string]interface{}{"shared": "from-outline"}, "", sess.SessionID))
	require.NoError(t, s.CompleteStep("write_draft", map[string]interface{}{"shared": "from-draft", "draft": "d.md"}, "", sess.SessionID))

	outputs, err := s.GetAllOutputs(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "from-draft", outputs["shared"])
	assert.Equal(t, "d.md", outputs["draft"])
}

func TestStore_ListSessions_SortedDescendingAndSkipsCorrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/proj/.deepwork/tmp")

	first, err := s.CreateSession("blog_post", "publish", "goal one", "", "draft_outline")
	require.NoError(t, err)
	first.StartedAt = "2026-01-01T00:00:00.000000Z"
	require.NoError(t, s.writeLocked(first))

	second, err := s.CreateSession("blog_post", "publish", "goal two", "", "draft_outline")
	require.NoError(t, err)
	second.StartedAt = "2026-06-01T00:00:00.000000Z"
	require.NoError(t, s.writeLocked(second))

	require.NoError(t, afero.WriteFile(fs, "/proj/.deepwork/tmp/session_garbage.json", []byte("{not json"), 0o644))

	sessions, err := s.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID)
	assert.Equal(t, first.SessionID, sessions[1].SessionID)
}

func TestStore_Resolve_EmptyStackErrors(t *testing.T) {
	s := newTestStore()
	_, err := s.Resolve("")
	assert.Error(t, err)
}

func TestStore_Resolve_UnknownSessionIDErrors(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	_, err = s.Resolve("does-not-exist")
	assert.Error(t, err)
}

func TestStore_DeleteSession_RemovesFileAndStackEntry(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(sess.SessionID))
	assert.Equal(t, 0, s.GetStackDepth())

	_, err = s.readByID(sess.SessionID)
	assert.Error(t, err)
}

func TestStore_GetStack_ReflectsCurrentTopAfterMutation(t *testing.T) {
	s := newTestStore()
	sess, err := s.CreateSession("blog_post", "publish", "goal", "", "draft_outline")
	require.NoError(t, err)
	require.NoError(t, s.AdvanceToStep("write_draft", 1, sess.SessionID))

	stack := s.GetStack()
	require.Len(t, stack, 1)
	assert.Equal(t, "blog_post/publish", stack[0].Workflow)
	assert.Equal(t, "write_draft", stack[0].Step)
}
