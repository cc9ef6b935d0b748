// Package session implements the state store: on-disk persistence of
// workflow sessions and the in-memory session stack, serialized behind a
// single process-local mutex.
package session

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

// Store owns every on-disk session file and the in-memory session stack for
// one project root.
type Store struct {
	fs     afero.Fs
	tmpDir string
	mu     sync.Mutex
	stack  *Stack
	router *Router
}

// NewStore builds a Store rooted at tmpDir (typically
// {project_root}/.deepwork/tmp).
func NewStore(fs afero.Fs, tmpDir string) *Store {
	stack := NewStack()
	return &Store{
		fs:     fs,
		tmpDir: tmpDir,
		stack:  stack,
		router: NewRouter(stack),
	}
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.tmpDir, fmt.Sprintf("session_%s.json", id))
}

func (s *Store) writeLocked(sess *sessionpkg.WorkflowSession) error {
	if err := s.fs.MkdirAll(s.tmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tmp dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.sessionPath(sess.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *Store) readByID(id string) (*sessionpkg.WorkflowSession, error) {
	data, err := afero.ReadFile(s.fs, s.sessionPath(id))
	if err != nil {
		return nil, deeperr.State("session file for %q does not exist", id)
	}
	var sess sessionpkg.WorkflowSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("corrupted session file for %q: %w", id, err)
	}
	return &sess, nil
}

// CreateSession generates a session id, writes its file, and pushes it onto
// the top of the stack.
func (s *Store) CreateSession(jobName, workflowName, goal, instanceID, firstStepID string) (*sessionpkg.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	sess := &sessionpkg.WorkflowSession{
		SessionID:         id,
		JobName:           jobName,
		WorkflowName:      workflowName,
		Goal:              goal,
		InstanceID:        instanceID,
		CurrentStepID:     firstStepID,
		CurrentEntryIndex: 0,
		Status:            sessionpkg.StatusActive,
		StartedAt:         nowISO(),
		StepProgress:      map[string]*sessionpkg.StepProgress{},
	}

	if err := s.writeLocked(sess); err != nil {
		return nil, err
	}
	s.stack.Push(sess)
	return sess, nil
}

// LoadSession reads a session file and makes it the resident top-of-stack
// session (replacing whatever was there, or pushing if the stack was
// empty).
func (s *Store) LoadSession(id string) (*sessionpkg.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.readByID(id)
	if err != nil {
		return nil, err
	}
	s.stack.ReplaceTop(sess)
	return sess, nil
}

func (s *Store) resolveLocked(sessionID string) (*sessionpkg.WorkflowSession, error) {
	return s.router.Resolve(sessionID)
}

// Resolve returns the session named by sessionID (or the top of the stack
// when sessionID is empty) without mutating it. See Router.Resolve.
func (s *Store) Resolve(sessionID string) (*sessionpkg.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(sessionID)
}

func (s *Store) progressFor(sess *sessionpkg.WorkflowSession, stepID string) *sessionpkg.StepProgress {
	if sess.StepProgress == nil {
		sess.StepProgress = map[string]*sessionpkg.StepProgress{}
	}
	p, ok := sess.StepProgress[stepID]
	if !ok {
		p = &sessionpkg.StepProgress{StepID: stepID}
		sess.StepProgress[stepID] = p
	}
	return p
}

// StartStep marks a step as started on the resolved session.
func (s *Store) StartStep(stepID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return err
	}
	p := s.progressFor(sess, stepID)
	p.StartedAt = nowISO()
	return s.writeLocked(sess)
}

// CompleteStep records a step's submitted outputs and notes as completed.
func (s *Store) CompleteStep(stepID string, outputs map[string]interface{}, notes, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return err
	}
	p := s.progressFor(sess, stepID)
	p.Outputs = outputs
	p.Notes = notes
	p.CompletedAt = nowISO()
	return s.writeLocked(sess)
}

// RecordQualityAttempt increments the quality-attempt counter for a step.
// In external-review mode this is called before the reviewer runs.
func (s *Store) RecordQualityAttempt(stepID, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return 0, err
	}
	p := s.progressFor(sess, stepID)
	p.QualityAttempts++
	if err := s.writeLocked(sess); err != nil {
		return 0, err
	}
	return p.QualityAttempts, nil
}

// AdvanceToStep updates the session's current step and workflow entry
// index.
func (s *Store) AdvanceToStep(stepID string, entryIndex int, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return err
	}
	sess.CurrentStepID = stepID
	sess.CurrentEntryIndex = entryIndex
	return s.writeLocked(sess)
}

// CompleteWorkflow marks the resolved session completed and removes it from
// the stack, wherever it sits. It returns the new top-of-stack session, if
// any.
func (s *Store) CompleteWorkflow(sessionID string) (*sessionpkg.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Status = sessionpkg.StatusCompleted
	sess.CompletedAt = nowISO()
	if err := s.writeLocked(sess); err != nil {
		return nil, err
	}
	s.stack.Remove(sess.SessionID)
	return s.stack.Top(), nil
}

// AbortWorkflow marks the resolved session aborted with reason and removes
// it from the stack, wherever it sits. It returns the aborted session and
// the new top-of-stack session, if any.
func (s *Store) AbortWorkflow(reason, sessionID string) (aborted, newTop *sessionpkg.WorkflowSession, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return nil, nil, err
	}
	sess.Status = sessionpkg.StatusAborted
	sess.AbortReason = reason
	sess.CompletedAt = nowISO()
	if err := s.writeLocked(sess); err != nil {
		return nil, nil, err
	}
	s.stack.Remove(sess.SessionID)
	return sess, s.stack.Top(), nil
}

// GetAllOutputs merges the outputs of every completed step on the resolved
// session, in step-completion order, later wins on key collision.
func (s *Store) GetAllOutputs(sessionID string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.resolveLocked(sessionID)
	if err != nil {
		return nil, err
	}

	type completed struct {
		at   string
		outs map[string]interface{}
	}
	var all []completed
	for _, p := range sess.StepProgress {
		if p.CompletedAt == "" {
			continue
		}
		all = append(all, completed{at: p.CompletedAt, outs: p.Outputs})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })

	merged := make(map[string]interface{})
	for _, c := range all {
		for k, v := range c.outs {
			merged[k] = v
		}
	}
	return merged, nil
}

// ListSessions scans every session_*.json file, skipping corrupted ones,
// and returns them sorted by started_at descending.
func (s *Store) ListSessions() ([]*sessionpkg.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.DirExists(s.fs, s.tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tmp dir: %w", err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(s.fs, s.tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tmp dir: %w", err)
	}

	var sessions []*sessionpkg.WorkflowSession
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := afero.ReadFile(s.fs, filepath.Join(s.tmpDir, name))
		if err != nil {
			continue
		}
		var sess sessionpkg.WorkflowSession
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		sessions = append(sessions, &sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt > sessions[j].StartedAt
	})
	return sessions, nil
}

// FindActiveSessionsForWorkflow filters ListSessions by job, workflow and
// active status.
func (s *Store) FindActiveSessionsForWorkflow(jobName, workflowName string) ([]*sessionpkg.WorkflowSession, error) {
	all, err := s.ListSessions()
	if err != nil {
		return nil, err
	}
	var out []*sessionpkg.WorkflowSession
	for _, sess := range all {
		if sess.JobName == jobName && sess.WorkflowName == workflowName && sess.Status == sessionpkg.StatusActive {
			out = append(out, sess)
		}
	}
	return out, nil
}

// DeleteSession removes a session's file (if present) and removes it from
// the stack (if present).
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.sessionPath(id))
	if err != nil {
		return fmt.Errorf("failed to stat session file: %w", err)
	}
	if exists {
		if err := s.fs.Remove(s.sessionPath(id)); err != nil {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
	}
	s.stack.Remove(id)
	return nil
}

// GetStack returns the {workflow, step} view of the stack, bottom to top.
func (s *Store) GetStack() []sessionpkg.StackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.Entries()
}

// GetStackDepth returns the number of active sessions on the stack.
func (s *Store) GetStackDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.Depth()
}

// Top returns the top-of-stack session, or nil if empty.
func (s *Store) Top() *sessionpkg.WorkflowSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.Top()
}
