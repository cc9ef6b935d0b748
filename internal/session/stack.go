package session

import (
	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

// Stack is the in-memory ordered collection of active sessions. It is not a
// pure stack: any element may be removed, not only the top. Bottom is
// oldest, top is newest/active. Depth rarely exceeds 2, so linear scans are
// favored over a specialized structure.
type Stack struct {
	entries []*sessionpkg.WorkflowSession
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push adds a session to the top of the stack.
func (s *Stack) Push(sess *sessionpkg.WorkflowSession) {
	s.entries = append(s.entries, sess)
}

// Top returns the top-of-stack session, or nil if the stack is empty.
func (s *Stack) Top() *sessionpkg.WorkflowSession {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// ReplaceTop swaps the top-of-stack session for sess, or pushes sess if the
// stack is empty.
func (s *Stack) ReplaceTop(sess *sessionpkg.WorkflowSession) {
	if len(s.entries) == 0 {
		s.Push(sess)
		return
	}
	s.entries[len(s.entries)-1] = sess
}

// FindByID searches the entire stack for a session with the given id.
func (s *Stack) FindByID(id string) *sessionpkg.WorkflowSession {
	for _, e := range s.entries {
		if e.SessionID == id {
			return e
		}
	}
	return nil
}

// Remove removes the session with the given id from wherever it sits in the
// stack. It reports whether a session was removed.
func (s *Stack) Remove(id string) bool {
	for i, e := range s.entries {
		if e.SessionID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns the {workflow, step} view of every session, bottom to
// top.
func (s *Stack) Entries() []sessionpkg.StackEntry {
	out := make([]sessionpkg.StackEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Entry())
	}
	return out
}

// Depth returns the number of sessions on the stack.
func (s *Stack) Depth() int {
	return len(s.entries)
}
