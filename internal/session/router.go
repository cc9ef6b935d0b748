package session

import (
	"github.com/deepwork-ai/deepwork/internal/deeperr"
	sessionpkg "github.com/deepwork-ai/deepwork/pkg/session"
)

// Router resolves an optional session identifier parameter to a specific
// session on the stack, falling back to the top of the stack when none is
// supplied.
type Router struct {
	stack *Stack
}

// NewRouter builds a Router over the given stack.
func NewRouter(stack *Stack) *Router {
	return &Router{stack: stack}
}

// Resolve returns the session named by sessionID, or the top of the stack
// when sessionID is empty. It errors when a given sessionID isn't found on
// the stack, or when the stack is empty and no sessionID was given.
func (r *Router) Resolve(sessionID string) (*sessionpkg.WorkflowSession, error) {
	if sessionID != "" {
		sess := r.stack.FindByID(sessionID)
		if sess == nil {
			return nil, deeperr.State("no active session with id %q", sessionID)
		}
		return sess, nil
	}

	top := r.stack.Top()
	if top == nil {
		return nil, deeperr.State("no active workflow session; start one with start_workflow before calling finished_step, abort_workflow, or omitting session_id")
	}
	return top, nil
}
