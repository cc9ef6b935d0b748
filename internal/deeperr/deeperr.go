// Package deeperr defines the error-kind taxonomy from the error handling
// design: parse errors never abort other jobs, while tool/state/quality-gate
// errors surface as MCP tool-call failures.
package deeperr

import (
	"errors"
	"fmt"
)

// Kind distinguishes the error categories the MCP tool layer reacts to
// differently.
type Kind string

const (
	KindParse        Kind = "parse"
	KindTool         Kind = "tool"
	KindState        Kind = "state"
	KindQualityGate  Kind = "quality_gate"
)

// Error wraps an underlying cause with a Kind so callers can branch on it
// with errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Tool builds a tool-error: unknown job/workflow, empty workflow, output
// validation failure, exhausted quality-attempt budget, missing output file.
func Tool(format string, args ...interface{}) *Error {
	return newf(KindTool, format, args...)
}

// State builds a state-error: no active session, unknown session id,
// session file missing on load.
func State(format string, args ...interface{}) *Error {
	return newf(KindState, format, args...)
}

// QualityGate builds a quality-gate error: reviewer adapter failure,
// malformed reviewer response, adapter not wired when external mode is
// expected.
func QualityGate(format string, args ...interface{}) *Error {
	return newf(KindQualityGate, format, args...)
}

// Wrap attaches Kind to an existing error without losing it for errors.Is/As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err (or anything it wraps) is a deeperr.Error of kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if de, ok := err.(*Error); ok && de.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
