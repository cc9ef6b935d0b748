// Package logging provides level-based logging for the deepwork server.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/deepwork-ai/deepwork/internal/deeperr"
)

// Logger provides level-based logging functionality.
type Logger struct {
	debugEnabled bool
	infoLogger   *log.Logger
	debugLogger  *log.Logger
}

var globalLogger *Logger

// Initialize sets up the global logger with debug mode setting. All logging
// goes to stderr to avoid polluting stdout, which carries the stdio MCP
// protocol.
func Initialize(debugMode bool) {
	var output io.Writer = os.Stderr

	globalLogger = &Logger{
		debugEnabled: debugMode,
		infoLogger:   log.New(output, "", log.LstdFlags),
		debugLogger:  log.New(output, "", log.LstdFlags),
	}
}

// Info logs informational messages (always shown).
func Info(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.infoLogger.Printf(format, args...)
	}
}

// Debug logs debug messages (only shown when debug mode is enabled).
func Debug(format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.debugEnabled {
		globalLogger.debugLogger.Printf("DEBUG: "+format, args...)
	}
}

// Error logs error messages (always shown).
func Error(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.infoLogger.Printf("ERROR: "+format, args...)
	}
}

// IsDebugEnabled reports whether debug logging is enabled.
func IsDebugEnabled() bool {
	return globalLogger != nil && globalLogger.debugEnabled
}

// sessionTag renders a session id for a log line, substituting a
// placeholder when a tool call hasn't resolved one yet (start_workflow, or
// a failure before session resolution).
func sessionTag(sessionID string) string {
	if sessionID == "" {
		return "-"
	}
	return sessionID
}

// ToolCall logs the outcome of one MCP tool invocation, tagging the line
// with the tool name and session id so server logs can be grepped per
// session across a multi-step workflow run. A non-nil err is logged at
// error level with its deeperr.Kind attached; success is logged at debug
// level only.
func ToolCall(tool, sessionID string, err error) {
	if err == nil {
		Debug("tool=%s session=%s ok", tool, sessionTag(sessionID))
		return
	}
	kind := "unknown"
	if de, ok := err.(*deeperr.Error); ok {
		kind = string(de.Kind)
	}
	Error("tool=%s session=%s kind=%s err=%v", tool, sessionTag(sessionID), kind, err)
}
