package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"

	"github.com/deepwork-ai/deepwork/internal/jobs"
	"github.com/deepwork-ai/deepwork/internal/qualitygate"
	"github.com/deepwork-ai/deepwork/internal/reviewer"
	sessionstore "github.com/deepwork-ai/deepwork/internal/session"
)

// ServerName is the name the MCP server advertises to clients.
const ServerName = "deepwork"

// ServerVersion is the protocol-facing version string.
const ServerVersion = "0.1.0"

// MaxQualityAttempts is the number of external review attempts a step gets.
// A failing review on the attempt that reaches it makes finished_step raise
// a fatal error instead of returning needs_work.
const MaxQualityAttempts = 3

// Server wires the job loader, state store and quality gate behind the
// four deepwork MCP tools.
type Server struct {
	mcp *server.MCPServer

	fs          afero.Fs
	projectRoot string
	folders     []string
	store       *sessionstore.Store

	qualityGateEnabled bool
	reviewerAdapter    reviewer.Adapter // nil => self-review mode
	tmpDir             string
}

// Config carries every dependency Server needs to assemble its tools.
type Config struct {
	FS                 afero.Fs
	ProjectRoot        string
	Folders            []string
	Store              *sessionstore.Store
	QualityGateEnabled bool
	ReviewerAdapter     reviewer.Adapter
	TmpDir             string
}

// New builds a Server and registers its tools on a fresh MCP server
// instance.
func New(cfg Config) *Server {
	s := &Server{
		mcp:                server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(true), server.WithRecovery()),
		fs:                 cfg.FS,
		projectRoot:        cfg.ProjectRoot,
		folders:            cfg.Folders,
		store:              cfg.Store,
		qualityGateEnabled: cfg.QualityGateEnabled,
		reviewerAdapter:    cfg.ReviewerAdapter,
		tmpDir:             cfg.TmpDir,
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying mcp-go server for transport wiring.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) loader() *jobs.Loader {
	return jobs.NewLoader(s.fs, s.folders)
}

// gateFor builds the quality gate for one invocation: external mode when a
// reviewer adapter is wired, self-review mode otherwise. Callers check
// qualityGateEnabled separately before deciding whether to invoke it at all.
func (s *Server) gateFor() *qualitygate.Gate {
	if s.reviewerAdapter != nil {
		return qualitygate.NewExternalGate(s.fs, s.reviewerAdapter, s.projectRoot, s.tmpDir)
	}
	return qualitygate.NewSelfReviewGate(s.fs, s.projectRoot, s.tmpDir)
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
