package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/deepwork-ai/deepwork/internal/config"
	"github.com/deepwork-ai/deepwork/internal/jobs"
	"github.com/deepwork-ai/deepwork/internal/logging"
	"github.com/deepwork-ai/deepwork/internal/mcpserver"
	"github.com/deepwork-ai/deepwork/internal/reviewer"
	"github.com/deepwork-ai/deepwork/internal/session"
	"github.com/deepwork-ai/deepwork/internal/standardjobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deepwork MCP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Initialize(false)

	fs := afero.NewOsFs()
	tmpDir := jobs.TmpDir(cfg.Path)
	if err := fs.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpDir, err)
	}

	folders := jobs.FoldersInPriorityOrder(cfg.Path, standardjobs.Dir(), os.Getenv(jobs.EnvAdditionalFolders))

	var adapter reviewer.Adapter
	switch cfg.ExternalRunner {
	case config.ExternalRunnerClaude:
		adapter = reviewer.NewClaudeCLIReviewer("claude")
	}

	srv := mcpserver.New(mcpserver.Config{
		FS:                 fs,
		ProjectRoot:        cfg.Path,
		Folders:            folders,
		Store:              session.NewStore(fs, tmpDir),
		QualityGateEnabled: !cfg.NoQualityGate,
		ReviewerAdapter:    adapter,
		TmpDir:             tmpDir,
	})

	switch cfg.Transport {
	case config.TransportSSE:
		return serveSSE(srv, cfg.Port)
	default:
		logging.Info("deepwork serving over stdio (project root %s)", cfg.Path)
		return srv.ServeStdio()
	}
}

func serveSSE(srv *mcpserver.Server, port int) error {
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(
		srv.MCPServer(),
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	addr := fmt.Sprintf(":%d", port)
	logging.Info("deepwork serving over sse on %s", addr)
	httpServer := &http.Server{Addr: addr, Handler: sseServer}
	return httpServer.ListenAndServe()
}
