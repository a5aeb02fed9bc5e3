// Package mcp provides the gentest MCP server, registering its tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deixis/gentest"
	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/logging"
	"github.com/deixis/gentest/internal/report"
	"github.com/deixis/gentest/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // guards cfg, workspace and runner settings
	cfg       *config.Config
	workspace string
	runner    *runner.Runner
	store     report.Store
	logger    *zap.Logger
}

// NewServer creates an MCP server with all gentest tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		cfg:       cfg,
		workspace: workspace,
		runner:    r,
		store:     store,
		logger:    logging.OrNop(so.logger),
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "gentest", Version: gentest.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "gentest_workspace",
		Description: "Summarise the workspace: effective gentest settings and existing reference directories.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "gentest_generate",
		Description: `Turn a shell command into a reference test.

Runs the command repeatedly in the workspace, saves the files it writes (and optionally stdout/stderr)
under ref/<name>/, derives regular expressions for content that changes between runs or depends on
the machine, and writes a Go test script that re-runs the command and compares against the references.
Results are stored for drill-down via gentest_inspect.`,
	}, h.generateHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "gentest_inspect",
		Description: `Drill into a session from gentest_generate.

Use the session_id from the generate output. Without a reference, lists every checked output with
its exclusion counts. With a reference name (e.g. STDOUT or out.txt), shows its ignore patterns
and removed lines.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the gentest MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used by generation sessions.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's workspace, runner and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.logger.Warn("ignoring workspace root", zap.String("root", workspace), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.runner.Shell = loaded.Config.Shell()
	h.runner.Timeout = loaded.Config.Timeout()
	h.cfg = loaded.Config
	h.workspace = workspace
}

// current returns the config, workspace and a copy of the runner in
// effect for a tool call.
func (h *handler) current() (*config.Config, string, *runner.Runner) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := *h.runner
	return h.cfg, h.workspace, &r
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
