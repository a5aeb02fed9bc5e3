package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/gentest/internal/refset"
	"github.com/deixis/gentest/internal/session"
)

type generateParams struct {
	Command       string   `json:"command" jsonschema:"shell command to turn into a test (e.g. ./build.sh --out dist)"`
	Script        string   `json:"script,omitempty" jsonschema:"path of the test script to write, forced to end in _test.go. Defaults to a name derived from the command."`
	References    []string `json:"references,omitempty" jsonschema:"files, directories or glob patterns the command writes, relative to dir. STDOUT, STDERR and NONZEROEXIT check the streams and allow a non-zero exit code. Defaults to the whole directory."`
	Dir           string   `json:"dir,omitempty" jsonschema:"directory to run the command in, relative to the workspace. Default: the workspace."`
	Iterations    *int     `json:"iterations,omitempty" jsonschema:"number of runs used to spot varying content. Default: 2. Zero generates nothing."`
	MaxFiles      int      `json:"max_files,omitempty" jsonschema:"maximum number of files to snapshot before running. Default: 10000."`
	RelativePaths bool     `json:"relative_paths,omitempty" jsonschema:"make the generated script locate its references relative to its own directory"`
}

func (h *handler) generateHandler(ctx context.Context, req *mcp.CallToolRequest, params generateParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Command) == "" {
		return errorResult("command is required")
	}

	cfg, workspace, r := h.current()

	cwd := workspace
	if params.Dir != "" {
		cwd = params.Dir
		if !filepath.IsAbs(cwd) {
			cwd = filepath.Join(workspace, cwd)
		}
	}
	if info, err := os.Stat(cwd); err != nil || !info.IsDir() {
		return errorResult(fmt.Sprintf("dir %s is not a directory", cwd))
	}

	opts := session.NewOptions(cfg, cwd, params.Command, params.Script, params.References)
	if params.Iterations != nil {
		if *params.Iterations < 0 {
			return errorResult("iterations must not be negative")
		}
		opts.Iterations = *params.Iterations
	}
	if params.MaxFiles > 0 {
		opts.MaxFiles = params.MaxFiles
	}
	if params.RelativePaths {
		opts.RelativePaths = true
	}

	g := &session.Generator{
		Options: opts,
		Runner:  r,
		Logger:  h.logger,
		Store:   h.store,
	}
	res, err := g.Generate(ctx)
	if err != nil {
		return errorResult(formatGenerateError(err))
	}
	return textResult(formatGenerate(g, res))
}

// formatGenerateError labels the fatal session errors so the model can tell
// a broken command from a session that needs different arguments.
func formatGenerateError(err error) string {
	var (
		launch   *session.LaunchError
		exit     *session.ExitCodeError
		overflow *refset.OverflowError
	)
	switch {
	case errors.As(err, &launch):
		return "Status: LAUNCH FAILED\n\n" + err.Error()
	case errors.As(err, &exit):
		return "Status: NON-ZERO EXIT\n\n" + err.Error()
	case errors.As(err, &overflow):
		return "Status: TOO MANY FILES\n\n" + err.Error()
	}
	return fmt.Sprintf("generate failed: %v", err)
}

func formatGenerate(g *session.Generator, res *session.Result) string {
	var b strings.Builder

	if res.Report == nil {
		b.WriteString(g.Summary(res))
		return b.String()
	}

	fmt.Fprintf(&b, "Session: %s\n\n", res.ID)
	b.WriteString(g.Summary(res))

	if len(res.Exclusions) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Exclusions:")
		names := make([]string, 0, len(res.Exclusions))
		for name := range res.Exclusions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			set := res.Exclusions[name]
			fmt.Fprintf(&b, "  %-20s %d pattern(s), %d removal(s)\n", name, len(set.Patterns), len(set.Removals))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Warnings:")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	fmt.Fprintf(&b, "\nUse gentest_inspect with session_id=%s for the exclusions of each reference.\n", res.ID)
	return b.String()
}
