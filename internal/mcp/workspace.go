package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/gentest/internal/config"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *mcp.CallToolRequest, _ workspaceParams) (*mcp.CallToolResult, any, error) {
	cfg, workspace, r := h.current()

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n", workspace)
	if _, err := os.Stat(filepath.Join(workspace, config.FileName)); err == nil {
		fmt.Fprintf(&b, "Config: %s\n", config.FileName)
	} else {
		fmt.Fprintln(&b, "Config: defaults")
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Settings:")
	fmt.Fprintf(&b, "  iterations:        %d\n", cfg.Iterations())
	fmt.Fprintf(&b, "  max_files:         %d\n", cfg.MaxFiles())
	fmt.Fprintf(&b, "  max_date_variants: %d\n", cfg.MaxDateVariants())
	fmt.Fprintf(&b, "  check_stdout:      %t\n", cfg.CheckStdout)
	fmt.Fprintf(&b, "  check_stderr:      %t\n", cfg.CheckStderr)
	fmt.Fprintf(&b, "  nonzero_exit:      %t\n", cfg.NonZeroExit)
	fmt.Fprintf(&b, "  relative_paths:    %t\n", cfg.RelativePaths)
	fmt.Fprintf(&b, "  shell:             %s\n", r.Shell)
	if r.Timeout > 0 {
		fmt.Fprintf(&b, "  timeout:           %s\n", r.Timeout)
	}
	fmt.Fprintln(&b)

	refs, err := referenceDirs(workspace)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list reference directories: %v", err))
	}
	if len(refs) == 0 {
		fmt.Fprintln(&b, "No reference directories.")
		return textResult(b.String())
	}
	fmt.Fprintf(&b, "Reference directories (%d):\n", len(refs))
	for _, name := range refs {
		script := name + "_test.go"
		if _, err := os.Stat(filepath.Join(workspace, script)); err != nil {
			script = "(no script)"
		}
		fmt.Fprintf(&b, "  ref/%-20s %s\n", name, script)
	}
	return textResult(b.String())
}

// referenceDirs lists the directories under ref/ in workspace.
func referenceDirs(workspace string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(workspace, "ref"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
