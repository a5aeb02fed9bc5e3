package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/gentest/internal/report"
)

type inspectParams struct {
	SessionID string `json:"session_id" jsonschema:"the session ID from a gentest_generate result"`
	Reference string `json:"reference,omitempty" jsonschema:"reference name (e.g. STDOUT or out.txt), source path or reference copy path. Omit to list all references."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.SessionID == "" {
		return errorResult("session_id is required")
	}

	s, err := h.store.Load(params.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load session %s: %v", params.SessionID, err))
	}

	if params.Reference == "" {
		return textResult(formatSession(s))
	}

	ref, err := s.Reference(params.Reference)
	if err != nil {
		return errorResult(fmt.Sprintf("%v (available: %s)", err, strings.Join(s.ReferenceNames(), ", ")))
	}
	return textResult(formatReference(s, ref))
}

func formatSession(s *report.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", s.ID)
	fmt.Fprintf(&b, "Command: %s\n", s.Command)
	fmt.Fprintf(&b, "Directory: %s\n", s.Cwd)
	fmt.Fprintf(&b, "Script: %s\n", s.Script)
	fmt.Fprintf(&b, "Iterations: %d\n", s.Iterations)
	fmt.Fprintf(&b, "Exit code: %d\n", s.ExitCode)
	fmt.Fprintf(&b, "Regenerate: %s\n", s.GenCommand)
	fmt.Fprintln(&b)

	if len(s.References) == 0 {
		fmt.Fprintln(&b, "No references.")
	} else {
		fmt.Fprintf(&b, "References (%d, %d exclusions):\n", len(s.References), s.ExclusionCount())
		for _, r := range s.References {
			fmt.Fprintf(&b, "  %-20s %d pattern(s), %d removal(s)\n", r.Name, len(r.Patterns), len(r.Removals))
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Warnings:")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	return b.String()
}

func formatReference(s *report.Session, r *report.Reference) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", s.ID)
	fmt.Fprintf(&b, "Reference: %s\n", r.Name)
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Copy: %s\n", r.Copy)
	fmt.Fprintln(&b)

	if len(r.Patterns) == 0 && len(r.Removals) == 0 {
		fmt.Fprintln(&b, "No exclusions: the output must match exactly.")
		return b.String()
	}
	if len(r.Patterns) > 0 {
		fmt.Fprintln(&b, "Ignore patterns:")
		for _, p := range r.Patterns {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	if len(r.Removals) > 0 {
		if len(r.Patterns) > 0 {
			fmt.Fprintln(&b)
		}
		fmt.Fprintln(&b, "Removed lines:")
		for _, l := range r.Removals {
			fmt.Fprintf(&b, "  %q\n", l)
		}
	}
	return b.String()
}
