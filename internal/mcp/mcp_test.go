package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/report"
	"github.com/deixis/gentest/internal/runner"
)

// setup creates a full gentest MCP server + client over in-memory transports.
func setup(t *testing.T, workspaceDir string, cfgOverride *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := cfgOverride
	if cfg == nil {
		cfg = &config.Config{}
	}

	store := report.NewLRUStore(5, report.NewDiskStore(t.TempDir()))
	r := &runner.Runner{
		Shell:   cfg.Shell(),
		Timeout: 30 * time.Second,
	}

	server := NewServer(cfg, r, store, workspaceDir)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// sessionID extracts the ID from a "Session: <id>" line.
func sessionID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Session: "); ok {
			return id
		}
	}
	t.Fatalf("no Session ID found in output:\n%s", text)
	return ""
}

// counterCommand prints a line that changes on every run.
func counterCommand(t *testing.T) string {
	t.Helper()
	counter := filepath.Join(t.TempDir(), "counter")
	return fmt.Sprintf(`n=$(cat %[1]s 2>/dev/null || echo 0); n=$((n+1)); echo $n > %[1]s; echo "build $n"; echo done`, counter)
}

func TestListTools(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"gentest_workspace", "gentest_generate", "gentest_inspect"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// --- gentest_workspace ---

func TestGentestWorkspace_Empty(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "gentest_workspace", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Config: defaults") {
		t.Errorf("expected default config, got:\n%s", text)
	}
	if !strings.Contains(text, "iterations:        2") {
		t.Errorf("expected default iterations, got:\n%s", text)
	}
	if !strings.Contains(text, "No reference directories.") {
		t.Errorf("expected no reference directories, got:\n%s", text)
	}
}

func TestGentestWorkspace_ListsReferences(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ref", "demo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "ref", "orphan"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "demo_test.go"), []byte("package demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cs := setup(t, dir, nil)
	text := resultText(callTool(t, cs, "gentest_workspace", nil))
	if !strings.Contains(text, "Reference directories (2):") {
		t.Errorf("expected two reference directories, got:\n%s", text)
	}
	if !strings.Contains(text, "demo_test.go") {
		t.Errorf("expected demo script, got:\n%s", text)
	}
	if !strings.Contains(text, "(no script)") {
		t.Errorf("expected orphan without script, got:\n%s", text)
	}
}

// --- gentest_generate ---

func TestGentestGenerate_Stable(t *testing.T) {
	dir := t.TempDir()
	cs := setup(t, dir, nil)
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command":    "echo hello; echo data > out.txt",
		"script":     "demo",
		"references": []string{"out.txt", "STDOUT"},
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Session: ") {
		t.Errorf("expected Session: in output, got:\n%s", text)
	}
	if !strings.Contains(text, "Test script generated: $(pwd)/demo_test.go") {
		t.Errorf("expected script path, got:\n%s", text)
	}
	if !strings.Contains(text, "gentest_inspect") {
		t.Errorf("expected gentest_inspect hint, got:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(dir, "demo_test.go")); err != nil {
		t.Errorf("script not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ref", "demo", "out.txt")); err != nil {
		t.Errorf("reference not copied: %v", err)
	}
}

func TestGentestGenerate_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	cs := setup(t, dir, nil)
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command":    "echo hi",
		"script":     "sub_demo",
		"references": []string{"STDOUT"},
		"dir":        "sub",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if _, err := os.Stat(filepath.Join(dir, "sub", "sub_demo_test.go")); err != nil {
		t.Errorf("script not written in dir: %v", err)
	}
}

func TestGentestGenerate_NonZeroExit(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command": "exit 3",
		"script":  "fails",
	})
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected IsError, got:\n%s", text)
	}
	if !strings.Contains(text, "Status: NON-ZERO EXIT") {
		t.Errorf("expected NON-ZERO EXIT status, got:\n%s", text)
	}
	if !strings.Contains(text, "NONZEROEXIT") {
		t.Errorf("expected suggested command, got:\n%s", text)
	}
}

func TestGentestGenerate_AllowedNonZeroExit(t *testing.T) {
	cs := setup(t, t.TempDir(), &config.Config{NonZeroExit: true})
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command": "exit 3",
		"script":  "fails",
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Expected exit code:    3") {
		t.Errorf("expected exit code 3 in summary, got:\n%s", text)
	}
}

func TestGentestGenerate_MissingCommand(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "gentest_generate",
		Arguments: map[string]any{"script": "demo"},
	})
	if err == nil {
		t.Error("expected error for missing command")
	}
}

func TestGentestGenerate_BadDir(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command": "echo hi",
		"dir":     "missing",
	})
	if !res.IsError {
		t.Error("expected IsError for missing dir")
	}
}

func TestGentestGenerate_ZeroIterations(t *testing.T) {
	dir := t.TempDir()
	cs := setup(t, dir, nil)
	res := callTool(t, cs, "gentest_generate", map[string]any{
		"command":    "echo hi > out.txt",
		"iterations": 0,
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "nothing generated") {
		t.Errorf("expected nothing generated, got:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); !os.IsNotExist(err) {
		t.Errorf("command should not have run: %v", err)
	}
}

// --- gentest_inspect ---

func TestGentestInspect_MissingSessionID(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "gentest_inspect",
		Arguments: map[string]any{"reference": "STDOUT"},
	})
	if err == nil {
		t.Error("expected error for missing session_id")
	}
}

func TestGentestInspect_UnknownSession(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "gentest_inspect", map[string]any{
		"session_id": "nonexistent-id",
	})
	if !res.IsError {
		t.Error("expected IsError for unknown session_id")
	}
}

func TestGentestInspect_AfterGenerate(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)

	genRes := callTool(t, cs, "gentest_generate", map[string]any{
		"command":    counterCommand(t),
		"script":     "counter",
		"references": []string{"STDOUT"},
	})
	genText := resultText(genRes)
	if genRes.IsError {
		t.Fatalf("unexpected error from gentest_generate: %s", genText)
	}
	id := sessionID(t, genText)

	sessRes := callTool(t, cs, "gentest_inspect", map[string]any{"session_id": id})
	sessText := resultText(sessRes)
	if sessRes.IsError {
		t.Fatalf("unexpected error from gentest_inspect: %s", sessText)
	}
	if !strings.Contains(sessText, "STDOUT") {
		t.Errorf("expected STDOUT reference, got:\n%s", sessText)
	}
	if !strings.Contains(sessText, "Regenerate: gentest generate") {
		t.Errorf("expected regenerate command, got:\n%s", sessText)
	}

	refRes := callTool(t, cs, "gentest_inspect", map[string]any{
		"session_id": id,
		"reference":  "stdout-missing",
	})
	if !refRes.IsError {
		t.Errorf("expected IsError for unknown reference")
	}
	if !strings.Contains(resultText(refRes), "available: STDOUT") {
		t.Errorf("expected available references, got:\n%s", resultText(refRes))
	}

	refRes = callTool(t, cs, "gentest_inspect", map[string]any{
		"session_id": id,
		"reference":  "STDOUT",
	})
	refText := resultText(refRes)
	if refRes.IsError {
		t.Fatalf("unexpected error: %s", refText)
	}
	if !strings.Contains(refText, "Ignore patterns:") {
		t.Errorf("expected ignore patterns for varying line, got:\n%s", refText)
	}
}
