package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/refset"
	"github.com/deixis/gentest/internal/report"
	"github.com/deixis/gentest/internal/runner"
	"github.com/deixis/gentest/internal/specific"
	"github.com/deixis/gentest/refcheck"
)

func newGenerator(t *testing.T, command string, refs ...string) *Generator {
	t.Helper()
	return &Generator{
		Options: Options{
			Args:       ParseArgs(refs),
			Cwd:        t.TempDir(),
			Command:    command,
			Script:     "demo",
			Iterations: 2,
			Package:    "demo",
		},
		Runner:   &runner.Runner{},
		Logger:   zaptest.NewLogger(t),
		Identity: &specific.Identity{Host: "myhost"},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func matchesAny(patterns []string, line string) bool {
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(line) {
			return true
		}
	}
	return false
}

func TestParseArgs(t *testing.T) {
	got := ParseArgs([]string{"stdout", "out.txt", "Stderr", "nonzeroexit"})
	want := Args{References: []string{"out.txt"}, CheckStdout: true, CheckStderr: true, AllowNonZero: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseArgs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"."}, ParseArgs([]string{"STDOUT"}).References)
	assert.Equal(t, []string{"."}, ParseArgs(nil).References)
}

func TestNewOptions(t *testing.T) {
	three := 3
	cfg := &config.Config{RawIterations: &three, CheckStderr: true, RelativePaths: true, Ignore: []string{"vendor"}}
	o := NewOptions(cfg, "/work", "make", "", []string{"stdout", "build"})

	assert.Equal(t, 3, o.Iterations)
	assert.Equal(t, config.DefaultMaxFiles, o.MaxFiles)
	assert.Equal(t, config.DefaultMaxDateVariants, o.MaxDateVariants)
	assert.True(t, o.CheckStdout)
	assert.True(t, o.CheckStderr, "config enables stderr checks")
	assert.False(t, o.AllowNonZero)
	assert.True(t, o.RelativePaths)
	assert.Equal(t, []string{"build"}, o.References)
	assert.Equal(t, []string{"vendor"}, o.Ignore)
}

func TestGenerate_StableOutput(t *testing.T) {
	g := newGenerator(t, "echo hello; echo stable > out.txt", "STDOUT")
	cwd := g.Options.Cwd

	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "demo_test.go"), res.Script)
	assert.Equal(t, filepath.Join(cwd, "ref", "demo"), res.RefDir)
	assert.Equal(t, []string{filepath.Join(cwd, "out.txt")}, res.Files)
	assert.Equal(t, "hello\n", readFile(t, filepath.Join(res.RefDir, "STDOUT")))
	assert.Equal(t, "stable\n", readFile(t, filepath.Join(res.RefDir, "out.txt")))
	assert.Equal(t, "stable\n", readFile(t, filepath.Join(res.RefDir, "2", "out.txt")))

	for name, set := range res.Exclusions {
		assert.True(t, set.Empty(), "%s: %+v", name, set)
	}
	assert.Contains(t, res.Exclusions, "STDOUT")
	assert.Contains(t, res.Exclusions, "out.txt")

	src := readFile(t, res.Script)
	assert.Contains(t, src, "package demo")
	assert.Contains(t, src, "func TestDemo_Stdout(t *testing.T) {")
	assert.Contains(t, src, "func TestDemo_out_txt(t *testing.T) {")
	assert.Contains(t, src, "gentest generate 'echo hello; echo stable > out.txt' demo_test.go . STDOUT")
	assert.Empty(t, res.Warnings)
}

func TestGenerate_VaryingLineBecomesPattern(t *testing.T) {
	counter := filepath.Join(t.TempDir(), "count")
	command := fmt.Sprintf(`n=$(cat %[1]s 2>/dev/null || echo 0); n=$((n+1)); echo $n > %[1]s; `+
		`echo header; echo "Run at 2024-01-05 10:00:0$n on host alpha"`, counter)
	g := newGenerator(t, command, "STDOUT")

	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	set := res.Exclusions["STDOUT"]
	require.NotEmpty(t, set.Patterns)
	assert.True(t, matchesAny(set.Patterns, "Run at 2024-01-05 10:00:01 on host alpha"))
	assert.True(t, matchesAny(set.Patterns, "Run at 2024-01-05 10:00:02 on host alpha"))
	assert.False(t, matchesAny(set.Patterns, "Run at 1999-01-05 10:00:00 on host alpha"))
	assert.False(t, matchesAny(set.Patterns, "header"))
	assert.Empty(t, set.Removals)
}

func TestGenerate_UnchangedHostGetsLiteral(t *testing.T) {
	g := newGenerator(t, "echo built on myhost", "STDOUT")
	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"myhost"}, res.Exclusions["STDOUT"].Patterns)
	assert.Contains(t, readFile(t, res.Script), "`myhost`")
}

func TestGenerate_HostLiteralPortsToOtherHost(t *testing.T) {
	g := newGenerator(t, "echo built on myhost; echo done", "STDOUT")
	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	set := res.Exclusions[Stdout]
	ref := filepath.Join(res.RefDir, Stdout)
	n, msgs := refcheck.CheckString("built on otherhost\ndone\n", ref,
		refcheck.IgnorePatterns(set.Patterns...), refcheck.RemoveLines(set.Removals...))
	assert.Equal(t, 0, n, "%v", msgs)

	n, _ = refcheck.CheckString("built on otherhost\nfailed\n", ref,
		refcheck.IgnorePatterns(set.Patterns...), refcheck.RemoveLines(set.Removals...))
	assert.Equal(t, 1, n)
}

func TestGenerate_NonZeroExit(t *testing.T) {
	g := newGenerator(t, "echo partial > out.txt; exit 3")
	_, err := g.Generate(context.Background())

	var exitErr *ExitCodeError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.True(t, strings.HasSuffix(exitErr.Command, " NONZEROEXIT"), exitErr.Command)
	assert.Contains(t, err.Error(), "Test script not generated.")
	assert.NoFileExists(t, filepath.Join(g.Options.Cwd, "demo_test.go"))

	g.Options.AllowNonZero = true
	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, readFile(t, res.Script), "if out.ExitCode != 3 {")
}

func TestGenerate_LaunchFailure(t *testing.T) {
	g := newGenerator(t, "true")
	g.Runner = &runner.Runner{Shell: "/nonexistent/shell"}
	_, err := g.Generate(context.Background())

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr), "got %v", err)
	assert.Equal(t, "true", launchErr.Command)
}

func TestGenerate_SnapshotOverflow(t *testing.T) {
	g := newGenerator(t, "true")
	g.Options.MaxFiles = 2
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(g.Options.Cwd, fmt.Sprintf("f%d", i)), nil, 0o644))
	}

	_, err := g.Generate(context.Background())
	var overflow *refset.OverflowError
	require.True(t, errors.As(err, &overflow), "got %v", err)
	assert.Contains(t, overflow.Command, "--max-files 20")
}

func TestGenerate_ZeroIterations(t *testing.T) {
	g := newGenerator(t, "echo x > out.txt")
	g.Options.Iterations = 0
	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Runs)
	entries, err := os.ReadDir(g.Options.Cwd)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, g.Summary(res), "nothing generated")
}

func TestGenerate_SingleIterationHasNoExclusions(t *testing.T) {
	g := newGenerator(t, "echo built on myhost", "STDOUT")
	g.Options.Iterations = 1
	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Exclusions)
	assert.NoDirExists(t, filepath.Join(res.RefDir, "2"))
}

func TestGenerate_CopyCollisions(t *testing.T) {
	g := newGenerator(t, "mkdir -p a b; echo 1 > a/out.txt; echo 2 > b/out.txt; echo 3 > stdout", "STDOUT")
	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1\n", readFile(t, filepath.Join(res.RefDir, "out.txt")))
	assert.Equal(t, "2\n", readFile(t, filepath.Join(res.RefDir, "out.txt1")))
	assert.Equal(t, "3\n", readFile(t, filepath.Join(res.RefDir, "stdout1")))
	assert.Equal(t, "", readFile(t, filepath.Join(res.RefDir, "STDOUT")))
	for _, f := range res.Files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.False(t, info.IsDir(), f)
	}

	src := readFile(t, res.Script)
	assert.Contains(t, src, `"ref/demo/out.txt1"`)
	assert.Contains(t, src, "TestDemo_out_txt2")
}

func TestGenerate_UnmatchedGlobWarns(t *testing.T) {
	g := newGenerator(t, "echo x > out.txt", "*.nomatch", "out.txt")
	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "matched no files")
	assert.Equal(t, []string{filepath.Join(g.Options.Cwd, "out.txt")}, res.Files)
}

func TestGenerate_ReusesReferenceDirectory(t *testing.T) {
	g := newGenerator(t, "echo fresh > out.txt")
	stale := filepath.Join(g.Options.Cwd, "ref", "demo", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(g.Options.Cwd, "demo_test.go"), []byte("old"), 0o644))

	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.NotEqual(t, "old", readFile(t, res.Script))
}

func TestGenerate_SavesReport(t *testing.T) {
	g := newGenerator(t, "echo hi", "STDOUT")
	store := report.NewDiskStore(t.TempDir())
	g.Store = store

	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	got, err := store.Load(res.ID)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", got.Command)
	ref, err := got.Reference("STDOUT")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(res.RefDir, "STDOUT"), ref.Copy)
}

func TestCommand(t *testing.T) {
	g := &Generator{Options: Options{
		Args:       Args{References: []string{"out dir"}, CheckStderr: true},
		Cwd:        "/work",
		Command:    "echo 'hi'",
		Script:     "greet",
		Iterations: 3,
		MaxFiles:   refset.DefaultMaxFiles,
	}}
	assert.Equal(t, `gentest generate --iterations 3 'echo '\''hi'\''' greet_test.go 'out dir' STDERR`, g.Command(false))
	assert.True(t, strings.HasSuffix(g.Command(true), " STDERR NONZEROEXIT"))
}

func TestSummary(t *testing.T) {
	g := &Generator{Options: Options{
		Args:    Args{References: []string{"."}, CheckStdout: true},
		Cwd:     "/work",
		Command: "make report",
	}}
	res := &Result{
		Script: "/work/report_test.go",
		Files:  []string{"/work/out/report.txt", "/elsewhere/log"},
		Runs: []*runner.Result{{
			Stdout:   "done\n",
			Stderr:   strings.Repeat("warning: slow\n", 5),
			Duration: 1500 * time.Millisecond,
		}},
	}
	want := `Command execution took: 1.50s

SUMMARY:

Directory to run in:   /work
Shell command:         make report
Test script generated: $(pwd)/report_test.go
Reference files:
    $(pwd)/out/report.txt
    /elsewhere/log
Check stdout:          yes (was "done\n")
Check stderr:          no (was 5 lines)
Expected exit code:    0
`
	if diff := cmp.Diff(want, g.Summary(res)); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.50s"},
		{50 * time.Millisecond, "0.050s"},
		{1234 * time.Microsecond, "0.0012s"},
		{12 * time.Second, "12.00s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), tt.d.String())
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "out.txt", shellQuote("out.txt"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
