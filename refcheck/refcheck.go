// Package refcheck compares actual output with saved reference files,
// forgiving lines that match ignore patterns and stripping lines listed as
// removals. Generated gentest scripts call it at test time.
//
// A check returns the number of failed comparisons and a list of
// human-readable messages; (0, nil) means the output matched.
//
// Setting REFCHECK_UPDATE=1 in the environment rewrites the reference files
// with the actual output instead of comparing.
package refcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/deixis/gentest/internal/lines"
	"github.com/deixis/gentest/internal/runner"
)

// UpdateEnv names the environment variable that switches checks to
// rewriting references.
const UpdateEnv = "REFCHECK_UPDATE"

type options struct {
	ignore      []string
	remove      []string
	actualPath  string
	unifiedDiff bool
}

// Option configures a comparison.
type Option func(*options)

// IgnorePatterns forgives a differing line when either version matches one
// of the regular expressions.
func IgnorePatterns(patterns ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, patterns...) }
}

// RemoveLines drops lines equal to any of the literals from both sides
// before comparing.
func RemoveLines(literals ...string) Option {
	return func(o *options) { o.remove = append(o.remove, literals...) }
}

// ActualPath makes CheckString write the actual text to path when the
// check fails, so the two files can be compared with diff.
func ActualPath(path string) Option {
	return func(o *options) { o.actualPath = path }
}

// UnifiedDiff appends a unified diff of the two sides to the messages of
// a failed check.
func UnifiedDiff() Option {
	return func(o *options) { o.unifiedDiff = true }
}

func updating() bool {
	return os.Getenv(UpdateEnv) == "1"
}

// CheckString compares actual with the contents of the file at expected.
func CheckString(actual, expected string, opts ...Option) (int, []string) {
	o := apply(opts)
	if updating() {
		return write(expected, actual)
	}
	want, err := lines.Read(expected)
	if err != nil {
		return 1, []string{fmt.Sprintf("Reference file %s could not be read: %v", expected, err)}
	}
	msgs, err := compare("Strings", lines.Split(actual), want, o)
	if err != nil {
		return 1, []string{err.Error()}
	}
	if msgs == nil {
		return 0, nil
	}
	if o.actualPath != "" {
		if err := os.WriteFile(o.actualPath, []byte(actual), 0o644); err != nil {
			msgs = append(msgs, fmt.Sprintf("Actual output could not be written to %s: %v", o.actualPath, err))
		}
		return 1, append(msgs, "File check failed.", compareWith(o.actualPath, expected))
	}
	return 1, append(msgs, "Check failed.", "Expected file "+expected)
}

// CheckFile compares the file at actual with the file at expected.
func CheckFile(actual, expected string, opts ...Option) (int, []string) {
	o := apply(opts)
	got, err := lines.Read(actual)
	if err != nil {
		return 1, []string{fmt.Sprintf("Actual file %s could not be read: %v", actual, err)}
	}
	if updating() {
		data, _ := os.ReadFile(actual)
		return write(expected, string(data))
	}
	want, err := lines.Read(expected)
	if err != nil {
		return 1, []string{fmt.Sprintf("Reference file %s could not be read: %v", expected, err)}
	}
	msgs, err := compare("Files", got, want, o)
	if err != nil {
		return 1, []string{err.Error()}
	}
	if msgs == nil {
		return 0, nil
	}
	return 1, append(msgs, "File check failed.", compareWith(actual, expected))
}

// AssertString fails t when CheckString reports a mismatch.
func AssertString(t testing.TB, actual, expected string, opts ...Option) {
	t.Helper()
	if n, msgs := CheckString(actual, expected, opts...); n != 0 {
		t.Error(strings.Join(msgs, "\n"))
	}
}

// AssertFile fails t when CheckFile reports a mismatch.
func AssertFile(t testing.TB, actual, expected string, opts ...Option) {
	t.Helper()
	if n, msgs := CheckFile(actual, expected, opts...); n != 0 {
		t.Error(strings.Join(msgs, "\n"))
	}
}

// Exec runs command through the shell in dir and returns what it wrote and
// its exit code. err is set only when the command could not be started.
func Exec(command, dir string) (stdout, stderr string, exitCode int, err error) {
	r := (&runner.Runner{}).Run(context.Background(), command, dir)
	return r.Stdout, r.Stderr, r.ExitCode, r.Err
}

func apply(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func write(path, content string) (int, []string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 1, []string{err.Error()}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 1, []string{err.Error()}
	}
	return 0, nil
}

func compareWith(actual, expected string) string {
	return fmt.Sprintf("Compare with \"diff %s %s\".", actual, expected)
}

// compare returns nil when got and want agree, otherwise the messages
// describing the mismatch. what is "Strings" or "Files".
func compare(what string, got, want []string, o *options) ([]string, error) {
	ignore := make([]*regexp.Regexp, 0, len(o.ignore))
	for _, p := range o.ignore {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		ignore = append(ignore, re)
	}
	got, want = normalize(strip(got, o.remove)), normalize(strip(want, o.remove))

	var msgs []string
	if len(got) != len(want) {
		msgs = []string{what + " have different numbers of lines"}
	} else {
		first, n := 0, 0
		for i := range got {
			if got[i] == want[i] || matchesAny(ignore, got[i]) || matchesAny(ignore, want[i]) {
				continue
			}
			if n == 0 {
				first = i + 1
			}
			n++
		}
		switch {
		case n == 1:
			msgs = []string{fmt.Sprintf("1 line is different, starting at line %d", first)}
		case n > 1:
			msgs = []string{fmt.Sprintf("%d lines are different, starting at line %d", n, first)}
		}
	}
	if msgs != nil && o.unifiedDiff {
		msgs = append(msgs, unified(got, want))
	}
	return msgs, nil
}

func strip(ls, remove []string) []string {
	if len(remove) == 0 {
		return ls
	}
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		if !drop[l] {
			out = append(out, l)
		}
	}
	return out
}

// normalize treats a lone blank line as no lines at all.
func normalize(ls []string) []string {
	if len(ls) == 1 && ls[0] == "" {
		return nil
	}
	return ls
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func unified(got, want []string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(want),
		B:        withNewlines(got),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return strings.TrimSuffix(text, "\n")
}

func withNewlines(ls []string) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l + "\n"
	}
	return out
}
