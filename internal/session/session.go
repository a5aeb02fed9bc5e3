// Package session runs a generation session: it executes the command
// under test repeatedly, snapshots the outputs it produced into a
// reference directory, derives exclusions from the differences and from
// environment-specific content, and writes the test script.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/exclusion"
	"github.com/deixis/gentest/internal/logging"
	"github.com/deixis/gentest/internal/reconcile"
	"github.com/deixis/gentest/internal/refset"
	"github.com/deixis/gentest/internal/report"
	"github.com/deixis/gentest/internal/runner"
	"github.com/deixis/gentest/internal/script"
	"github.com/deixis/gentest/internal/specific"
)

// Executor runs the command under test.
// Implemented by runner.Runner.
type Executor interface {
	Run(ctx context.Context, command, dir string) *runner.Result
}

// Options describes one generation session.
type Options struct {
	Args

	Cwd             string
	Command         string
	Script          string // as given; empty selects a name derived from Command
	Iterations      int
	MaxFiles        int
	MaxDateVariants int
	RelativePaths   bool
	Package         string
	Ignore          []string
}

// Generator holds the dependencies of a generation session.
type Generator struct {
	Options  Options
	Runner   Executor
	Logger   *zap.Logger
	Store    report.Store       // optional
	Identity *specific.Identity // nil reads the running environment
}

// Result is the outcome of a successful session.
type Result struct {
	ID         string
	Script     string
	Name       string
	RefDir     string
	Runs       []*runner.Result
	Files      []string                 // reference files of the first run
	Exclusions map[string]exclusion.Set // keyed by reference name
	Warnings   []string
	Report     *report.Session
}

// Generate runs the session. With zero iterations it does nothing.
// Launch failures, disallowed exit codes and snapshot overflow abort the
// session before the script is written.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	o := g.Options
	log := logging.OrNop(g.Logger)
	res := &Result{ID: uuid.New().String(), Exclusions: map[string]exclusion.Set{}}
	if o.Iterations <= 0 {
		log.Info("no iterations requested; nothing generated")
		return res, nil
	}

	path, err := g.scriptPath()
	if err != nil {
		return nil, err
	}
	res.Script = path
	res.Name = script.Name(path)
	res.RefDir = filepath.Join(o.Cwd, "ref", res.Name)
	log = log.With(zap.String("session", res.ID))

	if err := prepareRefDir(res.RefDir, o.Iterations); err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing old script: %w", err)
	}

	resolver := refset.NewResolver(o.References, o.Cwd, o.Iterations, refset.Options{
		RefDir:   res.RefDir,
		MaxFiles: o.MaxFiles,
		Ignore:   o.Ignore,
		Logger:   log,
	})
	if err := resolver.TakeSnapshot(); err != nil {
		var overflow *refset.OverflowError
		if errors.As(err, &overflow) {
			overflow.Command = g.command(o.AllowNonZero, overflow.Max*10)
		}
		return nil, err
	}

	copies := make(map[int]map[string]string, o.Iterations)
	var start, stop time.Time
	for run := 1; run <= o.Iterations; run++ {
		log.Info("running command", zap.String("command", o.Command), zap.Int("run", run), zap.Int("of", o.Iterations))
		if run == 1 {
			start = time.Now()
		}
		r := g.Runner.Run(ctx, o.Command, o.Cwd)
		if run == 1 {
			stop = time.Now()
		}
		res.Runs = append(res.Runs, r)

		if !r.Launched() {
			return nil, &LaunchError{Command: o.Command, Err: r.Err}
		}
		if r.ExitCode != 0 && !o.AllowNonZero {
			return nil, &ExitCodeError{Code: r.ExitCode, Command: g.Command(true)}
		}

		files, warnings, err := resolver.Resolve(run)
		if err != nil {
			return nil, err
		}
		res.warn(log, warnings...)
		if run == 1 {
			res.Files = files
		}

		dir := runDir(res.RefDir, run)
		if err := g.saveStreams(log, r, dir); err != nil {
			return nil, err
		}
		copies[run] = copyFiles(res, log, files, dir)
	}

	if o.Iterations >= 2 {
		g.exclusions(res, log, copies, specific.NewWindow(start, stop))
	}

	if err := g.writeScript(res, copies[1]); err != nil {
		return nil, err
	}
	log.Info("test script written", zap.String("script", g.display(res.Script)))

	res.Report = g.report(res, copies[1])
	if g.Store != nil {
		if err := g.Store.Save(res.Report); err != nil {
			res.warn(log, fmt.Sprintf("saving session report: %v", err))
		}
	}
	return res, nil
}

func (r *Result) warn(log *zap.Logger, warnings ...string) {
	for _, w := range warnings {
		log.Warn(w)
		r.Warnings = append(r.Warnings, w)
	}
}

func (g *Generator) scriptPath() (string, error) {
	raw := g.Options.Script
	if raw == "" {
		raw = script.DefaultPath(g.Options.Command)
	}
	return script.Path(raw, g.Options.Cwd)
}

func (g *Generator) identity() specific.Identity {
	if g.Identity != nil {
		return *g.Identity
	}
	return specific.CurrentIdentity(g.Options.Cwd)
}

func (g *Generator) saveStreams(log *zap.Logger, r *runner.Result, dir string) error {
	streams := []struct {
		check bool
		name  string
		out   string
	}{
		{g.Options.CheckStdout, Stdout, r.Stdout},
		{g.Options.CheckStderr, Stderr, r.Stderr},
	}
	for _, s := range streams {
		if !s.check {
			continue
		}
		path := filepath.Join(dir, s.name)
		if err := os.WriteFile(path, []byte(s.out), 0o644); err != nil {
			return fmt.Errorf("saving %s: %w", strings.ToLower(s.name), err)
		}
		log.Info("saved output", zap.String("stream", s.name), zap.Bool("empty", s.out == ""), zap.String("to", g.display(path)))
	}
	return nil
}

// exclusions reconciles every reference of the first run against the
// later runs and records the synthesized exclusions by reference name.
func (g *Generator) exclusions(res *Result, log *zap.Logger, copies map[int]map[string]string, window specific.Window) {
	id := g.identity()
	rec := &reconcile.Reconciler{
		Classifier: &specific.Classifier{Identity: id, Window: window},
		Logger:     log,
	}
	syn := &exclusion.Synthesizer{
		Identity:        id,
		Window:          window,
		MaxDateVariants: g.Options.MaxDateVariants,
		Logger:          log,
	}

	type target struct {
		name  string
		first string
		later []string
	}
	var targets []target
	for _, s := range g.streams() {
		t := target{name: s, first: filepath.Join(res.RefDir, s)}
		for run := 2; run <= g.Options.Iterations; run++ {
			t.later = append(t.later, filepath.Join(runDir(res.RefDir, run), s))
		}
		targets = append(targets, t)
	}
	for _, src := range res.Files {
		first, ok := copies[1][src]
		if !ok {
			continue
		}
		t := target{name: filepath.Base(first), first: first}
		for run := 2; run <= g.Options.Iterations; run++ {
			if later, ok := copies[run][src]; ok {
				t.later = append(t.later, later)
			}
		}
		targets = append(targets, t)
	}

	for _, t := range targets {
		a, err := rec.Reconcile(t.first, t.later)
		if err != nil {
			res.warn(log, fmt.Sprintf("analysing %s: %v", t.name, err))
			continue
		}
		if a == nil {
			continue
		}
		set, warnings := syn.Synthesize(t.name, a)
		res.Exclusions[t.name] = set
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, string(w))
		}
	}
}

func (g *Generator) streams() []string {
	var s []string
	if g.Options.CheckStdout {
		s = append(s, Stdout)
	}
	if g.Options.CheckStderr {
		s = append(s, Stderr)
	}
	return s
}

func (g *Generator) writeScript(res *Result, copies map[string]string) error {
	o := g.Options
	in := &script.Input{
		Package:     o.Package,
		GenCommand:  g.Command(o.AllowNonZero),
		Command:     o.Command,
		Cwd:         o.Cwd,
		RefDir:      res.RefDir,
		ScriptPath:  res.Script,
		Name:        res.Name,
		ExitCode:    res.Runs[0].ExitCode,
		Relative:    o.RelativePaths,
		CheckStdout: o.CheckStdout,
		CheckStderr: o.CheckStderr,
		Stdout:      res.Exclusions[Stdout],
		Stderr:      res.Exclusions[Stderr],
	}
	for _, src := range res.Files {
		ref, ok := copies[src]
		if !ok {
			continue
		}
		in.Files = append(in.Files, script.File{
			Actual:     src,
			Reference:  ref,
			Exclusions: res.Exclusions[filepath.Base(ref)],
		})
	}
	src, err := script.Render(in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(res.Script), 0o755); err != nil {
		return fmt.Errorf("creating script directory: %w", err)
	}
	if err := os.WriteFile(res.Script, src, 0o644); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	return nil
}

func (g *Generator) report(res *Result, copies map[string]string) *report.Session {
	o := g.Options
	first := res.Runs[0]
	s := &report.Session{
		ID:          res.ID,
		Command:     o.Command,
		GenCommand:  g.Command(o.AllowNonZero),
		Script:      res.Script,
		Cwd:         o.Cwd,
		RefDir:      res.RefDir,
		Iterations:  o.Iterations,
		ExitCode:    first.ExitCode,
		Duration:    first.Duration,
		CheckStdout: o.CheckStdout,
		CheckStderr: o.CheckStderr,
		Warnings:    res.Warnings,
	}
	for _, name := range g.streams() {
		set := res.Exclusions[name]
		s.References = append(s.References, report.Reference{
			Name:     name,
			Copy:     filepath.Join(res.RefDir, name),
			Patterns: set.Patterns,
			Removals: set.Removals,
		})
	}
	for _, src := range res.Files {
		ref, ok := copies[src]
		if !ok {
			continue
		}
		name := filepath.Base(ref)
		set := res.Exclusions[name]
		s.References = append(s.References, report.Reference{
			Name:     name,
			Source:   src,
			Copy:     ref,
			Patterns: set.Patterns,
			Removals: set.Removals,
		})
	}
	return s
}

// Command returns the gentest invocation that reproduces this session,
// allowing a non-zero exit code when allowNonZero is set.
func (g *Generator) Command(allowNonZero bool) string {
	return g.command(allowNonZero, g.Options.MaxFiles)
}

func (g *Generator) command(allowNonZero bool, maxFiles int) string {
	o := g.Options
	parts := []string{"gentest", "generate"}
	if maxFiles > 0 && maxFiles != refset.DefaultMaxFiles {
		parts = append(parts, "--max-files", strconv.Itoa(maxFiles))
	}
	if o.Iterations != config.DefaultIterations {
		parts = append(parts, "--iterations", strconv.Itoa(o.Iterations))
	}
	if o.RelativePaths {
		parts = append(parts, "--relative-paths")
	}
	name := o.Script
	if path, err := g.scriptPath(); err == nil {
		name = filepath.Base(path)
	}
	parts = append(parts, shellQuote(o.Command), shellQuote(name))
	for _, r := range o.References {
		parts = append(parts, shellQuote(r))
	}
	if o.CheckStdout {
		parts = append(parts, Stdout)
	}
	if o.CheckStderr {
		parts = append(parts, Stderr)
	}
	if allowNonZero {
		parts = append(parts, NonZeroExit)
	}
	return strings.Join(parts, " ")
}

// display renders path for messages: relative to the working directory as
// $(pwd)/... when it lies inside it.
func (g *Generator) display(path string) string {
	rel, err := filepath.Rel(g.Options.Cwd, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	if g.Options.RelativePaths {
		return rel
	}
	return "$(pwd)/" + filepath.ToSlash(rel)
}
