package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deixis/gentest/internal/config"
	"github.com/deixis/gentest/internal/logging"
	"github.com/deixis/gentest/internal/report"
	"github.com/deixis/gentest/internal/runner"
	"github.com/deixis/gentest/internal/session"
)

type generateFlags struct {
	dir           string
	maxFiles      int
	iterations    int
	relativePaths bool
	pkg           string
	verbose       bool
	json          bool
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [flags] 'command' [script] [reference ...]",
		Short: "Run a command and generate a reference test for it",
		Long: `Run a shell command and generate a Go reference test for it.

The script defaults to a name derived from the command and is forced to end
in _test.go. References are the files, directories or glob patterns the
command writes; without any, the whole working directory is watched.
STDOUT and STDERR (any case) check the output streams, and NONZEROEXIT
accepts a non-zero exit code.`,
		Example: `  gentest generate 'ls -l' STDOUT
  gentest generate -n 3 './build.sh' build_test.go dist STDERR`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f, args)
		},
	}
	// Flags stop at the command so its own arguments are never parsed.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&f.dir, "dir", "C", "", "run in this directory instead of the current one")
	cmd.Flags().IntVarP(&f.maxFiles, "max-files", "m", 0, fmt.Sprintf("maximum files to snapshot (default %d)", config.DefaultMaxFiles))
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", 0, fmt.Sprintf("number of runs (default %d)", config.DefaultIterations))
	cmd.Flags().BoolVarP(&f.relativePaths, "relative-paths", "r", false, "locate references relative to the script")
	cmd.Flags().StringVar(&f.pkg, "package", "", "package clause of the generated script")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the session report as JSON")
	return cmd
}

func runGenerate(cmd *cobra.Command, f generateFlags, args []string) error {
	cwd := f.dir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("determining working directory: %w", err)
		}
	}

	loaded, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	script, refs := splitArgs(args[1:])
	opts := session.NewOptions(cfg, cwd, args[0], script, refs)
	if cmd.Flags().Changed("iterations") {
		if f.iterations < 0 {
			return fmt.Errorf("--iterations must not be negative")
		}
		opts.Iterations = f.iterations
	}
	if f.maxFiles > 0 {
		opts.MaxFiles = f.maxFiles
	}
	if f.relativePaths {
		opts.RelativePaths = true
	}
	if f.pkg != "" {
		opts.Package = f.pkg
	}

	logger, err := logging.New(f.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := &session.Generator{
		Options: opts,
		Runner:  &runner.Runner{Shell: cfg.Shell(), Timeout: cfg.Timeout()},
		Logger:  logger,
		Store:   newStore(),
	}
	res, err := g.Generate(ctx)
	if err != nil {
		return err
	}

	if f.json {
		return writeJSON(cmd.OutOrStdout(), res.Report)
	}
	printWarnings(cmd.ErrOrStderr(), res.Warnings)
	fmt.Fprint(cmd.OutOrStdout(), g.Summary(res))
	if res.Report != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s session %s\n", okStyle.Render("Saved"), res.ID)
	}
	return nil
}

// splitArgs separates the optional script name from the references. A
// leading pseudo-reference is never taken for the script.
func splitArgs(args []string) (script string, refs []string) {
	if len(args) == 0 {
		return "", nil
	}
	switch strings.ToUpper(args[0]) {
	case session.Stdout, session.Stderr, session.NonZeroExit:
		return "", args
	}
	return args[0], args[1:]
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("warning:"), msg)
	}
}

func writeJSON(w io.Writer, s *report.Session) error {
	if s == nil {
		s = &report.Session{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
