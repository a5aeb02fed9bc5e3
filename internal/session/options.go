package session

import "github.com/deixis/gentest/internal/config"

// NewOptions builds session options from the configured defaults and the
// command-line style arguments. Stream checks and exit-code tolerance
// enabled in the config cannot be switched off by the arguments.
func NewOptions(cfg *config.Config, cwd, command, script string, refs []string) Options {
	args := ParseArgs(refs)
	args.CheckStdout = args.CheckStdout || cfg.CheckStdout
	args.CheckStderr = args.CheckStderr || cfg.CheckStderr
	args.AllowNonZero = args.AllowNonZero || cfg.NonZeroExit
	return Options{
		Args:            args,
		Cwd:             cwd,
		Command:         command,
		Script:          script,
		Iterations:      cfg.Iterations(),
		MaxFiles:        cfg.MaxFiles(),
		MaxDateVariants: cfg.MaxDateVariants(),
		RelativePaths:   cfg.RelativePaths,
		Package:         cfg.Package,
		Ignore:          cfg.Ignore,
	}
}
