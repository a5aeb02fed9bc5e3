package runner

import "time"

// Result holds the outcome of one execution of the target command.
type Result struct {
	RunID    string        // unique identifier for this run
	Stdout   string        // captured stdout, in full
	Stderr   string        // captured stderr, in full
	ExitCode int           // process exit code; meaningless when Err is set
	Err      error         // launch failure, if the command could not be started
	Duration time.Duration // launch to completion
}

// Launched reports whether the command was started and ran to completion.
func (r *Result) Launched() bool {
	return r.Err == nil
}
