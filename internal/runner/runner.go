// Package runner executes the command under test through a shell and
// captures everything it writes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultShell interprets the command string.
const DefaultShell = "sh"

// Runner executes shell commands with the caller's environment.
type Runner struct {
	Shell   string        // defaults to DefaultShell
	Timeout time.Duration // zero means no timeout
}

// Run executes command through the shell in dir. It never returns an error:
// a command that cannot be launched is reported through Result.Err so that
// the caller decides whether to abort.
func (r *Runner) Run(ctx context.Context, command, dir string) *Result {
	res := &Result{RunID: uuid.New().String()}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if r.Timeout > 0 {
		// Grandchildren can hold the pipes open after the shell is killed.
		cmd.WaitDelay = time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Shell not found, bad working directory, etc.
			res.Err = fmt.Errorf("launching %q: %w", command, runErr)
		}
	}
	return res
}
