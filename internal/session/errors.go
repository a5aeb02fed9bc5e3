package session

import (
	"fmt"
	"strings"
)

// LaunchError is returned when the command could not be started.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("exception occurred running command %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitCodeError is returned when the command exits non-zero and that was
// not allowed. Command is the invocation that would allow it.
type ExitCodeError struct {
	Code    int
	Command string
}

func (e *ExitCodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "non-zero exit code of %d generated by command.", e.Code)
	if e.Command != "" {
		fmt.Fprintf(&b, "\n\nTo allow non-zero exit code, use:\n\n  %s\n", e.Command)
	}
	b.WriteString("\nTest script not generated.")
	return b.String()
}
