package refcheck

import (
	"sync"
	"testing"
)

// Output is what one execution of a Command produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Command is a shell command shared by several tests. It runs at most once
// per test binary, on first use.
type Command struct {
	Line string
	Dir  string

	once sync.Once
	out  Output
}

// Run executes the command if it has not run yet and returns its output.
// It stops the test when the command could not be started.
func (c *Command) Run(t testing.TB) Output {
	t.Helper()
	c.once.Do(func() {
		c.out.Stdout, c.out.Stderr, c.out.ExitCode, c.out.Err = Exec(c.Line, c.Dir)
	})
	if c.out.Err != nil {
		t.Fatalf("running %q: %v", c.Line, c.out.Err)
	}
	return c.out
}
