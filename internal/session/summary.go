package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Summary describes a finished session for the user.
func (g *Generator) Summary(res *Result) string {
	o := g.Options
	if len(res.Runs) == 0 {
		return "No iterations requested; nothing generated.\n"
	}
	first := res.Runs[0]
	dir := o.Cwd
	if o.RelativePaths {
		dir = "."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Command execution took: %s\n\n", FormatDuration(first.Duration))
	b.WriteString("SUMMARY:\n\n")
	fmt.Fprintf(&b, "Directory to run in:   %s\n", dir)
	fmt.Fprintf(&b, "Shell command:         %s\n", o.Command)
	fmt.Fprintf(&b, "Test script generated: %s\n", g.display(res.Script))
	if len(res.Files) == 0 {
		b.WriteString("Reference files:       [None]\n")
	} else {
		b.WriteString("Reference files:\n")
		for _, f := range res.Files {
			fmt.Fprintf(&b, "    %s\n", g.display(f))
		}
	}
	fmt.Fprintf(&b, "Check stdout:          %s\n", streamDesc(o.CheckStdout, first.Stdout))
	fmt.Fprintf(&b, "Check stderr:          %s\n", streamDesc(o.CheckStderr, first.Stderr))
	fmt.Fprintf(&b, "Expected exit code:    %d\n", first.ExitCode)
	return b.String()
}

func streamDesc(check bool, out string) string {
	yes := "no"
	if check {
		yes = "yes"
	}
	var was string
	switch n := len(out); {
	case n == 0:
		was = "empty"
	case n < 40:
		was = strconv.Quote(out)
	default:
		lines := strings.Count(strings.TrimSuffix(out, "\n"), "\n") + 1
		was = fmt.Sprintf("%d line", lines)
		if lines != 1 {
			was += "s"
		}
	}
	return fmt.Sprintf("%s (was %s)", yes, was)
}

// FormatDuration renders d in seconds with at least two significant
// figures.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	dps := 2
	for dps < 10 && secs < math.Pow(10, float64(-dps+1)) {
		dps++
	}
	return strconv.FormatFloat(secs, 'f', dps, 64) + "s"
}
