package session

import (
	"regexp"
	"strings"
)

// Pseudo-references recognised among the reference arguments, in any case.
const (
	Stdout      = "STDOUT"
	Stderr      = "STDERR"
	NonZeroExit = "NONZEROEXIT"
)

// Args is the parsed form of the reference arguments.
type Args struct {
	References   []string
	CheckStdout  bool
	CheckStderr  bool
	AllowNonZero bool
}

// ParseArgs separates the pseudo-references from real ones. Without any
// real reference the working directory "." is checked.
func ParseArgs(refs []string) Args {
	var a Args
	for _, r := range refs {
		switch strings.ToUpper(r) {
		case Stdout:
			a.CheckStdout = true
		case Stderr:
			a.CheckStderr = true
		case NonZeroExit:
			a.AllowNonZero = true
		default:
			a.References = append(a.References, r)
		}
	}
	if len(a.References) == 0 {
		a.References = []string{"."}
	}
	return a
}

var plainWord = regexp.MustCompile(`^[A-Za-z0-9_./:=@%+,-]+$`)

// shellQuote quotes s for a POSIX shell when it needs it.
func shellQuote(s string) string {
	if plainWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
